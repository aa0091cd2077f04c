package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/cli/client"
	"github.com/healthpal-ng/healthpal/internal/forms"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(loader *Loader) *cobra.Command {
	var form forms.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a HealthPal account",
		Long: `Create a HealthPal account. Missing fields are asked for interactively.
After registering, sign in with 'healthpal login'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runRegister(cmd.Context(), env, form)
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Username, "username", "", "Username (3-19 letters, numbers or underscores)")
	cmd.Flags().StringVar(&form.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&form.PhoneNumber, "phone", "", "Phone number")
	cmd.Flags().IntVar(&form.Age, "age", 0, "Age (optional)")
	cmd.Flags().StringVar(&form.Gender, "gender", "", "Gender: male, female, other or prefer_not_to_say")
	cmd.Flags().StringVar(&form.Location, "location", "", "City or state")

	return cmd
}

func runRegister(ctx context.Context, env *Env, form forms.RegisterForm) error {
	if err := collectRegisterForm(env, &form); err != nil {
		return err
	}

	if err := forms.Validate(form); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	user, err := env.AuthAPI.Register(ctx, client.RegisterRequest{
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
		Username:        form.Username,
		FullName:        form.FullName,
		PhoneNumber:     form.PhoneNumber,
		Age:             form.Age,
		Gender:          form.Gender,
		Location:        form.Location,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Account created!")
	fmt.Fprintf(env.Out, "  User: %s (%s)\n", user.Name, user.Email)
	fmt.Fprintln(env.Out, "\nSign in with: healthpal login --email", user.Email)
	return nil
}

// collectRegisterForm prompts for every field not given as a flag
func collectRegisterForm(env *Env, form *forms.RegisterForm) error {
	var err error

	ask := func(field, label string, target *string) error {
		if *target != "" {
			return nil
		}
		*target, err = env.Prompt.Input(label, "", fieldValidator(*form, field))
		return err
	}

	if err := ask("email", "Email", &form.Email); err != nil {
		return err
	}

	if form.Password == "" {
		if form.Password, err = env.Prompt.Password("Password"); err != nil {
			return err
		}
		if err := forms.ValidateField(*form, "password", form.Password); err != nil {
			return err
		}
		if form.ConfirmPassword, err = env.Prompt.Password("Confirm password"); err != nil {
			return err
		}
	}

	if err := ask("username", "Username", &form.Username); err != nil {
		return err
	}
	if err := ask("fullName", "Full name", &form.FullName); err != nil {
		return err
	}
	if err := ask("phoneNumber", "Phone number", &form.PhoneNumber); err != nil {
		return err
	}

	if form.Age == 0 {
		age, err := env.Prompt.Input("Age (optional)", "", fieldValidator(*form, "age"))
		if err != nil {
			return err
		}
		if age != "" {
			if form.Age, err = strconv.Atoi(age); err != nil {
				return fmt.Errorf("age must be a number")
			}
		}
	}

	if form.Gender == "" {
		i, err := env.Prompt.Select("Gender", forms.Genders)
		if err != nil {
			return err
		}
		form.Gender = forms.Genders[i]
	}

	return ask("location", "Location", &form.Location)
}
