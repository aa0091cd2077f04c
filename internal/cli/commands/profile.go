package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/cli/client"
	"github.com/healthpal-ng/healthpal/internal/forms"
	"github.com/healthpal-ng/healthpal/internal/session"
)

// NewProfileCmd creates the profile command and its subcommands
func NewProfileCmd(loader *Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runProfileShow(cmd.Context(), env)
		},
	}

	cmd.AddCommand(newProfileUpdateCmd(loader))
	cmd.AddCommand(newProfilePasswordCmd(loader))

	return cmd
}

func runProfileShow(ctx context.Context, env *Env) error {
	if _, err := env.requireUser(ctx, session.RouteProfile); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	profile, err := env.API.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	printProfile(env, profile)
	return nil
}

func printProfile(env *Env, p *client.Profile) {
	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", p.FullName)
	fmt.Fprintf(w, "Email:\t%s\n", p.Email)
	fmt.Fprintf(w, "Username:\t%s\n", p.Username)
	fmt.Fprintf(w, "Phone:\t%s\n", p.PhoneNumber)
	if p.Age > 0 {
		fmt.Fprintf(w, "Age:\t%d\n", p.Age)
	}
	fmt.Fprintf(w, "Gender:\t%s\n", p.Gender)
	fmt.Fprintf(w, "Location:\t%s\n", p.Location)
	w.Flush()
}

func newProfileUpdateCmd(loader *Loader) *cobra.Command {
	var update client.Profile

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runProfileUpdate(cmd.Context(), env, update)
		},
	}

	cmd.Flags().StringVar(&update.Username, "username", "", "Username")
	cmd.Flags().StringVar(&update.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&update.PhoneNumber, "phone", "", "Phone number")
	cmd.Flags().IntVar(&update.Age, "age", 0, "Age")
	cmd.Flags().StringVar(&update.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&update.Location, "location", "", "Location")

	return cmd
}

func runProfileUpdate(ctx context.Context, env *Env, update client.Profile) error {
	if _, err := env.requireUser(ctx, session.RouteProfile); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	current, err := env.API.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	merged := forms.ProfileForm{
		Username:    pick(update.Username, current.Username),
		FullName:    pick(update.FullName, current.FullName),
		PhoneNumber: pick(update.PhoneNumber, current.PhoneNumber),
		Age:         current.Age,
		Gender:      pick(update.Gender, current.Gender),
		Location:    pick(update.Location, current.Location),
	}
	if update.Age != 0 {
		merged.Age = update.Age
	}
	if err := forms.Validate(merged); err != nil {
		return err
	}

	saved, err := env.API.UpdateProfile(ctx, client.Profile{
		Username:    merged.Username,
		FullName:    merged.FullName,
		PhoneNumber: merged.PhoneNumber,
		Age:         merged.Age,
		Gender:      merged.Gender,
		Location:    merged.Location,
	})
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Profile updated")
	printProfile(env, saved)
	return nil
}

func newProfilePasswordCmd(loader *Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runChangePassword(cmd.Context(), env)
		},
	}
}

func runChangePassword(ctx context.Context, env *Env) error {
	if _, err := env.requireUser(ctx, session.RouteProfile); err != nil {
		return err
	}

	var form forms.PasswordChangeForm
	var err error
	if form.CurrentPassword, err = env.Prompt.Password("Current password"); err != nil {
		return err
	}
	if form.NewPassword, err = env.Prompt.Password("New password"); err != nil {
		return err
	}
	if form.ConfirmPassword, err = env.Prompt.Password("Confirm new password"); err != nil {
		return err
	}
	if err := forms.Validate(form); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	if err := env.API.ChangePassword(ctx, form.CurrentPassword, form.NewPassword); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Password changed")
	return nil
}

func pick(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
