package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/forms"
	"github.com/healthpal-ng/healthpal/internal/session"
)

const requestTimeout = 30 * time.Second

// LoginOptions are the login flags
type LoginOptions struct {
	Email    string
	Password string
	Demo     bool
}

// NewLoginCmd creates the login command
func NewLoginCmd(loader *Loader) *cobra.Command {
	var opts LoginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to HealthPal",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "Email address (or set HEALTHPAL_EMAIL)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Password (or set HEALTHPAL_PASSWORD, will prompt if not provided)")
	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "Sign in with the demo account")

	return cmd
}

func runLogin(ctx context.Context, env *Env, opts LoginOptions) error {
	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	if opts.Demo {
		fmt.Fprintln(env.Out, "Signing in with the demo account...")
		user, err := env.Session.DemoLogin(ctx)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		printLoggedIn(env, user)
		return nil
	}

	// Check for environment variables (useful for scripts)
	if opts.Email == "" {
		opts.Email = os.Getenv("HEALTHPAL_EMAIL")
	}
	if opts.Password == "" {
		opts.Password = os.Getenv("HEALTHPAL_PASSWORD")
	}

	var err error
	if opts.Email == "" {
		opts.Email, err = env.Prompt.Input("Email", "", fieldValidator(forms.LoginForm{}, "email"))
		if err != nil {
			return fmt.Errorf("email is required (use --email flag or HEALTHPAL_EMAIL env var): %w", err)
		}
	}
	if opts.Password == "" {
		opts.Password, err = env.Prompt.Password("Password")
		if err != nil {
			return fmt.Errorf("password is required (use --password flag or HEALTHPAL_PASSWORD env var): %w", err)
		}
	}

	if err := forms.Validate(forms.LoginForm{Email: opts.Email, Password: opts.Password}); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Signing in to %s...\n", env.Config.APIBaseURL)

	user, err := env.Session.Login(ctx, opts.Email, opts.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printLoggedIn(env, user)
	return nil
}

func printLoggedIn(env *Env, user *session.User) {
	fmt.Fprintln(env.Out, "✓ Login successful!")
	name := user.Name
	if name == "" {
		name = user.Email
	}
	fmt.Fprintf(env.Out, "  User: %s (%s)\n", name, user.Email)
	if env.Demo.Enabled() {
		fmt.Fprintln(env.Out, "  Demo mode is on")
	}
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(loader *Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runLogout(cmd.Context(), env)
		},
	}
}

func runLogout(ctx context.Context, env *Env) error {
	if !env.Session.IsAuthenticated() {
		fmt.Fprintln(env.Out, "Not signed in.")
		return nil
	}

	if err := env.Session.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(env.Out, "✓ Signed out")
	return nil
}

// fieldValidator checks a single prompted field with the rules of form
func fieldValidator(form interface{}, field string) func(string) error {
	return func(value string) error {
		return forms.ValidateField(form, field, value)
	}
}
