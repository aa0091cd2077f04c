package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree. opts are applied to the shared Env
// before any flag-derived options.
func NewRootCmd(opts ...commands.EnvOption) *cobra.Command {
	loader := commands.NewLoader(opts...)

	var configPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "healthpal",
		Short: "HealthPal - Symptom triage from your terminal",
		Long: `HealthPal CLI - Check your symptoms and find care nearby.

HealthPal asks about your symptoms, tells you how urgently you should seek
care and lists clinics near you. It is not a substitute for a doctor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				loader.Add(commands.WithConfigPath(configPath))
			}
			if verbose {
				loader.Add(commands.WithLogLevel("debug"))
			}
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return loader.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/healthpal/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "healthpal version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(loader))
	rootCmd.AddCommand(commands.NewLogoutCmd(loader))
	rootCmd.AddCommand(commands.NewRegisterCmd(loader))
	rootCmd.AddCommand(commands.NewProfileCmd(loader))
	rootCmd.AddCommand(commands.NewDashCmd(loader))
	rootCmd.AddCommand(commands.NewTriageCmd(loader))
	rootCmd.AddCommand(commands.NewClinicsCmd(loader))
	rootCmd.AddCommand(commands.NewHistoryCmd(loader))
	rootCmd.AddCommand(commands.NewDemoCmd(loader))
	rootCmd.AddCommand(commands.NewConfigCmd(loader))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
