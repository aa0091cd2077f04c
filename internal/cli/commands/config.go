package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/healthpal-ng/healthpal/internal/cli/config"
)

// NewConfigCmd creates the config command and its subcommands
func NewConfigCmd(loader *Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runConfigShow(env)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runConfigInit(env, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.AddCommand(initCmd)

	return cmd
}

func runConfigShow(env *Env) error {
	fmt.Fprintf(env.Out, "# %s\n", env.configFile())
	data, err := yaml.Marshal(env.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = env.Out.Write(data)
	return err
}

func runConfigInit(env *Env, force bool) error {
	path := env.configFile()
	if path == "" {
		return errors.New("cannot determine the config file path")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "✓ Wrote %s\n", path)
	return nil
}

// configFile returns the config path in use
func (e *Env) configFile() string {
	if e.configPath != "" {
		return e.configPath
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return ""
	}
	return path
}
