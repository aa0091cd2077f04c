package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/cli/userconfig"
	"github.com/healthpal-ng/healthpal/internal/demo"
)

// NewDemoCmd creates the demo command and its subcommands
func NewDemoCmd(loader *Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Show or change demo mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runDemoStatus(env)
		},
	}

	withEnv := func(run func(env *Env, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return run(env, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Turn demo mode on",
			Args:  cobra.NoArgs,
			RunE: withEnv(func(env *Env, _ []string) error {
				return printDemoChange(env, "Demo mode on", func() (*userconfig.State, error) {
					return env.Demo.SetDemoMode(true)
				})
			}),
		},
		&cobra.Command{
			Use:   "off",
			Short: "Turn demo mode off",
			Args:  cobra.NoArgs,
			RunE: withEnv(func(env *Env, _ []string) error {
				return printDemoChange(env, "Demo mode off", func() (*userconfig.State, error) {
					return env.Demo.SetDemoMode(false)
				})
			}),
		},
		&cobra.Command{
			Use:   "scenarios",
			Short: "List the demo scenarios",
			Args:  cobra.NoArgs,
			RunE: withEnv(func(env *Env, _ []string) error {
				return runDemoScenarios(env)
			}),
		},
		&cobra.Command{
			Use:   "scenario [id]",
			Short: "Select a demo scenario, or clear it with no id",
			Args:  cobra.MaximumNArgs(1),
			RunE: withEnv(func(env *Env, args []string) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				}
				return printDemoChange(env, "Scenario updated", func() (*userconfig.State, error) {
					return env.Demo.SetScenario(id)
				})
			}),
		},
		&cobra.Command{
			Use:   "indicators",
			Short: "Toggle the demo banner",
			Args:  cobra.NoArgs,
			RunE: withEnv(func(env *Env, _ []string) error {
				return printDemoChange(env, "Demo banner toggled", env.Demo.ToggleIndicators)
			}),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Turn demo mode off and clear the scenario",
			Args:  cobra.NoArgs,
			RunE: withEnv(func(env *Env, _ []string) error {
				return printDemoChange(env, "Demo state reset", env.Demo.Reset)
			}),
		},
	)

	return cmd
}

func runDemoStatus(env *Env) error {
	state, err := env.Demo.State()
	if err != nil {
		return err
	}
	printDemoState(env, state)
	return nil
}

func printDemoChange(env *Env, msg string, change func() (*userconfig.State, error)) error {
	state, err := change()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "✓ %s\n", msg)
	printDemoState(env, state)
	return nil
}

func printDemoState(env *Env, state *userconfig.State) {
	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	if !env.Demo.Allowed() {
		fmt.Fprintln(w, "Demo mode:\tdisabled by configuration")
	} else {
		fmt.Fprintf(w, "Demo mode:\t%s\n", onOff(state.DemoMode))
	}
	scenario := "none"
	if s, ok := demo.FindScenario(state.CurrentScenario); ok {
		scenario = fmt.Sprintf("%s (%s)", s.Name, s.ID)
	}
	fmt.Fprintf(w, "Scenario:\t%s\n", scenario)
	fmt.Fprintf(w, "Mock data:\t%s\n", onOff(state.UseMockData))
	fmt.Fprintf(w, "Banner:\t%s\n", onOff(state.ShowDemoIndicators))
	w.Flush()
}

func runDemoScenarios(env *Env) error {
	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEXPECTED\tDESCRIPTION")
	for _, s := range demo.Scenarios {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.ExpectedUrgency, s.Description)
	}
	return w.Flush()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
