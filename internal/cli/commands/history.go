package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/history"
	"github.com/healthpal-ng/healthpal/internal/session"
)

// NewHistoryCmd creates the history command and its subcommands
func NewHistoryCmd(loader *Loader) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List your past assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runHistoryList(cmd.Context(), env, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of assessments to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runHistoryShow(cmd.Context(), env, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one assessment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runHistoryDelete(cmd.Context(), env, args[0])
		},
	})

	var force bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all your assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runHistoryClear(cmd.Context(), env, force)
		},
	}
	clearCmd.Flags().BoolVar(&force, "force", false, "Skip confirmation")
	cmd.AddCommand(clearCmd)

	return cmd
}

func historyFor(ctx context.Context, env *Env) (*history.Store, *session.User, error) {
	user, err := env.requireUser(ctx, session.RouteDashboard)
	if err != nil {
		return nil, nil, err
	}
	store, err := env.History()
	if err != nil {
		return nil, nil, err
	}
	return store, user, nil
}

func runHistoryList(ctx context.Context, env *Env, limit int) error {
	store, user, err := historyFor(ctx, env)
	if err != nil {
		return err
	}

	items, err := store.Recent(ctx, user.ID, limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(env.Out, "No assessments yet.")
		return nil
	}

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tURGENCY\tSYMPTOM")
	for _, a := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04"), a.UrgencyLevel.Label(), truncate(a.PrimarySymptom, 48))
	}
	return w.Flush()
}

func runHistoryShow(ctx context.Context, env *Env, id string) error {
	store, user, err := historyFor(ctx, env)
	if err != nil {
		return err
	}

	a, err := store.Get(ctx, user.ID, id)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no assessment with id %s", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Assessment %s\n", a.ID)
	fmt.Fprintf(env.Out, "Date:    %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(env.Out, "Urgency: %s\n", a.UrgencyLevel.Label())
	if a.EstimatedWaitTime != "" {
		fmt.Fprintf(env.Out, "Seek care: %s\n", a.EstimatedWaitTime)
	}
	if a.Recommendation != "" {
		fmt.Fprintf(env.Out, "\n%s\n", a.Recommendation)
	}
	printList(env.Out, "Symptoms", a.Symptoms)
	printList(env.Out, "Possible conditions", a.PossibleConditions)
	printList(env.Out, "Next steps", a.NextSteps)
	return nil
}

func runHistoryDelete(ctx context.Context, env *Env, id string) error {
	store, user, err := historyFor(ctx, env)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, user.ID, id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no assessment with id %s", id)
		}
		return err
	}
	fmt.Fprintf(env.Out, "✓ Deleted %s\n", id)
	return nil
}

func runHistoryClear(ctx context.Context, env *Env, force bool) error {
	store, user, err := historyFor(ctx, env)
	if err != nil {
		return err
	}

	if !force {
		ok, err := env.Prompt.Confirm("Delete all your assessments?", false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(env.Out, "Cancelled.")
			return nil
		}
	}

	n, err := store.Clear(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "✓ Deleted %d assessment(s)\n", n)
	return nil
}
