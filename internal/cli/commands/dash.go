package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthpal-ng/healthpal/internal/session"
	"github.com/healthpal-ng/healthpal/internal/triage"
)

const recentLimit = 5

// NewDashCmd creates the dash command
func NewDashCmd(loader *Loader) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show your dashboard",
		Long: `Show your dashboard: account, demo status and recent assessments.

With --watch the dashboard stays open. You are signed out after a period of
inactivity, with a warning shortly before.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runDash(cmd.Context(), env, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the dashboard open")

	return cmd
}

func runDash(ctx context.Context, env *Env, watch bool) error {
	user, err := env.requireUser(ctx, session.RouteDashboard)
	if err != nil {
		return err
	}

	if !watch {
		printDashboard(ctx, env, env.Out, user)
		return nil
	}
	return runDashShell(ctx, env, user)
}

func printDashboard(ctx context.Context, env *Env, w io.Writer, user *session.User) {
	name := user.Name
	if name == "" {
		name = user.Email
	}
	fmt.Fprintf(w, "Welcome back, %s\n", name)
	fmt.Fprintf(w, "  Email: %s\n", user.Email)
	if user.Role != "" {
		fmt.Fprintf(w, "  Role:  %s\n", user.Role)
	}
	if exp, ok := env.Session.Expiry(); ok {
		fmt.Fprintf(w, "  Token valid until %s\n", exp.Local().Format(time.Kitchen))
	}

	if state, err := env.Demo.State(); err == nil && state.DemoMode && state.ShowDemoIndicators {
		line := "[DEMO] Demo mode is on"
		if s, ok := env.Demo.CurrentScenario(); ok {
			line += ", scenario: " + s.Name
		}
		fmt.Fprintln(w, line)
	}

	store, err := env.History()
	if err != nil {
		env.Logger.Warn().Err(err).Msg("History unavailable")
		return
	}

	summary, err := store.Summarize(ctx, user.ID)
	if err != nil {
		env.Logger.Warn().Err(err).Msg("Failed to summarize history")
		return
	}

	fmt.Fprintf(w, "\nAssessments: %d", summary.Total)
	if summary.LastAt != nil {
		fmt.Fprintf(w, " (last %s)", summary.LastAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w)
	for _, u := range []triage.Urgency{triage.UrgencyEmergency, triage.UrgencyUrgent, triage.UrgencySemiUrgent, triage.UrgencyNonUrgent} {
		if n := summary.ByUrgency[u]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", u.Label(), n)
		}
	}

	recent, err := store.Recent(ctx, user.ID, recentLimit)
	if err != nil {
		env.Logger.Warn().Err(err).Msg("Failed to list history")
		return
	}
	if len(recent) == 0 {
		fmt.Fprintln(w, "\nNo assessments yet. Run 'healthpal triage' to start one.")
		return
	}
	fmt.Fprintln(w, "\nRecent:")
	for _, a := range recent {
		fmt.Fprintf(w, "  %s  %-12s %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04"), a.UrgencyLevel.Label(), truncate(a.PrimarySymptom, 48))
	}
}

const dashHelp = `Commands: refresh, help, logout, quit`

// runDashShell keeps the dashboard open until the user quits or the
// inactivity tracker ends the session. Every input line counts as activity.
func runDashShell(ctx context.Context, env *Env, user *session.User) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := &lockedWriter{w: env.Out}

	tracker, err := session.NewTracker(env.Config.Policy(), newRefreshingSession(ctx, env.Session, env.Logger),
		session.TrackerHooks{
			OnWarning: func(w session.Warning) {
				fmt.Fprintf(out, "\n%s Stay signed in? [y/n] ", w.Message())
			},
			OnDismiss: func() {
				fmt.Fprintln(out, "Session extended.")
			},
			OnLogout: func(reason session.LogoutReason) {
				fmt.Fprintf(out, "\nSession ended: %s.\n", reason)
			},
		},
		session.WithNotifier(bellNotifier{w: env.Err}),
		session.WithTrackerLogger(env.Logger),
	)
	if err != nil {
		return err
	}

	printDashboard(ctx, env, out, user)
	fmt.Fprintln(out, "\n"+dashHelp)

	tracker.Start(ctx)
	defer tracker.Stop()

	// The reader goroutine below blocks in Scan until input arrives. Closing
	// the input releases it once the shell returns; a terminal read on
	// os.Stdin may stay blocked until the process exits.
	if c, ok := env.In.(io.Closer); ok {
		defer c.Close()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(env.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-tracker.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.ToLower(strings.TrimSpace(line))

			if tracker.WarningOpen() {
				switch input {
				case "n", "no":
					return tracker.SignOut(ctx)
				default:
					tracker.Extend()
					continue
				}
			}

			tracker.Record(session.ActivityKeyPress)

			switch input {
			case "":
			case "q", "quit", "exit":
				return nil
			case "r", "refresh":
				printDashboard(ctx, env, out, user)
			case "logout":
				return tracker.SignOut(ctx)
			case "h", "help":
				fmt.Fprintln(out, dashHelp)
			default:
				fmt.Fprintf(out, "Unknown command %q. %s\n", input, dashHelp)
			}
		}
	}
}

// refreshingSession reports the token as expired only when it cannot be
// refreshed, so an open dashboard outlives the short access token.
type refreshingSession struct {
	ctx     context.Context
	manager *session.Manager
	logger  zerolog.Logger
}

func newRefreshingSession(ctx context.Context, m *session.Manager, logger zerolog.Logger) *refreshingSession {
	return &refreshingSession{ctx: ctx, manager: m, logger: logger}
}

func (s *refreshingSession) Logout(ctx context.Context) error {
	return s.manager.Logout(ctx)
}

func (s *refreshingSession) IsTokenExpired() bool {
	if !s.manager.IsTokenExpired() {
		return false
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	if _, err := s.manager.Refresh(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Token refresh failed")
		return true
	}
	return false
}

// bellNotifier rings the terminal bell with the warning
type bellNotifier struct {
	w io.Writer
}

func (bellNotifier) Permitted() bool { return true }

func (n bellNotifier) Notify(title, body string) error {
	_, err := fmt.Fprintf(n.w, "\a%s: %s\n", title, body)
	return err
}

// lockedWriter serializes writes from the tracker hooks and the input loop
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
