package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Activity is a user input signal that counts as the user being present
type Activity string

const (
	ActivityPointerDown Activity = "pointer-down"
	ActivityPointerMove Activity = "pointer-move"
	ActivityKeyPress    Activity = "key-press"
	ActivityScroll      Activity = "scroll"
	ActivityTouchStart  Activity = "touch-start"
	ActivityClick       Activity = "click"
)

// TrackedActivities is the fixed set of signals that reset the activity clock
var TrackedActivities = []Activity{
	ActivityPointerDown,
	ActivityPointerMove,
	ActivityKeyPress,
	ActivityScroll,
	ActivityTouchStart,
	ActivityClick,
}

func isTracked(a Activity) bool {
	for _, tracked := range TrackedActivities {
		if a == tracked {
			return true
		}
	}
	return false
}

// Policy configures the inactivity tracker
type Policy struct {
	// WarningLead is how long before HardTimeout the warning is shown
	WarningLead time.Duration
	// HardTimeout is the inactivity period that ends the session
	HardTimeout time.Duration
	// PollInterval is how often inactivity is checked
	PollInterval time.Duration
}

// DefaultPolicy returns 5 minutes warning, 30 minutes timeout, 60 second poll
func DefaultPolicy() Policy {
	return Policy{
		WarningLead:  5 * time.Minute,
		HardTimeout:  30 * time.Minute,
		PollInterval: 60 * time.Second,
	}
}

// Validate checks the policy is usable
func (p Policy) Validate() error {
	if p.HardTimeout <= 0 {
		return errors.New("hard timeout must be positive")
	}
	if p.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if p.WarningLead < 0 || p.WarningLead > p.HardTimeout {
		return fmt.Errorf("warning lead %v must be between 0 and hard timeout %v", p.WarningLead, p.HardTimeout)
	}
	return nil
}

// Warning is shown when the session is about to end due to inactivity
type Warning struct {
	RemainingMinutes int
}

// Message renders the warning text
func (w Warning) Message() string {
	unit := "minutes"
	if w.RemainingMinutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Your session will expire in %d %s due to inactivity.", w.RemainingMinutes, unit)
}

// Notifier emits a platform notification when permission was granted
type Notifier interface {
	Permitted() bool
	Notify(title, body string) error
}

// SessionEnder is the part of the Manager the tracker depends on
type SessionEnder interface {
	Logout(ctx context.Context) error
	IsTokenExpired() bool
}

// LogoutReason explains why the tracker ended the session
type LogoutReason string

const (
	ReasonTokenExpired     LogoutReason = "token expired"
	ReasonInactivity       LogoutReason = "inactivity timeout"
	ReasonCountdownElapsed LogoutReason = "warning countdown elapsed"
	ReasonSignedOut        LogoutReason = "signed out"
)

// TrackerHooks are the UI callbacks of the tracker. All are optional and
// are called without the tracker lock held.
type TrackerHooks struct {
	// OnWarning is called when the warning opens and on every countdown update
	OnWarning func(Warning)
	// OnDismiss is called when an open warning is dismissed
	OnDismiss func()
	// OnLogout is called once after the tracker ended the session
	OnLogout func(LogoutReason)
}

// Tracker ends the session after prolonged inactivity, with an advance
// warning. Activity is recorded with Record; Start runs the poll loop and
// the warning countdown until Stop is called or the session ends.
type Tracker struct {
	policy            Policy
	session           SessionEnder
	hooks             TrackerHooks
	notifier          Notifier
	logger            zerolog.Logger
	now               func() time.Time
	countdownInterval time.Duration

	mu           sync.Mutex
	lastActivity time.Time
	warningOpen  bool
	remaining    int
	ended        bool
	released     bool
	running      bool

	// wake tells the run loop that the warning opened or closed
	wake chan struct{}
	done chan struct{}

	cancel context.CancelFunc
	loop   sync.WaitGroup
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithTrackerClock overrides time.Now
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithNotifier sets the platform notifier used when the warning opens
func WithNotifier(n Notifier) TrackerOption {
	return func(t *Tracker) {
		t.notifier = n
	}
}

// WithTrackerLogger sets the logger
func WithTrackerLogger(l zerolog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithCountdownInterval changes how often the open warning counts down (default one minute)
func WithCountdownInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.countdownInterval = d
	}
}

// NewTracker creates a tracker with the activity clock set to now
func NewTracker(policy Policy, session SessionEnder, hooks TrackerHooks, opts ...TrackerOption) (*Tracker, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session timeout policy: %w", err)
	}

	t := &Tracker{
		policy:            policy,
		session:           session,
		hooks:             hooks,
		logger:            zerolog.Nop(),
		now:               time.Now,
		countdownInterval: time.Minute,
		wake:              make(chan struct{}, 1),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastActivity = t.now()

	return t, nil
}

// Start launches the poll loop. It performs an initial check immediately.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running || t.released || t.ended {
		t.mu.Unlock()
		return
	}
	t.running = true
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	t.loop.Add(1)
	go t.run(ctx)
}

func (t *Tracker) run(ctx context.Context) {
	defer t.loop.Done()

	poll := time.NewTicker(t.policy.PollInterval)
	defer poll.Stop()

	var countdown *time.Ticker
	var countdownC <-chan time.Time
	defer func() {
		if countdown != nil {
			countdown.Stop()
		}
	}()

	t.Check(ctx)

	for {
		if t.Ended() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			t.Check(ctx)
		case <-countdownC:
			t.CountdownTick(ctx)
		case <-t.wake:
			open := t.WarningOpen()
			switch {
			case open && countdown == nil:
				countdown = time.NewTicker(t.countdownInterval)
				countdownC = countdown.C
			case !open && countdown != nil:
				countdown.Stop()
				countdown = nil
				countdownC = nil
			}
		}
	}
}

// Stop releases the poll loop, the countdown and the activity subscription.
// Activity recorded after Stop is ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.released = true
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.loop.Wait()
}

// Done is closed once the tracker has ended the session
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Ended reports whether the tracker has ended the session
func (t *Tracker) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// WarningOpen reports whether the inactivity warning is currently shown
func (t *Tracker) WarningOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.warningOpen
}

// LastActivity returns the activity clock
func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// Record registers a user activity signal. It resets the activity clock and
// dismisses any open warning. Untracked signals are ignored.
func (t *Tracker) Record(a Activity) {
	if !isTracked(a) {
		return
	}
	t.touch()
}

// Extend is the "stay signed in" response to the warning
func (t *Tracker) Extend() {
	t.touch()
}

// SignOut is the "sign out now" response to the warning
func (t *Tracker) SignOut(ctx context.Context) error {
	return t.forceLogout(ctx, ReasonSignedOut)
}

func (t *Tracker) touch() {
	t.mu.Lock()
	if t.released || t.ended {
		t.mu.Unlock()
		return
	}
	t.lastActivity = t.now()
	dismissed := t.warningOpen
	t.warningOpen = false
	t.remaining = 0
	t.mu.Unlock()

	if dismissed {
		t.signal()
		if t.hooks.OnDismiss != nil {
			t.hooks.OnDismiss()
		}
	}
}

// Check runs one poll tick. An expired access token ends the session first;
// otherwise inactivity past the hard timeout ends it, and inactivity past
// the warning threshold opens the warning once.
func (t *Tracker) Check(ctx context.Context) {
	t.mu.Lock()
	if t.ended || t.released {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	if t.session.IsTokenExpired() {
		t.logger.Info().Msg("Token expired, logging out")
		_ = t.forceLogout(ctx, ReasonTokenExpired)
		return
	}

	t.mu.Lock()
	elapsed := t.now().Sub(t.lastActivity)

	if elapsed >= t.policy.HardTimeout {
		t.mu.Unlock()
		t.logger.Info().Dur("idle", elapsed).Msg("Session timeout, logging out")
		_ = t.forceLogout(ctx, ReasonInactivity)
		return
	}

	if elapsed < t.policy.HardTimeout-t.policy.WarningLead || t.warningOpen {
		t.mu.Unlock()
		return
	}

	remaining := ceilMinutes(t.policy.HardTimeout - elapsed)
	t.warningOpen = true
	t.remaining = remaining
	t.mu.Unlock()

	warning := Warning{RemainingMinutes: remaining}
	t.logger.Warn().Int("remaining_minutes", remaining).Msg("Session will expire soon")

	t.signal()
	if t.hooks.OnWarning != nil {
		t.hooks.OnWarning(warning)
	}
	t.notify(warning)
}

// CountdownTick advances the open warning by one countdown step. When the
// countdown runs out the session is ended.
func (t *Tracker) CountdownTick(ctx context.Context) {
	t.mu.Lock()
	if !t.warningOpen || t.ended || t.released {
		t.mu.Unlock()
		return
	}

	if t.remaining <= 1 {
		t.remaining = 0
		t.mu.Unlock()
		_ = t.forceLogout(ctx, ReasonCountdownElapsed)
		return
	}

	t.remaining--
	warning := Warning{RemainingMinutes: t.remaining}
	t.mu.Unlock()

	if t.hooks.OnWarning != nil {
		t.hooks.OnWarning(warning)
	}
}

func (t *Tracker) forceLogout(ctx context.Context, reason LogoutReason) error {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return nil
	}
	t.ended = true
	dismissed := t.warningOpen
	t.warningOpen = false
	t.remaining = 0
	t.mu.Unlock()

	if dismissed && t.hooks.OnDismiss != nil {
		t.hooks.OnDismiss()
	}

	err := t.session.Logout(ctx)
	if err != nil {
		t.logger.Error().Err(err).Str("reason", string(reason)).Msg("Logout failed")
	}

	close(t.done)
	if t.hooks.OnLogout != nil {
		t.hooks.OnLogout(reason)
	}
	return err
}

func (t *Tracker) notify(w Warning) {
	if t.notifier == nil || !t.notifier.Permitted() {
		return
	}
	body := fmt.Sprintf("Your session will expire in %d minute(s). Return to stay signed in.", w.RemainingMinutes)
	if err := t.notifier.Notify("Session Expiring", body); err != nil {
		t.logger.Debug().Err(err).Msg("Failed to send session notification")
	}
}

func (t *Tracker) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
