package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// Manager owns the session token pair. It logs in and out, refreshes the
// access token with at most one refresh in flight, and sends the user back
// to login when the session cannot be recovered.
type Manager struct {
	store     TokenStore
	auth      Authenticator
	navigator Navigator
	logger    zerolog.Logger
	now       func() time.Time

	refreshTimeout time.Duration
	logoutTimeout  time.Duration

	flights singleflight.Group

	mu     sync.RWMutex
	tokens Tokens
	// generation changes whenever the session is replaced or cleared. A
	// refresh only commits its tokens if it is unchanged.
	generation uint64
}

// Option configures a Manager
type Option func(*Manager)

// WithNavigator sets the port used to redirect to login
func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock overrides time.Now, used for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRefreshTimeout bounds a single refresh call
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

// New creates a Manager and loads any persisted session synchronously.
// A partially stored pair is treated as no session and cleared.
func New(store TokenStore, auth Authenticator, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:          store,
		auth:           auth,
		navigator:      noopNavigator{},
		logger:         zerolog.Nop(),
		now:            time.Now,
		refreshTimeout: defaultRefreshTimeout,
		logoutTimeout:  defaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}

	tokens, err := store.GetTokens()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if tokens.Complete() {
		m.tokens = tokens
	} else if tokens.AccessToken != "" || tokens.RefreshToken != "" {
		m.logger.Warn().Msg("Discarding incomplete stored session")
		if err := store.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear incomplete session: %w", err)
		}
	}

	return m, nil
}

// AccessToken returns the current access token, or "" if there is none
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.AccessToken
}

// Tokens returns a copy of the current token pair
func (m *Manager) Tokens() Tokens {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

// Login authenticates with email and password and stores the token pair
func (m *Manager) Login(ctx context.Context, email, password string) (*User, error) {
	result, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := m.setTokens(result.Tokens); err != nil {
		return nil, err
	}

	m.logger.Info().Str("user_id", result.User.ID).Str("email", result.User.Email).Msg("User logged in")

	user := result.User
	return &user, nil
}

// DemoLogin logs in with the shared demo account
func (m *Manager) DemoLogin(ctx context.Context) (*User, error) {
	return m.Login(ctx, DemoCredentials.Email, DemoCredentials.Password)
}

// Logout notifies the backend and clears the local session.
// The remote call is best-effort: tokens are cleared even when it fails.
func (m *Manager) Logout(ctx context.Context) error {
	access := m.AccessToken()

	if access != "" {
		logoutCtx, cancel := context.WithTimeout(ctx, m.logoutTimeout)
		if err := m.auth.Logout(logoutCtx, access); err != nil {
			m.logger.Warn().Err(err).Msg("Logout API call failed")
		}
		cancel()
	}

	err := m.clear()
	m.navigator.Navigate(RouteLogin)
	return err
}

// Refresh obtains a new access token using the stored refresh token.
// Concurrent callers share a single in-flight refresh and receive the same
// token. Cancelling ctx only stops this caller from waiting; the refresh
// itself runs to completion. On failure the session is cleared and the user
// is sent to login.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.flights.DoChan(refreshFlightKey, func() (interface{}, error) {
		return m.performRefresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) performRefresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	refreshToken := m.tokens.RefreshToken
	generation := m.generation
	m.mu.RUnlock()

	if refreshToken == "" {
		m.endSession()
		return "", ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	tokens, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Token refresh failed, ending session")
		m.endSession()
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}

	// Backends that do not rotate refresh tokens omit it from the response
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	committed, err := m.commitRefresh(generation, tokens)
	if err != nil {
		m.endSession()
		return "", err
	}
	if !committed {
		m.logger.Debug().Msg("Session changed during refresh, discarding tokens")
		return "", ErrNotAuthenticated
	}

	m.logger.Debug().Msg("Access token refreshed")
	return tokens.AccessToken, nil
}

// endSession clears the session after an unrecoverable auth failure
func (m *Manager) endSession() {
	if err := m.clear(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored tokens")
	}
	m.navigator.Navigate(RouteLogin)
}

func (m *Manager) setTokens(tokens Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.storeTokensLocked(tokens)
}

// commitRefresh stores refreshed tokens unless the session was cleared or
// replaced after the refresh started
func (m *Manager) commitRefresh(generation uint64, tokens Tokens) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != generation {
		return false, nil
	}
	return true, m.storeTokensLocked(tokens)
}

func (m *Manager) storeTokensLocked(tokens Tokens) error {
	m.generation++
	if err := m.store.SetTokens(tokens); err != nil {
		m.tokens = Tokens{}
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.tokens = tokens
	return nil
}

func (m *Manager) clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.tokens = Tokens{}
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is present
func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// claims decodes the access token payload without verifying the signature.
// The backend remains the authority; the client only reads display fields
// and the expiry.
func (m *Manager) claims() (jwt.MapClaims, bool) {
	token := m.AccessToken()
	if token == "" {
		return nil, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		m.logger.Debug().Err(err).Msg("Failed to decode access token")
		return nil, false
	}
	return claims, true
}

// Expiry returns the access token expiry, if the token carries one
func (m *Manager) Expiry() (time.Time, bool) {
	claims, ok := m.claims()
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsTokenExpired reports whether the access token is missing, undecodable
// or past its expiry
func (m *Manager) IsTokenExpired() bool {
	exp, ok := m.Expiry()
	if !ok {
		return true
	}
	return exp.Before(m.now())
}

// CurrentUser returns the user described by the access token claims
func (m *Manager) CurrentUser() (*User, bool) {
	claims, ok := m.claims()
	if !ok {
		return nil, false
	}

	user := &User{
		ID:    stringClaim(claims, "sub"),
		Email: stringClaim(claims, "email"),
		Name:  stringClaim(claims, "name"),
		Role:  stringClaim(claims, "role"),
	}
	if user.ID == "" {
		user.ID = stringClaim(claims, "user_id")
	}
	return user, true
}

// Role returns the role claim of the access token, or "" if absent
func (m *Manager) Role() string {
	user, ok := m.CurrentUser()
	if !ok {
		return ""
	}
	return user.Role
}

// RequireAuth guards a protected route. It redirects to login and returns
// ErrNotAuthenticated when there is no valid session.
func (m *Manager) RequireAuth(route Route) error {
	if !route.IsProtected() {
		return nil
	}
	if !m.IsAuthenticated() || m.IsTokenExpired() {
		m.navigator.Navigate(RouteLogin)
		return ErrNotAuthenticated
	}
	return nil
}

// Resolve returns where a request for route should land given the current
// session: protected routes need a session, login and root go to the
// dashboard when one exists, root goes to login otherwise.
func (m *Manager) Resolve(route Route) Route {
	authenticated := m.IsAuthenticated()

	switch {
	case route.IsProtected() && !authenticated:
		return RouteLogin
	case route == RouteLogin && authenticated:
		return RouteDashboard
	case route == RouteRoot && authenticated:
		return RouteDashboard
	case route == RouteRoot:
		return RouteLogin
	default:
		return route
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, ok := claims[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
