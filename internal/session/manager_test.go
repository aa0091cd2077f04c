package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory TokenStore for testing
type memoryStore struct {
	mu      sync.Mutex
	tokens  Tokens
	sets    int
	clears  int
	failSet bool
}

func (s *memoryStore) GetTokens() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *memoryStore) SetTokens(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		s.tokens = Tokens{}
		return errors.New("keyring unavailable")
	}
	s.tokens = t
	s.sets++
	return nil
}

func (s *memoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.clears++
	return nil
}

// fakeAuth simulates the remote auth endpoints
type fakeAuth struct {
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32

	release    chan struct{}
	refreshErr error
	logoutErr  error
	loginErr   error
	next       Tokens
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &LoginResult{
		User:   User{ID: "user-123", Email: email, Name: "Test User"},
		Tokens: f.next,
	}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	f.refreshCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.refreshErr != nil {
		return Tokens{}, f.refreshErr
	}
	return f.next, nil
}

func (f *fakeAuth) Logout(ctx context.Context, accessToken string) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

// recordingNavigator remembers every route it was sent to
type recordingNavigator struct {
	mu     sync.Mutex
	routes []Route
}

func (n *recordingNavigator) Navigate(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *recordingNavigator) Routes() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func accessTokenExpiringAt(t *testing.T, exp time.Time) string {
	return signToken(t, jwt.MapClaims{
		"sub":   "user-123",
		"email": "test@example.com",
		"name":  "Test User",
		"role":  "patient",
		"exp":   exp.Unix(),
	})
}

func TestNew_LoadsStoredSession(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a", RefreshToken: "r"}}

	m, err := New(store, &fakeAuth{})
	require.NoError(t, err)

	assert.Equal(t, "a", m.AccessToken())
	assert.True(t, m.IsAuthenticated())
}

func TestNew_DiscardsPartialSession(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a"}}

	m, err := New(store, &fakeAuth{})
	require.NoError(t, err)

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 1, store.clears)
}

func TestLogin_StoresTokenPair(t *testing.T) {
	store := &memoryStore{}
	auth := &fakeAuth{next: Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}}

	m, err := New(store, auth)
	require.NoError(t, err)

	user, err := m.Login(context.Background(), "test@example.com", "password123")
	require.NoError(t, err)

	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, auth.next, store.tokens)
	assert.Equal(t, "access-1", m.AccessToken())
}

func TestLogin_StoreFailureLeavesNoSession(t *testing.T) {
	store := &memoryStore{failSet: true}
	auth := &fakeAuth{next: Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}}

	m, err := New(store, auth)
	require.NoError(t, err)

	_, err = m.Login(context.Background(), "test@example.com", "password123")
	require.Error(t, err)

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, Tokens{}, store.tokens)
}

func TestRefresh_ConcurrentCallersShareOneRefresh(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "old", RefreshToken: "refresh-1"}}
	auth := &fakeAuth{
		release: make(chan struct{}),
		next:    Tokens{AccessToken: "new", RefreshToken: "refresh-2"},
	}

	m, err := New(store, auth)
	require.NoError(t, err)

	const callers = 10
	var started, finished sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	started.Add(callers)
	finished.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer finished.Done()
			started.Done()
			results[i], errs[i] = m.Refresh(context.Background())
		}(i)
	}

	started.Wait()
	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(auth.release)
	finished.Wait()

	assert.Equal(t, int32(1), auth.refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new", results[i])
	}
	assert.Equal(t, Tokens{AccessToken: "new", RefreshToken: "refresh-2"}, store.tokens)
	assert.Equal(t, 1, store.sets)
}

func TestRefresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "old", RefreshToken: "refresh-1"}}
	auth := &fakeAuth{next: Tokens{AccessToken: "new"}}

	m, err := New(store, auth)
	require.NoError(t, err)

	token, err := m.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "new", token)
	assert.Equal(t, "refresh-1", store.tokens.RefreshToken)
}

func TestRefresh_NoRefreshTokenEndsSession(t *testing.T) {
	store := &memoryStore{}
	nav := &recordingNavigator{}

	m, err := New(store, &fakeAuth{}, WithNavigator(nav))
	require.NoError(t, err)

	_, err = m.Refresh(context.Background())

	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, []Route{RouteLogin}, nav.Routes())
	assert.Equal(t, 1, store.clears)
}

func TestRefresh_RejectedRefreshClearsBothTokens(t *testing.T) {
	rejection := errors.New("refresh token revoked")
	store := &memoryStore{tokens: Tokens{AccessToken: "old", RefreshToken: "refresh-1"}}
	nav := &recordingNavigator{}

	m, err := New(store, &fakeAuth{refreshErr: rejection}, WithNavigator(nav))
	require.NoError(t, err)

	_, err = m.Refresh(context.Background())

	assert.ErrorIs(t, err, rejection)
	assert.Equal(t, Tokens{}, store.tokens)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, []Route{RouteLogin}, nav.Routes())
}

func TestRefresh_CancelledWaiterDoesNotCancelRefresh(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "old", RefreshToken: "refresh-1"}}
	auth := &fakeAuth{
		release: make(chan struct{}),
		next:    Tokens{AccessToken: "new", RefreshToken: "refresh-2"},
	}

	m, err := New(store, auth)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := m.Refresh(ctx)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(auth.release)
	require.Eventually(t, func() bool { return m.AccessToken() == "new" }, time.Second, time.Millisecond)
}

func TestRefresh_LogoutDuringRefreshDiscardsTokens(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "old", RefreshToken: "refresh-1"}}
	auth := &fakeAuth{
		release: make(chan struct{}),
		next:    Tokens{AccessToken: "new", RefreshToken: "refresh-2"},
	}

	m, err := New(store, auth)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, m.Logout(context.Background()))
	close(auth.release)

	assert.ErrorIs(t, <-errCh, ErrNotAuthenticated)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, Tokens{}, m.Tokens())
	got, err := store.GetTokens()
	require.NoError(t, err)
	assert.Equal(t, Tokens{}, got)
}

func TestRefresh_LoginDuringRefreshKeepsNewSession(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "old", RefreshToken: "refresh-1"}}
	auth := &fakeAuth{
		release: make(chan struct{}),
		next:    Tokens{AccessToken: "login-a", RefreshToken: "login-r"},
	}

	m, err := New(store, auth)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	_, err = m.Login(context.Background(), "test@example.com", "secret")
	require.NoError(t, err)
	close(auth.release)

	assert.ErrorIs(t, <-errCh, ErrNotAuthenticated)
	assert.Equal(t, Tokens{AccessToken: "login-a", RefreshToken: "login-r"}, m.Tokens())
	assert.Equal(t, 1, store.sets)
}

func TestLogout_ClearsEvenWhenRemoteFails(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a", RefreshToken: "r"}}
	auth := &fakeAuth{logoutErr: errors.New("connection refused")}
	nav := &recordingNavigator{}

	m, err := New(store, auth, WithNavigator(nav))
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, int32(1), auth.logoutCalls.Load())
	assert.Equal(t, Tokens{}, store.tokens)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, []Route{RouteLogin}, nav.Routes())
}

func TestLogout_WithoutSessionSkipsRemoteCall(t *testing.T) {
	auth := &fakeAuth{}

	m, err := New(&memoryStore{}, auth)
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, int32(0), auth.logoutCalls.Load())
}

func TestIsTokenExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		access  string
		expired bool
	}{
		{name: "no token", access: "", expired: true},
		{name: "garbage token", access: "not-a-jwt", expired: true},
		{name: "future expiry", access: accessTokenExpiringAt(t, now.Add(time.Hour)), expired: false},
		{name: "past expiry", access: accessTokenExpiringAt(t, now.Add(-time.Second)), expired: true},
		{name: "no exp claim", access: signToken(t, jwt.MapClaims{"sub": "u"}), expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			if tt.access != "" {
				store.tokens = Tokens{AccessToken: tt.access, RefreshToken: "r"}
			}
			m, err := New(store, &fakeAuth{}, WithClock(func() time.Time { return now }))
			require.NoError(t, err)

			assert.Equal(t, tt.expired, m.IsTokenExpired())
		})
	}
}

func TestCurrentUser_FromClaims(t *testing.T) {
	access := signToken(t, jwt.MapClaims{
		"user_id": "legacy-id",
		"email":   "ada@example.com",
		"name":    "Ada",
		"role":    "clinician",
	})
	m, err := New(&memoryStore{tokens: Tokens{AccessToken: access, RefreshToken: "r"}}, &fakeAuth{})
	require.NoError(t, err)

	user, ok := m.CurrentUser()
	require.True(t, ok)

	assert.Equal(t, "legacy-id", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "clinician", m.Role())
}

func TestRequireAuth(t *testing.T) {
	now := time.Now()
	valid := accessTokenExpiringAt(t, now.Add(time.Hour))
	expired := accessTokenExpiringAt(t, now.Add(-time.Hour))

	tests := []struct {
		name    string
		access  string
		route   Route
		wantErr bool
	}{
		{name: "public route without session", route: RouteRegister},
		{name: "protected route without session", route: RouteTriage, wantErr: true},
		{name: "protected route with expired token", access: expired, route: RouteClinics, wantErr: true},
		{name: "protected route with valid token", access: valid, route: RouteDashboard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			if tt.access != "" {
				store.tokens = Tokens{AccessToken: tt.access, RefreshToken: "r"}
			}
			nav := &recordingNavigator{}
			m, err := New(store, &fakeAuth{}, WithNavigator(nav))
			require.NoError(t, err)

			err = m.RequireAuth(tt.route)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotAuthenticated)
				assert.Equal(t, []Route{RouteLogin}, nav.Routes())
			} else {
				assert.NoError(t, err)
				assert.Empty(t, nav.Routes())
			}
		})
	}
}

func TestResolve(t *testing.T) {
	anonymous, err := New(&memoryStore{}, &fakeAuth{})
	require.NoError(t, err)
	signedIn, err := New(&memoryStore{tokens: Tokens{AccessToken: "a", RefreshToken: "r"}}, &fakeAuth{})
	require.NoError(t, err)

	assert.Equal(t, RouteLogin, anonymous.Resolve(RouteRoot))
	assert.Equal(t, RouteLogin, anonymous.Resolve(RouteProfile))
	assert.Equal(t, RouteLogin, anonymous.Resolve(RouteLogin))
	assert.Equal(t, RouteRegister, anonymous.Resolve(RouteRegister))

	assert.Equal(t, RouteDashboard, signedIn.Resolve(RouteRoot))
	assert.Equal(t, RouteDashboard, signedIn.Resolve(RouteLogin))
	assert.Equal(t, RouteTriage, signedIn.Resolve(RouteTriage))
}
