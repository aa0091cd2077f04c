package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoRefreshToken is returned by Refresh when no refresh token is stored
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrNotAuthenticated is returned by RequireAuth when the session is missing or expired
	ErrNotAuthenticated = errors.New("not authenticated. Please run 'healthpal login' first")
)

// Tokens is the access/refresh token pair owned by the Manager
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Complete reports whether both tokens are present
func (t Tokens) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// TokenStore persists the token pair between runs.
// SetTokens must write both tokens or neither.
type TokenStore interface {
	GetTokens() (Tokens, error)
	SetTokens(tokens Tokens) error
	Clear() error
}

// User is the authenticated account as returned by the login endpoint
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// LoginResult is the response of a successful login
type LoginResult struct {
	User   User
	Tokens Tokens
}

// Authenticator performs the remote auth calls. Implementations must not go
// through the refreshing client, otherwise a failed refresh would recurse.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
	Logout(ctx context.Context, accessToken string) error
}

// Route names a client entry point the session can send the user to
type Route string

const (
	RouteLogin     Route = "login"
	RouteRegister  Route = "register"
	RouteRoot      Route = "root"
	RouteDashboard Route = "dashboard"
	RouteTriage    Route = "triage"
	RouteClinics   Route = "clinics"
	RouteProfile   Route = "profile"
)

var protectedRoutes = map[Route]bool{
	RouteDashboard: true,
	RouteTriage:    true,
	RouteClinics:   true,
	RouteProfile:   true,
}

// IsProtected reports whether the route requires an authenticated session
func (r Route) IsProtected() bool {
	return protectedRoutes[r]
}

// Navigator moves the user to another entry point
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route Route)

// Navigate calls f(route)
func (f NavigatorFunc) Navigate(route Route) {
	f(route)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(Route) {}

// DemoCredentials are the fixed credentials used by DemoLogin
var DemoCredentials = struct {
	Email    string
	Password string
}{
	Email:    "demo@healthpal.ng",
	Password: "demo123",
}

const (
	defaultRefreshTimeout = 10 * time.Second
	defaultLogoutTimeout  = 5 * time.Second
)
