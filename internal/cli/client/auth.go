package client

import (
	"context"
	"net/http"

	"github.com/healthpal-ng/healthpal/internal/session"
)

// AuthAPI performs the login, refresh and logout calls. It never goes through
// the refreshing path, so a rejected refresh cannot recurse.
type AuthAPI struct {
	c *Client
}

// NewAuthAPI creates the unauthenticated auth endpoints client
func NewAuthAPI(baseURL string, opts ...Option) *AuthAPI {
	return &AuthAPI{c: New(baseURL, nil, opts...)}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	User         session.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// RefreshRequest represents the refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents the refresh response
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Username        string `json:"username"`
	FullName        string `json:"fullName"`
	PhoneNumber     string `json:"phoneNumber"`
	Age             int    `json:"age,omitempty"`
	Gender          string `json:"gender"`
	Location        string `json:"location"`
}

// Login authenticates the user and returns the token pair
func (a *AuthAPI) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	var resp LoginResponse
	if err := a.c.Post(ctx, "/auth/login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, &APIError{Message: "login response is missing tokens", Status: http.StatusOK, Code: CodeInvalidResponse}
	}

	return &session.LoginResult{
		User: resp.User,
		Tokens: session.Tokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
		},
	}, nil
}

// Refresh exchanges the refresh token for a new token pair. The refresh
// token is empty when the backend does not rotate it.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	var resp RefreshResponse
	if err := a.c.Post(ctx, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return session.Tokens{}, err
	}

	if resp.AccessToken == "" {
		return session.Tokens{}, &APIError{Message: "refresh response is missing access token", Status: http.StatusOK, Code: CodeInvalidResponse}
	}

	return session.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

// Logout tells the backend the access token is no longer used
func (a *AuthAPI) Logout(ctx context.Context, accessToken string) error {
	resp, err := a.c.send(ctx, http.MethodPost, "/auth/logout", nil, accessToken)
	if err != nil {
		return err
	}
	return a.c.handle(resp, nil)
}

// Register creates a new account. The user logs in afterwards.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*session.User, error) {
	var resp struct {
		User *session.User `json:"user"`
	}
	if err := a.c.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return &session.User{Email: req.Email, Name: req.FullName}, nil
	}
	return resp.User, nil
}
