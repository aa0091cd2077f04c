package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cliauth "github.com/healthpal-ng/healthpal/internal/cli/auth"
	"github.com/healthpal-ng/healthpal/internal/cli/client"
	"github.com/healthpal-ng/healthpal/internal/config"
	"github.com/healthpal-ng/healthpal/internal/database"
	"github.com/healthpal-ng/healthpal/internal/session"
	"github.com/healthpal-ng/healthpal/internal/triage"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:               "0",
			AllowOrigins:       []string{"http://localhost:3000"},
			LoginRatePerMinute: 100,
		},
		Database: config.DatabaseConfig{URL: database.MemoryDSN},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
			SeedDemoUser:    true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()

	db, err := database.Open(cfg.Database.URL, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	srv, err := New(cfg, db, zerolog.Nop(), "test")
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func loginDemo(t *testing.T, baseURL string) (access, refresh string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{
		"email":    session.DemoCredentials.Email,
		"password": session.DemoCredentials.Password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestHealthCheck(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "online", body["status"])
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    session.DemoCredentials.Email,
		"password": session.DemoCredentials.Password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, session.DemoCredentials.Email, user["email"])
	assert.Equal(t, "Demo User", user["name"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    session.DemoCredentials.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["error"])
}

func TestLogin_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.LoginRatePerMinute = 2
	_, ts := newTestServer(t, cfg)

	creds := map[string]string{"email": "nobody@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestRefresh_RotatesToken(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	_, refresh := loginDemo(t, ts.URL)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEqual(t, refresh, body["refresh_token"])

	// The presented token is single use
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", body["code"])
}

func TestRefresh_Expired(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())
	_, refresh := loginDemo(t, ts.URL)

	srv.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_RevokesRefreshTokens(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	access, refresh := loginDemo(t, ts.URL)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutes_RequireBearer(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing authorization header", body["error"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestRegister(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	valid := map[string]interface{}{
		"email":            "ada@example.com",
		"password":         "Secret123",
		"confirm_password": "Secret123",
		"username":         "ada_l",
		"fullName":         "Ada Lovelace",
		"phoneNumber":      "+234 803 123 4567",
		"age":              36,
		"gender":           "female",
		"location":         "Ibadan",
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", valid)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ada@example.com", body["user"].(map[string]interface{})["email"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", valid)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "USER_EXISTS", body["code"])

	invalid := map[string]interface{}{}
	for k, v := range valid {
		invalid[k] = v
	}
	invalid["email"] = "other@example.com"
	invalid["username"] = "other"
	invalid["confirm_password"] = "Secret124"
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", invalid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Passwords don't match", body["error"])

	// The new account can sign in
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "Secret123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProfile_UpdateAndChangePassword(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	access, _ := loginDemo(t, ts.URL)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "demo_user", body["username"])

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/api/v1/auth/me", access, map[string]interface{}{
		"location": "Abuja",
		"age":      40,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Abuja", body["location"])
	assert.Equal(t, float64(40), body["age"])
	assert.Equal(t, "Demo User", body["full_name"])

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/api/v1/auth/me", access, map[string]interface{}{"age": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You must be at least 13 years old", body["error"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/change-password", access, map[string]string{
		"current_password": "wrong",
		"new_password":     "Better123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_PASSWORD", body["code"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/change-password", access, map[string]string{
		"current_password": session.DemoCredentials.Password,
		"new_password":     "Better123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": session.DemoCredentials.Email, "password": "Better123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Headache. Pain level: 3/10", severityLow},
		{"Headache. Pain level: 5/10", severityMedium},
		{"Cough. Pain level: 2/10. Temperature: 38.5°C", severityMedium},
		{"Stomach ache. Pain level: 9/10", severityHigh},
		{"Tight chest. Pain level: 2/10. Emergency symptoms: chest pain", severityHigh},
		{"just tired", severityLow},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyQuery(tt.query))
		})
	}
}

func TestAnalyze(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/triage/triage", "", triage.AnalyzeRequest{
		Query:       "Fever. Pain level: 4/10. Temperature: 39°C",
		UserID:      triage.AnonymousUserID,
		InputMethod: "text",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, severityMedium, data["severity"])
	assert.NotEmpty(t, data["recommendations"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/triage/triage", "", triage.AnalyzeRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmergencyClinics(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/clinics/emergency?lat=6.5244&lng=7.5112&radius=10&emergency_only=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/clinics/emergency?lat=abc&lng=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// The CLI session stack against the real backend: a rejected access token is
// refreshed once and the request retried with the rotated pair.
func TestClientSession_RefreshesAgainstBackend(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	baseURL := ts.URL + "/api/v1"
	ctx := context.Background()

	store := cliauth.NewMemoryStore()
	authAPI := client.NewAuthAPI(baseURL)
	manager, err := session.New(store, authAPI)
	require.NoError(t, err)

	user, err := manager.DemoLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Demo User", user.Name)
	assert.False(t, manager.IsTokenExpired())

	pair := manager.Tokens()
	require.NoError(t, store.SetTokens(session.Tokens{AccessToken: "stale", RefreshToken: pair.RefreshToken}))
	manager, err = session.New(store, authAPI)
	require.NoError(t, err)

	api := client.New(baseURL, manager)
	profile, err := api.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.DemoCredentials.Email, profile.Email)

	rotated := manager.Tokens()
	assert.NotEqual(t, "stale", rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	require.NoError(t, manager.Logout(ctx))
	assert.False(t, manager.IsAuthenticated())

	// The backend revoked the rotated refresh token on logout
	_, err = authAPI.Refresh(ctx, rotated.RefreshToken)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
}
