// Package server is the HealthPal demo backend. It serves the auth, triage
// and clinic endpoints the CLI talks to, backed by SQLite.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/healthpal-ng/healthpal/internal/auth"
	"github.com/healthpal-ng/healthpal/internal/config"
	"github.com/healthpal-ng/healthpal/internal/models"
	"github.com/healthpal-ng/healthpal/internal/session"
)

// Server represents the HTTP server
type Server struct {
	router       *gin.Engine
	db           *gorm.DB
	config       *config.Config
	logger       zerolog.Logger
	issuer       *auth.Issuer
	loginLimiter *ipLimiter
	now          func() time.Time
	version      string
}

// New creates a server on an open database. It migrates the schema and
// seeds the demo account when configured.
func New(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger, version string) (*Server, error) {
	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	perMinute := cfg.Server.LoginRatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	server := &Server{
		db:           db,
		config:       cfg,
		logger:       zlog,
		issuer:       issuer,
		loginLimiter: newIPLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		now:          time.Now,
		version:      version,
	}

	if cfg.Auth.SeedDemoUser {
		if err := server.seedDemoUser(); err != nil {
			return nil, err
		}
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// seedDemoUser creates the shared demo account if it does not exist
func (s *Server) seedDemoUser() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", session.DemoCredentials.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up demo user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(session.DemoCredentials.Password)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        session.DemoCredentials.Email,
		PasswordHash: hash,
		Username:     "demo_user",
		FullName:     "Demo User",
		PhoneNumber:  "+234 800 000 0000",
		Gender:       "prefer_not_to_say",
		Location:     "Lagos, Nigeria",
		Role:         models.RolePatient,
	}
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create demo user: %w", err)
	}

	s.logger.Info().Str("email", user.Email).Msg("Demo user created")
	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")

	// Public endpoints
	v1.POST("/auth/login", s.rateLimitMiddleware(s.loginLimiter), s.login)
	v1.POST("/auth/register", s.rateLimitMiddleware(s.loginLimiter), s.register)
	v1.POST("/auth/refresh", s.refresh)
	v1.POST("/triage/triage", s.analyze)
	v1.GET("/clinics/emergency", s.emergencyClinics)

	// Authenticated API routes (JWT required)
	api := v1.Group("")
	api.Use(s.jwtAuthMiddleware())
	{
		api.POST("/auth/logout", s.logout)
		api.GET("/auth/me", s.getCurrentUser)
		api.PUT("/auth/me", s.updateCurrentUser)
		api.POST("/auth/change-password", s.changePassword)
	}
}

// Handler returns the HTTP handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "healthpal-api",
		"version":   s.version,
	})
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
