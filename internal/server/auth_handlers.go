package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/healthpal-ng/healthpal/internal/auth"
	"github.com/healthpal-ng/healthpal/internal/forms"
	"github.com/healthpal-ng/healthpal/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserDetail is the user as carried in login and register responses
type UserDetail struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// TokenResponse carries a newly issued token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	User *UserDetail `json:"user"`
	TokenResponse
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Username        string `json:"username"`
	FullName        string `json:"fullName"`
	PhoneNumber     string `json:"phoneNumber"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	Location        string `json:"location"`
}

func userDetail(u *models.User) *UserDetail {
	return &UserDetail{ID: u.ID, Email: u.Email, Name: u.FullName, Role: u.Role}
}

// respondValidation writes the first message as the error and every field below it
func respondValidation(c *gin.Context, err error) {
	var verrs forms.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   verrs[0].Message,
			"code":    "VALIDATION_ERROR",
			"details": verrs,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
}

// issueTokens signs an access token and stores a new refresh token for user
func (s *Server) issueTokens(tx *gorm.DB, user *models.User) (*TokenResponse, error) {
	access, err := s.issuer.GenerateToken(user.ID, user.Email, user.FullName, user.Role)
	if err != nil {
		return nil, err
	}

	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashRefreshToken(refresh),
		ExpiresAt: s.now().Add(s.config.Auth.RefreshTokenTTL),
	}
	if err := tx.Omit("User").Create(record).Error; err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
	}, nil
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := s.db.WithContext(c.Request.Context())

	// Find user by email
	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Verify password
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	tokens, err := s.issueTokens(db, &user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{
		User:          userDetail(&user),
		TokenResponse: *tokens,
	})
}

// @Summary Refresh tokens
// @Description Exchanges a refresh token for a new token pair. The old refresh token is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh request"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/refresh [post]
func (s *Server) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tokens *TokenResponse
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		if err := tx.Preload("User").Where("token_hash = ?", auth.HashRefreshToken(req.RefreshToken)).First(&record).Error; err != nil {
			return err
		}

		now := s.now()
		if !record.Usable(now) {
			return errRefreshUnusable
		}

		// Rotate: the presented token can be used once
		if err := tx.Model(&record).Update("revoked_at", now).Error; err != nil {
			return err
		}

		var err error
		tokens, err = s.issueTokens(tx, &record.User)
		return err
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, tokens)
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, errRefreshUnusable):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token", "code": "INVALID_REFRESH_TOKEN"})
	default:
		s.logger.Error().Err(err).Msg("Failed to refresh tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

var errRefreshUnusable = errors.New("refresh token expired or revoked")

// @Summary Logout
// @Description Revokes every active refresh token of the current user
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	result := s.db.WithContext(c.Request.Context()).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", sessionData.UserID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to revoke refresh tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("user_id", sessionData.UserID).Int64("revoked", result.RowsAffected).Msg("User logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// @Summary Register
// @Description Creates a patient account. The client logs in afterwards.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form := forms.RegisterForm{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Username:        req.Username,
		FullName:        req.FullName,
		PhoneNumber:     req.PhoneNumber,
		Age:             req.Age,
		Gender:          req.Gender,
		Location:        req.Location,
	}
	if err := forms.Validate(form); err != nil {
		respondValidation(c, err)
		return
	}

	db := s.db.WithContext(c.Request.Context())

	var count int64
	if err := db.Model(&models.User{}).Where("email = ? OR username = ?", req.Email, req.Username).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email or username already exists", "code": "USER_EXISTS"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Username:     req.Username,
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Age:          req.Age,
		Gender:       req.Gender,
		Location:     req.Location,
		Role:         models.RolePatient,
	}
	if err := db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	c.JSON(http.StatusCreated, gin.H{"user": userDetail(user), "created_at": user.CreatedAt.Format(time.RFC3339)})
}
