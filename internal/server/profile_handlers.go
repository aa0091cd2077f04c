package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthpal-ng/healthpal/internal/auth"
	"github.com/healthpal-ng/healthpal/internal/forms"
	"github.com/healthpal-ng/healthpal/internal/models"
)

// ProfileUpdateRequest holds the editable profile fields. Empty fields keep
// their stored value.
type ProfileUpdateRequest struct {
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Location    string `json:"location"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) currentUser(c *gin.Context) (*models.User, bool) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	var user models.User
	if err := models.FindByID(s.db.WithContext(c.Request.Context()), sessionData.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return &user, true
}

// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Router /api/v1/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Update current user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ProfileUpdateRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/me [put]
func (s *Server) updateCurrentUser(c *gin.Context) {
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	form := forms.ProfileForm{
		Username:    pick(req.Username, user.Username),
		FullName:    pick(req.FullName, user.FullName),
		PhoneNumber: pick(req.PhoneNumber, user.PhoneNumber),
		Age:         user.Age,
		Gender:      pick(req.Gender, user.Gender),
		Location:    pick(req.Location, user.Location),
	}
	if req.Age != 0 {
		form.Age = req.Age
	}
	if err := forms.Validate(form); err != nil {
		respondValidation(c, err)
		return
	}

	db := s.db.WithContext(c.Request.Context())

	if form.Username != user.Username {
		var taken int64
		if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", form.Username, user.ID).Count(&taken).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to check username")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if taken > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken", "code": "USERNAME_TAKEN"})
			return
		}
	}

	updates := map[string]interface{}{
		"username":     form.Username,
		"full_name":    form.FullName,
		"phone_number": form.PhoneNumber,
		"age":          form.Age,
		"gender":       form.Gender,
		"location":     form.Location,
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Profile updated")
	c.JSON(http.StatusOK, user)
}

// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/change-password [post]
func (s *Server) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form := forms.PasswordChangeForm{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.NewPassword,
	}
	if err := forms.Validate(form); err != nil {
		respondValidation(c, err)
		return
	}

	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	// 400 rather than 401: a 401 would make the client refresh and retry
	if err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect", "code": "INVALID_PASSWORD"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}

	if err := s.db.WithContext(c.Request.Context()).Model(user).Update("password_hash", hash).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to change password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password changed")
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

func pick(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
