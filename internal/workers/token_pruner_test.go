package workers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/healthpal-ng/healthpal/internal/database"
	"github.com/healthpal-ng/healthpal/internal/models"
)

func setupDB(t *testing.T) (*gorm.DB, *models.User) {
	t.Helper()

	db, err := database.Open(database.MemoryDSN, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, models.AutoMigrate(db))

	user := &models.User{Email: "ada@example.com", PasswordHash: "x", Username: "ada"}
	require.NoError(t, db.Create(user).Error)
	return db, user
}

func addToken(t *testing.T, db *gorm.DB, userID, hash string, expiresAt time.Time, revokedAt *time.Time) {
	t.Helper()
	token := &models.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: expiresAt, RevokedAt: revokedAt}
	require.NoError(t, db.Omit("User").Create(token).Error)
}

func TestPruneRefreshTokens(t *testing.T) {
	db, user := setupDB(t)
	now := time.Now()
	revoked := now.Add(-time.Minute)

	addToken(t, db, user.ID, "live", now.Add(time.Hour), nil)
	addToken(t, db, user.ID, "expired", now.Add(-time.Hour), nil)
	addToken(t, db, user.ID, "revoked", now.Add(time.Hour), &revoked)

	n, err := PruneRefreshTokens(context.Background(), db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var left []models.RefreshToken
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "live", left[0].TokenHash)

	n, err = PruneRefreshTokens(context.Background(), db, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewTokenPruner_InvalidSchedule(t *testing.T) {
	db, _ := setupDB(t)

	_, err := NewTokenPruner(db, "every now and then", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prune schedule")

	// Seconds fields are not accepted
	_, err = NewTokenPruner(db, "0 */15 * * * *", zerolog.Nop())
	assert.Error(t, err)
}

func TestTokenPruner_StartPrunesImmediately(t *testing.T) {
	db, user := setupDB(t)
	addToken(t, db, user.ID, "expired", time.Now().Add(-time.Hour), nil)

	p, err := NewTokenPruner(db, "*/15 * * * *", zerolog.Nop())
	require.NoError(t, err)

	p.Start()
	defer p.Stop()

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Zero(t, count)

	next := p.Next()
	assert.True(t, next.After(time.Now()))
	assert.Zero(t, next.Minute()%15)
}
