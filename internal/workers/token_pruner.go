package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/healthpal-ng/healthpal/internal/models"
)

// PruneRefreshTokens deletes refresh tokens that expired before now or were
// revoked. A deleted token is rejected the same way as a revoked one.
func PruneRefreshTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", now).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// TokenPruner runs PruneRefreshTokens on a cron schedule
type TokenPruner struct {
	cron   *cron.Cron
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewTokenPruner creates a pruner for the standard 5-field cron expression
// (minute hour day-of-month month day-of-week)
func NewTokenPruner(db *gorm.DB, schedule string, logger zerolog.Logger) (*TokenPruner, error) {
	p := &TokenPruner{
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start prunes once immediately, then on every scheduled tick
func (p *TokenPruner) Start() {
	p.run()
	p.cron.Start()
}

// Stop stops the schedule and waits for a running prune to finish
func (p *TokenPruner) Stop() {
	<-p.cron.Stop().Done()
}

// Next returns when the next scheduled prune runs
func (p *TokenPruner) Next() time.Time {
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (p *TokenPruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := PruneRefreshTokens(ctx, p.db, p.now())
	if err != nil {
		p.logger.Error().Err(err).Msg("Refresh token cleanup failed")
		return
	}
	if n > 0 {
		p.logger.Info().Int64("deleted", n).Msg("Pruned refresh tokens")
		return
	}
	p.logger.Debug().Msg("No refresh tokens to prune")
}
