// Package history keeps the user's past triage results on disk so the
// dashboard can list recent assessments.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/healthpal-ng/healthpal/internal/models"
	"github.com/healthpal-ng/healthpal/internal/triage"
)

// ErrNotFound is returned when an assessment does not exist
var ErrNotFound = errors.New("assessment not found")

// Assessment is a stored triage result
type Assessment struct {
	models.BaseModel
	UserID             string         `json:"user_id" gorm:"index;not null"`
	UrgencyLevel       triage.Urgency `json:"urgency_level" gorm:"not null"`
	PrimarySymptom     string         `json:"primary_symptom" gorm:"not null"`
	Recommendation     string         `json:"recommendation" gorm:"type:text"`
	Symptoms           []string       `json:"symptoms" gorm:"serializer:json"`
	PossibleConditions []string       `json:"possible_conditions" gorm:"serializer:json"`
	NextSteps          []string       `json:"next_steps" gorm:"serializer:json"`
	EstimatedWaitTime  string         `json:"estimated_wait_time"`
	Source             triage.Source  `json:"source"`
}

// Store persists assessments with gorm
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and returns a store
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Assessment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// Save records a result for the user
func (s *Store) Save(ctx context.Context, userID string, r *triage.Result) (*Assessment, error) {
	primary := ""
	if len(r.Symptoms) > 0 {
		primary = r.Symptoms[0]
	}

	a := &Assessment{
		UserID:             userID,
		UrgencyLevel:       r.UrgencyLevel,
		PrimarySymptom:     primary,
		Recommendation:     r.Recommendation,
		Symptoms:           r.Symptoms,
		PossibleConditions: r.PossibleConditions,
		NextSteps:          r.NextSteps,
		EstimatedWaitTime:  r.EstimatedWaitTime,
		Source:             r.Source,
	}

	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("failed to save assessment: %w", err)
	}
	return a, nil
}

// Recent returns the newest assessments of the user, newest first
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Assessment, error) {
	var out []Assessment
	// ULIDs sort by creation time
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return out, nil
}

// Get returns one assessment of the user
func (s *Store) Get(ctx context.Context, userID, id string) (*Assessment, error) {
	var a Assessment
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	return &a, nil
}

// Delete removes one assessment of the user
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Assessment{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete assessment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every assessment of the user and returns how many were removed
func (s *Store) Clear(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Assessment{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear history: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Summary aggregates a user's history for the dashboard
type Summary struct {
	Total     int64
	ByUrgency map[triage.Urgency]int64
	LastAt    *time.Time
}

// Summarize counts the user's assessments per urgency tier
func (s *Store) Summarize(ctx context.Context, userID string) (*Summary, error) {
	var rows []struct {
		UrgencyLevel triage.Urgency
		Count        int64
	}
	err := s.db.WithContext(ctx).Model(&Assessment{}).
		Select("urgency_level, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("urgency_level").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize history: %w", err)
	}

	summary := &Summary{ByUrgency: make(map[triage.Urgency]int64)}
	for _, row := range rows {
		summary.ByUrgency[row.UrgencyLevel] = row.Count
		summary.Total += row.Count
	}

	recent, err := s.Recent(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		t := recent[0].CreatedAt
		summary.LastAt = &t
	}

	return summary, nil
}
