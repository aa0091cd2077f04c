// Package triage collects symptom intake, classifies urgency and runs the
// analysis against the triage backend or locally in demo mode.
package triage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

const (
	analyzePath = "/triage/triage"

	// AnonymousUserID is sent as user_id; the backend does not link analyses to accounts
	AnonymousUserID = "anonymous_user"
)

// Poster sends a JSON request and decodes the response. *client.Client implements it.
type Poster interface {
	Post(ctx context.Context, path string, body, out interface{}) error
}

// ModeSource tells whether mock data replaces backend calls. *demo.Service implements it.
type ModeSource interface {
	UseMockData() bool
}

// Stage is one step of the analysis progress display
type Stage struct {
	Name     string
	Duration time.Duration
}

// DefaultStages are shown while an analysis runs
var DefaultStages = []Stage{
	{Name: "Validating symptoms", Duration: 500 * time.Millisecond},
	{Name: "Analyzing with AI", Duration: 1500 * time.Millisecond},
	{Name: "Generating recommendations", Duration: 800 * time.Millisecond},
	{Name: "Finding nearby clinics", Duration: 700 * time.Millisecond},
}

// StageComplete is reported once all stages are done
const StageComplete = "Complete"

// ProgressFunc receives the stage name and the overall percentage
type ProgressFunc func(stage string, percent int)

// AnalyzeRequest is the body of the triage endpoint
type AnalyzeRequest struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id"`
	InputMethod string `json:"input_method"`
}

// AnalyzeResponse is the triage endpoint response
type AnalyzeResponse struct {
	Data struct {
		Response        string   `json:"response"`
		Confidence      float64  `json:"confidence"`
		Recommendations []string `json:"recommendations"`
		Severity        string   `json:"severity,omitempty"`
	} `json:"data"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service runs triage analyses
type Service struct {
	api    Poster
	mode   ModeSource
	stages []Stage
	logger zerolog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithModeSource sets where the demo mode switch is read from
func WithModeSource(m ModeSource) Option {
	return func(s *Service) {
		s.mode = m
	}
}

// WithStages replaces the progress stages
func WithStages(stages []Stage) Option {
	return func(s *Service) {
		s.stages = stages
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a triage service that posts through api
func NewService(api Poster, opts ...Option) *Service {
	s := &Service{
		api:    api,
		stages: DefaultStages,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs the analysis. In demo mode it is computed locally; otherwise
// the composite query is sent to the backend and urgency is taken from the
// local rule table.
func (s *Service) Analyze(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("triage request is required")
	}

	if s.mode != nil && s.mode.UseMockData() {
		s.logger.Debug().Msg("Demo mode enabled, analyzing locally")
		return DemoAnalyze(req), nil
	}

	body := AnalyzeRequest{
		Query:       CompositeQuery(req),
		UserID:      AnonymousUserID,
		InputMethod: "text",
	}

	var resp AnalyzeResponse
	if err := s.api.Post(ctx, analyzePath, body, &resp); err != nil {
		s.logger.Error().Err(err).Msg("Triage backend request failed")
		return nil, fmt.Errorf("triage analysis failed: %w", err)
	}
	if !resp.Success && resp.Message != "" {
		return nil, fmt.Errorf("triage analysis failed: %s", resp.Message)
	}

	urgency := AssessUrgency(req)
	guidance := LiveGuidance(urgency)

	s.logger.Info().
		Str("urgency", string(urgency)).
		Float64("confidence", resp.Data.Confidence).
		Msg("Triage analysis complete")

	return &Result{
		UrgencyLevel:       urgency,
		Recommendation:     resp.Data.Response,
		Symptoms:           append([]string{req.PrimarySymptom}, req.AdditionalSymptoms...),
		PossibleConditions: []string{},
		NextSteps:          guidance.NextSteps,
		Disclaimer:         Disclaimer,
		EstimatedWaitTime:  guidance.EstimatedWaitTime,
		NearbyClinic:       &DefaultNearbyClinic,
		Confidence:         resp.Data.Confidence,
		Severity:           resp.Data.Severity,
		Source:             SourceLive,
	}, nil
}

// AnalyzeWithProgress walks the progress stages, reporting each, then runs
// Analyze. Cancelling ctx stops the walk early.
func (s *Service) AnalyzeWithProgress(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error) {
	var total time.Duration
	for _, stage := range s.stages {
		total += stage.Duration
	}

	var elapsed time.Duration
	for _, stage := range s.stages {
		if onProgress != nil {
			onProgress(stage.Name, percent(elapsed, total))
		}
		if err := sleep(ctx, stage.Duration); err != nil {
			return nil, err
		}
		elapsed += stage.Duration
	}

	if onProgress != nil {
		onProgress(StageComplete, 100)
	}
	return s.Analyze(ctx, req)
}

func percent(elapsed, total time.Duration) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(elapsed) / float64(total) * 100))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
