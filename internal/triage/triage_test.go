package triage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpal-ng/healthpal/internal/demo"
	"github.com/healthpal-ng/healthpal/internal/forms"
)

func validForm() *Form {
	f := NewForm()
	f.Age = "34"
	f.PrimarySymptom = "Throbbing headache behind the eyes"
	f.SymptomDuration = DurationOneToThree
	f.PainLevel = "3"
	return f
}

func temp(t float64) *float64 { return &t }

func TestForm_Validate(t *testing.T) {
	require.NoError(t, validForm().Validate())

	tests := []struct {
		name    string
		mutate  func(*Form)
		field   string
		message string
	}{
		{"missing age", func(f *Form) { f.Age = "" }, "age", "Age is required"},
		{"age out of range", func(f *Form) { f.Age = "130" }, "age", "Age must be between 1 and 120"},
		{"age not a number", func(f *Form) { f.Age = "old" }, "age", "Age must be between 1 and 120"},
		{"short symptom", func(f *Form) { f.PrimarySymptom = "headache" }, "primarySymptom", "Please describe your main symptom in at least 10 characters"},
		{"pain too high", func(f *Form) { f.PainLevel = "11" }, "painLevel", "Pain level must be between 0 and 10"},
		{"bad duration", func(f *Form) { f.SymptomDuration = "forever" }, "symptomDuration", "Please select how long you have had this symptom"},
		{"temperature missing", func(f *Form) { f.HasTemperature = true }, "temperature", "Please enter your temperature"},
		{"temperature not numeric", func(f *Form) { f.HasTemperature, f.Temperature = true, "hot" }, "temperature", "Temperature must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(f)

			err := f.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.message, err.(forms.ValidationErrors).For(tt.field))
		})
	}
}

func TestForm_ValidateStep(t *testing.T) {
	f := NewForm()

	// Step 1 only reports the missing age, not the empty symptom of step 2
	err := f.ValidateStep(1)
	require.Error(t, err)
	verrs := err.(forms.ValidationErrors)
	require.Len(t, verrs, 1)
	assert.Equal(t, "age", verrs[0].Field)

	assert.NoError(t, f.ValidateStep(5))
}

func TestForm_ToRequest(t *testing.T) {
	f := validForm()
	f.HasTemperature = true
	f.Temperature = "38.4"
	f.AdditionalSymptoms = []string{"Nausea"}

	req, err := f.ToRequest()
	require.NoError(t, err)

	assert.Equal(t, 34, req.Age)
	assert.Equal(t, 3, req.PainLevel)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 38.4, *req.Temperature)
	assert.Equal(t, []string{"Nausea"}, req.AdditionalSymptoms)

	f.Age = "0"
	_, err = f.ToRequest()
	assert.Error(t, err)
}

func TestFormFromScenario(t *testing.T) {
	scenario, ok := demo.FindScenario("chest-pain")
	require.True(t, ok)

	f := FormFromScenario(scenario)
	assert.True(t, f.HasChestPain)
	assert.True(t, f.HasDifficultyBreathing)
	assert.Equal(t, "8", f.PainLevel)
	assert.Equal(t, "35", f.Age)
	require.NoError(t, f.Validate())

	scenario, _ = demo.FindScenario("fever-cough")
	f = FormFromScenario(scenario)
	assert.Equal(t, "4", f.PainLevel)
	assert.True(t, f.HasTemperature)
	assert.Equal(t, "37.8", f.Temperature)
}

func TestAssessUrgency(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want Urgency
	}{
		{"calm", Request{PainLevel: 2}, UrgencyNonUrgent},
		{"moderate pain", Request{PainLevel: 4}, UrgencySemiUrgent},
		{"low fever", Request{PainLevel: 1, HasTemperature: true, Temperature: temp(38)}, UrgencySemiUrgent},
		{"temperature without flag", Request{PainLevel: 1, Temperature: temp(40)}, UrgencyNonUrgent},
		{"high pain", Request{PainLevel: 6}, UrgencyUrgent},
		{"high fever", Request{PainLevel: 0, HasTemperature: true, Temperature: temp(39.2)}, UrgencyUrgent},
		{"severe pain", Request{PainLevel: 8}, UrgencyEmergency},
		{"any indicator", Request{PainLevel: 0, HasSevereHeadache: true}, UrgencyEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessUrgency(&tt.req))
		})
	}
}

func TestUrgency_Ordering(t *testing.T) {
	assert.Greater(t, UrgencyEmergency.Rank(), UrgencyUrgent.Rank())
	assert.Greater(t, UrgencyUrgent.Rank(), UrgencySemiUrgent.Rank())
	assert.Greater(t, UrgencySemiUrgent.Rank(), UrgencyNonUrgent.Rank())

	u, err := ParseUrgency("semi-urgent")
	require.NoError(t, err)
	assert.Equal(t, UrgencySemiUrgent, u)
	_, err = ParseUrgency("critical")
	assert.Error(t, err)
}

func TestDemoAnalyze(t *testing.T) {
	t.Run("headache alone is urgent in demo rules", func(t *testing.T) {
		r := DemoAnalyze(&Request{PrimarySymptom: "Pounding head", PainLevel: 5, HasSevereHeadache: true})
		assert.Equal(t, UrgencyUrgent, r.UrgencyLevel)
		assert.Equal(t, []string{"Tension headache", "Migraine", "Sinus infection"}, r.PossibleConditions)
		assert.Equal(t, SourceDemo, r.Source)
	})

	t.Run("chest pain with breathing trouble", func(t *testing.T) {
		r := DemoAnalyze(&Request{PrimarySymptom: "Sharp chest pain", HasChestPain: true, HasDifficultyBreathing: true})
		assert.Equal(t, UrgencyEmergency, r.UrgencyLevel)
		assert.Equal(t, "Immediate", r.EstimatedWaitTime)
		assert.Equal(t, []string{"Cardiac event", "Pulmonary embolism", "Pneumonia", "Musculoskeletal strain", "Inflammation"}, r.PossibleConditions)
		assert.Equal(t, []string{"Sharp chest pain", "Chest pain", "Difficulty breathing"}, r.Symptoms)
	})

	t.Run("chronic conditions raise to semi-urgent", func(t *testing.T) {
		r := DemoAnalyze(&Request{PrimarySymptom: "Tired all week", HasChronicConditions: true})
		assert.Equal(t, UrgencySemiUrgent, r.UrgencyLevel)
		assert.Empty(t, r.PossibleConditions)
	})

	t.Run("symptoms are deduplicated", func(t *testing.T) {
		r := DemoAnalyze(&Request{PrimarySymptom: "Cough", AdditionalSymptoms: []string{"Cough", "Fatigue"}, HasTemperature: true, Temperature: temp(38.5)})
		assert.Equal(t, []string{"Cough", "Fatigue", "Fever (38.5°C)"}, r.Symptoms)
		assert.Equal(t, UrgencySemiUrgent, r.UrgencyLevel)
	})
}

func TestCompositeQuery(t *testing.T) {
	req := &Request{
		Age:                34,
		Gender:             "female",
		PrimarySymptom:     "Sharp chest pain",
		SymptomDuration:    DurationUnderHour,
		PainLevel:          7,
		AdditionalSymptoms: []string{"Dizziness", "Nausea"},
		HasTemperature:     true,
		Temperature:        temp(38.5),
		CurrentMedications: "Ibuprofen",
		HasAllergies:       true,
		Allergies:          "Penicillin",
		HasChestPain:       true,
	}

	want := "Sharp chest pain. Age: 34, Gender: female. Duration: less than 1 hour. Pain level: 7/10. " +
		"Additional symptoms: Dizziness, Nausea. Temperature: 38.5°C. Current medications: Ibuprofen. " +
		"Allergies: Penicillin. Emergency symptoms: chest pain"
	assert.Equal(t, want, CompositeQuery(req))
}

type fakePoster struct {
	path string
	body AnalyzeRequest
	resp string
	err  error
}

func (p *fakePoster) Post(ctx context.Context, path string, body, out interface{}) error {
	p.path = path
	p.body = body.(AnalyzeRequest)
	if p.err != nil {
		return p.err
	}
	return json.Unmarshal([]byte(p.resp), out)
}

type mockMode bool

func (m mockMode) UseMockData() bool { return bool(m) }

func TestService_AnalyzeLive(t *testing.T) {
	poster := &fakePoster{resp: `{"data":{"response":"Rest and hydrate.","confidence":0.82,"recommendations":["rest"]},"success":true,"message":"ok"}`}
	svc := NewService(poster, WithModeSource(mockMode(false)))

	req := &Request{Age: 30, Gender: "male", PrimarySymptom: "Mild sore throat", SymptomDuration: DurationOneToThree, PainLevel: 6}
	result, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "/triage/triage", poster.path)
	assert.Equal(t, AnonymousUserID, poster.body.UserID)
	assert.Equal(t, "text", poster.body.InputMethod)
	assert.Equal(t, CompositeQuery(req), poster.body.Query)

	assert.Equal(t, UrgencyUrgent, result.UrgencyLevel)
	assert.Equal(t, "Rest and hydrate.", result.Recommendation)
	assert.Equal(t, "2-4 hours", result.EstimatedWaitTime)
	assert.Equal(t, 0.82, result.Confidence)
	assert.Equal(t, SourceLive, result.Source)
	assert.Equal(t, Disclaimer, result.Disclaimer)
}

func TestService_AnalyzeLiveFailure(t *testing.T) {
	backendErr := errors.New("backend down")
	svc := NewService(&fakePoster{err: backendErr})

	_, err := svc.Analyze(context.Background(), &Request{PrimarySymptom: "Something hurts"})
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "triage analysis failed")

	svc = NewService(&fakePoster{resp: `{"success":false,"message":"model unavailable"}`})
	_, err = svc.Analyze(context.Background(), &Request{PrimarySymptom: "Something hurts"})
	assert.EqualError(t, err, "triage analysis failed: model unavailable")
}

func TestService_AnalyzeDemoSkipsBackend(t *testing.T) {
	poster := &fakePoster{err: errors.New("must not be called")}
	svc := NewService(poster, WithModeSource(mockMode(true)))

	result, err := svc.Analyze(context.Background(), &Request{PrimarySymptom: "Stomach cramps", PainLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, result.Source)
	assert.Empty(t, poster.path)
}

func TestService_AnalyzeWithProgress(t *testing.T) {
	svc := NewService(nil,
		WithModeSource(mockMode(true)),
		WithStages([]Stage{
			{Name: "Validating symptoms", Duration: 10 * time.Millisecond},
			{Name: "Analyzing with AI", Duration: 30 * time.Millisecond},
		}),
	)

	type update struct {
		stage   string
		percent int
	}
	var updates []update
	_, err := svc.AnalyzeWithProgress(context.Background(), &Request{PrimarySymptom: "Stomach cramps"}, func(stage string, p int) {
		updates = append(updates, update{stage, p})
	})
	require.NoError(t, err)

	assert.Equal(t, []update{
		{"Validating symptoms", 0},
		{"Analyzing with AI", 25},
		{StageComplete, 100},
	}, updates)
}

func TestService_AnalyzeWithProgressCancelled(t *testing.T) {
	svc := NewService(nil, WithModeSource(mockMode(true)), WithStages([]Stage{{Name: "slow", Duration: time.Hour}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeWithProgress(ctx, &Request{PrimarySymptom: "Stomach cramps"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepProgress(t *testing.T) {
	assert.Equal(t, 20, StepProgress(1))
	assert.Equal(t, 100, StepProgress(5))
	assert.Equal(t, 100, StepProgress(9))
	assert.Equal(t, 0, StepProgress(0))
	assert.Equal(t, "Medical History", StepTitles[4])
}
