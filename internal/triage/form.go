package triage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/healthpal-ng/healthpal/internal/demo"
	"github.com/healthpal-ng/healthpal/internal/forms"
)

// Duration is how long the primary symptom has been present
type Duration string

const (
	DurationUnderHour    Duration = "less_than_1_hour"
	DurationOneToSixHrs  Duration = "1_to_6_hours"
	DurationSixTo24Hrs   Duration = "6_to_24_hours"
	DurationOneToThree   Duration = "1_to_3_days"
	DurationOverThreeDay Duration = "more_than_3_days"
)

// DurationOption pairs a duration with its label
type DurationOption struct {
	Value Duration
	Label string
}

// DurationOptions lists the selectable durations in order
var DurationOptions = []DurationOption{
	{DurationUnderHour, "Less than 1 hour"},
	{DurationOneToSixHrs, "1 to 6 hours"},
	{DurationSixTo24Hrs, "6 to 24 hours"},
	{DurationOneToThree, "1 to 3 days"},
	{DurationOverThreeDay, "More than 3 days"},
}

// Label returns the human label of the duration
func (d Duration) Label() string {
	for _, opt := range DurationOptions {
		if opt.Value == d {
			return opt.Label
		}
	}
	return strings.ReplaceAll(string(d), "_", " ")
}

// CommonSymptoms are offered as additional symptoms
var CommonSymptoms = []string{
	"Fever",
	"Headache",
	"Cough",
	"Sore throat",
	"Nausea",
	"Vomiting",
	"Diarrhea",
	"Abdominal pain",
	"Back pain",
	"Joint pain",
	"Fatigue",
	"Dizziness",
	"Shortness of breath",
	"Chest pain",
	"Skin rash",
}

// Form is the intake form as collected from the user. Numbers are kept as
// typed and converted by ToRequest after validation.
type Form struct {
	// Step 1: basic information
	Age    string `json:"age" yaml:"age" validate:"required,numrange=1-120"`
	Gender string `json:"gender" yaml:"gender" validate:"oneof=male female other"`

	// Step 2: primary symptom
	PrimarySymptom  string   `json:"primarySymptom" yaml:"primary_symptom" validate:"min=10,max=500"`
	SymptomDuration Duration `json:"symptomDuration" yaml:"symptom_duration" validate:"oneof=less_than_1_hour 1_to_6_hours 6_to_24_hours 1_to_3_days more_than_3_days"`
	PainLevel       string   `json:"painLevel" yaml:"pain_level" validate:"numrange=0-10"`

	// Step 3: additional symptoms
	AdditionalSymptoms []string `json:"additionalSymptoms,omitempty" yaml:"additional_symptoms"`
	HasTemperature     bool     `json:"hasTemperature" yaml:"has_temperature"`
	Temperature        string   `json:"temperature,omitempty" yaml:"temperature" validate:"required_if=HasTemperature true,omitempty,numeric"`

	// Step 4: medical history
	HasChronicConditions bool   `json:"hasChronicConditions" yaml:"has_chronic_conditions"`
	ChronicConditions    string `json:"chronicConditions,omitempty" yaml:"chronic_conditions"`
	CurrentMedications   string `json:"currentMedications,omitempty" yaml:"current_medications"`
	HasAllergies         bool   `json:"hasAllergies" yaml:"has_allergies"`
	Allergies            string `json:"allergies,omitempty" yaml:"allergies"`

	// Step 5: emergency indicators
	HasChestPain            bool `json:"hasChestPain" yaml:"has_chest_pain"`
	HasDifficultyBreathing  bool `json:"hasDifficultyBreathing" yaml:"has_difficulty_breathing"`
	HasLossOfConsciousness  bool `json:"hasLossOfConsciousness" yaml:"has_loss_of_consciousness"`
	HasSevereHeadache       bool `json:"hasSevereHeadache" yaml:"has_severe_headache"`
	HasUncontrolledBleeding bool `json:"hasUncontrolledBleeding" yaml:"has_uncontrolled_bleeding"`
}

func init() {
	forms.RegisterMessages(map[string]string{
		"Form.age.required":       "Age is required",
		"Form.age.numrange":       "Age must be between 1 and 120",
		"Form.gender.oneof":       "Please select a gender",
		"primarySymptom.min":      "Please describe your main symptom in at least 10 characters",
		"primarySymptom.max":      "Description must be less than 500 characters",
		"symptomDuration.oneof":   "Please select how long you have had this symptom",
		"painLevel.numrange":      "Pain level must be between 0 and 10",
		"temperature.required_if": "Please enter your temperature",
		"temperature.numeric":     "Temperature must be a number",
	})
}

// NewForm returns a form with the default answers
func NewForm() *Form {
	return &Form{
		Gender:          "male",
		SymptomDuration: DurationUnderHour,
		PainLevel:       "0",
	}
}

// FormFromScenario prefills a form from a demo scenario
func FormFromScenario(s *demo.Scenario) *Form {
	f := NewForm()
	f.PrimarySymptom = s.Symptoms
	f.Age = "35"
	f.Gender = "male"

	symptoms := strings.ToLower(s.Symptoms)
	switch s.ExpectedUrgency {
	case "emergency":
		f.HasChestPain = strings.Contains(symptoms, "chest")
		f.HasDifficultyBreathing = strings.Contains(symptoms, "breath")
		f.PainLevel = "8"
	case "high":
		f.PainLevel = "6"
		if strings.Contains(symptoms, "fever") {
			f.HasTemperature = true
			f.Temperature = "38.5"
		}
	case "medium":
		f.PainLevel = "4"
		if strings.Contains(symptoms, "fever") {
			f.HasTemperature = true
			f.Temperature = "37.8"
		}
	default:
		f.PainLevel = "2"
	}
	return f
}

// Validate checks the whole form
func (f *Form) Validate() error {
	return forms.Validate(f)
}

// ValidateStep checks only the fields asked on the given step (1 to TotalSteps)
func (f *Form) ValidateStep(step int) error {
	err := f.Validate()
	if err == nil {
		return nil
	}
	verrs, ok := err.(forms.ValidationErrors)
	if !ok {
		return err
	}

	fields := stepFields(step)
	var out forms.ValidationErrors
	for _, fe := range verrs {
		if fields[fe.Field] {
			out = append(out, fe)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ToRequest converts a valid form into the analysis request
func (f *Form) ToRequest() (*Request, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	age, err := strconv.Atoi(strings.TrimSpace(f.Age))
	if err != nil {
		return nil, fmt.Errorf("invalid age: %w", err)
	}
	pain, err := strconv.Atoi(strings.TrimSpace(f.PainLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid pain level: %w", err)
	}

	req := &Request{
		Age:                     age,
		Gender:                  f.Gender,
		PrimarySymptom:          f.PrimarySymptom,
		SymptomDuration:         f.SymptomDuration,
		PainLevel:               pain,
		AdditionalSymptoms:      append([]string{}, f.AdditionalSymptoms...),
		HasTemperature:          f.HasTemperature,
		HasChronicConditions:    f.HasChronicConditions,
		ChronicConditions:       f.ChronicConditions,
		CurrentMedications:      f.CurrentMedications,
		HasAllergies:            f.HasAllergies,
		Allergies:               f.Allergies,
		HasChestPain:            f.HasChestPain,
		HasDifficultyBreathing:  f.HasDifficultyBreathing,
		HasLossOfConsciousness:  f.HasLossOfConsciousness,
		HasSevereHeadache:       f.HasSevereHeadache,
		HasUncontrolledBleeding: f.HasUncontrolledBleeding,
	}

	if t := strings.TrimSpace(f.Temperature); t != "" {
		temp, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid temperature: %w", err)
		}
		req.Temperature = &temp
	}

	return req, nil
}

// Request is the validated, typed analysis input
type Request struct {
	Age                     int      `json:"age"`
	Gender                  string   `json:"gender"`
	PrimarySymptom          string   `json:"primarySymptom"`
	SymptomDuration         Duration `json:"symptomDuration"`
	PainLevel               int      `json:"painLevel"`
	AdditionalSymptoms      []string `json:"additionalSymptoms"`
	HasTemperature          bool     `json:"hasTemperature"`
	Temperature             *float64 `json:"temperature,omitempty"`
	HasChronicConditions    bool     `json:"hasChronicConditions"`
	ChronicConditions       string   `json:"chronicConditions,omitempty"`
	CurrentMedications      string   `json:"currentMedications,omitempty"`
	HasAllergies            bool     `json:"hasAllergies"`
	Allergies               string   `json:"allergies,omitempty"`
	HasChestPain            bool     `json:"hasChestPain"`
	HasDifficultyBreathing  bool     `json:"hasDifficultyBreathing"`
	HasLossOfConsciousness  bool     `json:"hasLossOfConsciousness"`
	HasSevereHeadache       bool     `json:"hasSevereHeadache"`
	HasUncontrolledBleeding bool     `json:"hasUncontrolledBleeding"`
}

// temperatureAtLeast reports whether a temperature was given and is >= t
func (r *Request) temperatureAtLeast(t float64) bool {
	return r.HasTemperature && r.Temperature != nil && *r.Temperature >= t
}

// EmergencySymptoms lists the emergency indicators that were checked
func (r *Request) EmergencySymptoms() []string {
	var out []string
	if r.HasChestPain {
		out = append(out, "chest pain")
	}
	if r.HasDifficultyBreathing {
		out = append(out, "difficulty breathing")
	}
	if r.HasLossOfConsciousness {
		out = append(out, "loss of consciousness")
	}
	if r.HasSevereHeadache {
		out = append(out, "severe headache")
	}
	if r.HasUncontrolledBleeding {
		out = append(out, "uncontrolled bleeding")
	}
	return out
}
