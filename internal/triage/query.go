package triage

import (
	"fmt"
	"strconv"
	"strings"
)

// CompositeQuery folds the structured request into the free-text query
// understood by the triage endpoint
func CompositeQuery(r *Request) string {
	parts := []string{
		r.PrimarySymptom,
		fmt.Sprintf("Age: %d, Gender: %s", r.Age, r.Gender),
		fmt.Sprintf("Duration: %s", strings.ReplaceAll(string(r.SymptomDuration), "_", " ")),
		fmt.Sprintf("Pain level: %d/10", r.PainLevel),
	}

	if len(r.AdditionalSymptoms) > 0 {
		parts = append(parts, "Additional symptoms: "+strings.Join(r.AdditionalSymptoms, ", "))
	}
	if r.HasTemperature && r.Temperature != nil {
		parts = append(parts, fmt.Sprintf("Temperature: %s°C", formatTemperature(*r.Temperature)))
	}
	if r.HasChronicConditions && r.ChronicConditions != "" {
		parts = append(parts, "Chronic conditions: "+r.ChronicConditions)
	}
	if r.CurrentMedications != "" {
		parts = append(parts, "Current medications: "+r.CurrentMedications)
	}
	if r.HasAllergies && r.Allergies != "" {
		parts = append(parts, "Allergies: "+r.Allergies)
	}
	if emergency := r.EmergencySymptoms(); len(emergency) > 0 {
		parts = append(parts, "Emergency symptoms: "+strings.Join(emergency, ", "))
	}

	return strings.Join(parts, ". ")
}

func formatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
