package triage

import "fmt"

// Urgency is one of the four ordered priority tiers
type Urgency string

const (
	UrgencyEmergency  Urgency = "emergency"
	UrgencyUrgent     Urgency = "urgent"
	UrgencySemiUrgent Urgency = "semi-urgent"
	UrgencyNonUrgent  Urgency = "non-urgent"
)

// Rank orders tiers from 0 (non-urgent) to 3 (emergency)
func (u Urgency) Rank() int {
	switch u {
	case UrgencyEmergency:
		return 3
	case UrgencyUrgent:
		return 2
	case UrgencySemiUrgent:
		return 1
	default:
		return 0
	}
}

// Label is the badge text of the tier
func (u Urgency) Label() string {
	switch u {
	case UrgencyEmergency:
		return "EMERGENCY"
	case UrgencyUrgent:
		return "URGENT"
	case UrgencySemiUrgent:
		return "SEMI-URGENT"
	default:
		return "NON-URGENT"
	}
}

// ParseUrgency validates a stored or user-supplied tier name
func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case UrgencyEmergency, UrgencyUrgent, UrgencySemiUrgent, UrgencyNonUrgent:
		return u, nil
	}
	return "", fmt.Errorf("unknown urgency level %q", s)
}

// AssessUrgency applies the rule table used with the live backend:
// any emergency indicator or pain >= 8 is an emergency, pain >= 6 or a
// temperature >= 39 is urgent, pain >= 4 or a temperature >= 38 is semi-urgent.
func AssessUrgency(r *Request) Urgency {
	switch {
	case len(r.EmergencySymptoms()) > 0 || r.PainLevel >= 8:
		return UrgencyEmergency
	case r.PainLevel >= 6 || r.temperatureAtLeast(39):
		return UrgencyUrgent
	case r.PainLevel >= 4 || r.temperatureAtLeast(38):
		return UrgencySemiUrgent
	default:
		return UrgencyNonUrgent
	}
}

// Guidance is the advice attached to a tier
type Guidance struct {
	NextSteps         []string
	EstimatedWaitTime string
}

// LiveGuidance returns the next steps shown with a backend analysis
func LiveGuidance(u Urgency) Guidance {
	switch u {
	case UrgencyEmergency:
		return Guidance{
			NextSteps: []string{
				"Seek immediate emergency medical attention",
				"Call emergency services or go to the nearest emergency room",
				"Do not delay medical care",
			},
			EstimatedWaitTime: "Immediate",
		}
	case UrgencyUrgent:
		return Guidance{
			NextSteps: []string{
				"Seek medical attention within 2-4 hours",
				"Visit urgent care or emergency room",
				"Monitor symptoms closely",
			},
			EstimatedWaitTime: "2-4 hours",
		}
	case UrgencySemiUrgent:
		return Guidance{
			NextSteps: []string{
				"Schedule appointment with healthcare provider within 24-48 hours",
				"Monitor symptoms and seek immediate care if they worsen",
				"Consider over-the-counter symptom relief as appropriate",
			},
			EstimatedWaitTime: "24-48 hours",
		}
	default:
		return Guidance{
			NextSteps: []string{
				"Monitor symptoms over the next few days",
				"Schedule routine appointment if symptoms persist",
				"Use appropriate self-care measures",
			},
			EstimatedWaitTime: "1-2 weeks",
		}
	}
}
