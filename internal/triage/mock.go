package triage

import (
	"fmt"
	"strings"
)

// DemoAnalyze produces an analysis locally for demo mode. Its rules are
// stricter on headaches and chronic conditions than AssessUrgency and it
// suggests possible conditions.
func DemoAnalyze(r *Request) *Result {
	urgency := demoUrgency(r)
	advice := demoAdvice[urgency]

	return &Result{
		UrgencyLevel:       urgency,
		Recommendation:     advice.recommendation,
		Symptoms:           demoSymptoms(r),
		PossibleConditions: possibleConditions(r),
		NextSteps:          append([]string(nil), advice.nextSteps...),
		Disclaimer:         Disclaimer,
		EstimatedWaitTime:  advice.waitTime,
		NearbyClinic:       &DefaultNearbyClinic,
		Source:             SourceDemo,
	}
}

func demoUrgency(r *Request) Urgency {
	emergency := r.HasChestPain ||
		r.HasDifficultyBreathing ||
		r.HasLossOfConsciousness ||
		r.HasUncontrolledBleeding ||
		(r.HasSevereHeadache && r.PainLevel >= 8)
	urgent := r.PainLevel >= 7 || r.temperatureAtLeast(39) || r.HasSevereHeadache
	semiUrgent := r.PainLevel >= 5 || r.temperatureAtLeast(38) || r.HasChronicConditions

	switch {
	case emergency:
		return UrgencyEmergency
	case urgent:
		return UrgencyUrgent
	case semiUrgent:
		return UrgencySemiUrgent
	default:
		return UrgencyNonUrgent
	}
}

func demoSymptoms(r *Request) []string {
	symptoms := []string{r.PrimarySymptom}
	symptoms = append(symptoms, r.AdditionalSymptoms...)
	if r.HasTemperature && r.Temperature != nil {
		symptoms = append(symptoms, fmt.Sprintf("Fever (%s°C)", formatTemperature(*r.Temperature)))
	}
	if r.HasChestPain {
		symptoms = append(symptoms, "Chest pain")
	}
	if r.HasDifficultyBreathing {
		symptoms = append(symptoms, "Difficulty breathing")
	}
	if r.HasLossOfConsciousness {
		symptoms = append(symptoms, "Loss of consciousness")
	}
	if r.HasSevereHeadache {
		symptoms = append(symptoms, "Severe headache")
	}
	if r.HasUncontrolledBleeding {
		symptoms = append(symptoms, "Uncontrolled bleeding")
	}
	return dedupe(symptoms)
}

func possibleConditions(r *Request) []string {
	var out []string
	switch {
	case r.HasChestPain && r.HasDifficultyBreathing:
		out = append(out, "Cardiac event", "Pulmonary embolism", "Pneumonia")
	case r.HasChestPain:
		out = append(out, "Chest wall pain", "Acid reflux", "Anxiety")
	case r.HasDifficultyBreathing:
		out = append(out, "Asthma", "Respiratory infection", "Allergic reaction")
	case r.HasSevereHeadache:
		out = append(out, "Tension headache", "Migraine", "Sinus infection")
	case r.HasTemperature:
		out = append(out, "Viral infection", "Bacterial infection", "Flu")
	}

	if strings.Contains(strings.ToLower(r.PrimarySymptom), "pain") {
		out = append(out, "Musculoskeletal strain", "Inflammation")
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

type advice struct {
	recommendation string
	nextSteps      []string
	waitTime       string
}

var demoAdvice = map[Urgency]advice{
	UrgencyEmergency: {
		recommendation: "Your symptoms indicate a potentially serious condition that requires immediate medical attention. Please seek emergency care right away or call emergency services.",
		nextSteps: []string{
			"Call emergency services (112) immediately or go to the nearest emergency room",
			"Do not drive yourself - have someone else drive you or call an ambulance",
			"Bring a list of your current medications and medical history",
			"Stay calm and follow any instructions given by emergency personnel",
		},
		waitTime: "Immediate",
	},
	UrgencyUrgent: {
		recommendation: "Your symptoms suggest a condition that should be evaluated by a healthcare provider within the next few hours. Consider visiting an urgent care center or emergency room.",
		nextSteps: []string{
			"Visit an urgent care center or emergency room within 2-4 hours",
			"Call ahead to inform them of your symptoms",
			"Bring your insurance card and a list of current medications",
			"Monitor your symptoms and seek immediate care if they worsen",
		},
		waitTime: "2-4 hours",
	},
	UrgencySemiUrgent: {
		recommendation: "Your symptoms should be evaluated by a healthcare provider within the next 24-48 hours. Schedule an appointment with your primary care doctor or visit a walk-in clinic.",
		nextSteps: []string{
			"Schedule an appointment with your primary care doctor within 24-48 hours",
			"If unavailable, consider a walk-in clinic or urgent care center",
			"Monitor your symptoms and note any changes",
			"Take over-the-counter medications as appropriate for symptom relief",
		},
		waitTime: "24-48 hours",
	},
	UrgencyNonUrgent: {
		recommendation: "Your symptoms appear to be manageable and can typically be addressed through routine medical care or self-care measures.",
		nextSteps: []string{
			"Schedule a routine appointment with your primary care doctor if symptoms persist",
			"Monitor your symptoms over the next few days",
			"Use appropriate self-care measures (rest, hydration, over-the-counter medications)",
			"Seek medical attention if symptoms worsen or new symptoms develop",
		},
		waitTime: "1-2 weeks",
	},
}
