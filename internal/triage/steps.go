package triage

// TotalSteps is the number of intake wizard steps
const TotalSteps = 5

// StepTitles are the wizard step headings, indexed from step 1
var StepTitles = map[int]string{
	1: "Basic Information",
	2: "Primary Symptoms",
	3: "Additional Symptoms",
	4: "Medical History",
	5: "Emergency Indicators",
}

var stepFieldNames = map[int][]string{
	1: {"age", "gender"},
	2: {"primarySymptom", "symptomDuration", "painLevel"},
	3: {"additionalSymptoms", "hasTemperature", "temperature"},
	4: {"hasChronicConditions", "chronicConditions", "currentMedications", "hasAllergies", "allergies"},
	5: {"hasChestPain", "hasDifficultyBreathing", "hasLossOfConsciousness", "hasSevereHeadache", "hasUncontrolledBleeding"},
}

func stepFields(step int) map[string]bool {
	out := make(map[string]bool, len(stepFieldNames[step]))
	for _, name := range stepFieldNames[step] {
		out[name] = true
	}
	return out
}

// StepProgress returns the completion percentage shown for a step
func StepProgress(step int) int {
	if step < 1 {
		return 0
	}
	if step > TotalSteps {
		step = TotalSteps
	}
	return step * 100 / TotalSteps
}
