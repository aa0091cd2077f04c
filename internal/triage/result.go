package triage

// Disclaimer is shown with every analysis
const Disclaimer = "This AI triage tool is for informational purposes only and should not replace professional medical advice. Always consult with qualified healthcare providers for proper diagnosis and treatment. In case of emergency, call your local emergency services immediately."

// Source tells where an analysis came from
type Source string

const (
	SourceLive Source = "live"
	SourceDemo Source = "demo"
)

// Clinic is the nearby clinic suggested with a result
type Clinic struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Distance string `json:"distance"`
}

// DefaultNearbyClinic is suggested until a location search is done
var DefaultNearbyClinic = Clinic{
	Name:     "Lagos General Hospital",
	Address:  "123 Medical Center Drive, Victoria Island, Lagos",
	Phone:    "+234-1-234-5678",
	Distance: "2.3 km",
}

// Result is a finished triage analysis
type Result struct {
	UrgencyLevel       Urgency  `json:"urgencyLevel"`
	Recommendation     string   `json:"recommendation"`
	Symptoms           []string `json:"symptoms"`
	PossibleConditions []string `json:"possibleConditions"`
	NextSteps          []string `json:"nextSteps"`
	Disclaimer         string   `json:"disclaimer"`
	EstimatedWaitTime  string   `json:"estimatedWaitTime,omitempty"`
	NearbyClinic       *Clinic  `json:"nearbyClinic,omitempty"`

	// Confidence is the backend's confidence, zero for demo analyses
	Confidence float64 `json:"confidence,omitempty"`
	// Severity is the backend's own free-text severity, if it sent one
	Severity string `json:"severity,omitempty"`
	Source   Source `json:"source"`
}
