package server

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthpal-ng/healthpal/internal/clinics"
	"github.com/healthpal-ng/healthpal/internal/triage"
)

var (
	painPattern        = regexp.MustCompile(`(?i)pain level:\s*(\d+)\s*/\s*10`)
	temperaturePattern = regexp.MustCompile(`(?i)temperature:\s*([\d.]+)`)

	redFlags = []string{
		"emergency symptoms",
		"chest pain",
		"difficulty breathing",
		"loss of consciousness",
		"uncontrolled bleeding",
		"unconscious",
	}
)

// severity classes returned by the triage endpoint
const (
	severityHigh   = "high"
	severityMedium = "medium"
	severityLow    = "low"
)

var triageReplies = map[string]struct {
	response        string
	confidence      float64
	recommendations []string
}{
	severityHigh: {
		response:   "Your symptoms may indicate a serious condition. Please seek emergency care immediately or call 112.",
		confidence: 0.86,
		recommendations: []string{
			"Go to the nearest emergency department",
			"Do not drive yourself",
			"Bring a list of your current medications",
		},
	},
	severityMedium: {
		response:   "Your symptoms should be evaluated by a healthcare provider within the next day.",
		confidence: 0.78,
		recommendations: []string{
			"Book an appointment with your doctor or visit a clinic",
			"Stay hydrated and rest",
			"Seek care sooner if symptoms get worse",
		},
	},
	severityLow: {
		response:   "Your symptoms appear mild and can likely be managed at home.",
		confidence: 0.72,
		recommendations: []string{
			"Rest and monitor your symptoms",
			"Use over-the-counter remedies as appropriate",
			"See a doctor if symptoms persist beyond a week",
		},
	},
}

// classifyQuery reads the severity from the free-text query
func classifyQuery(query string) string {
	lower := strings.ToLower(query)
	for _, flag := range redFlags {
		if strings.Contains(lower, flag) {
			return severityHigh
		}
	}

	pain := 0
	if m := painPattern.FindStringSubmatch(query); m != nil {
		pain, _ = strconv.Atoi(m[1])
	}
	temperature := 0.0
	if m := temperaturePattern.FindStringSubmatch(query); m != nil {
		temperature, _ = strconv.ParseFloat(strings.TrimSuffix(m[1], "."), 64)
	}

	switch {
	case pain >= 8:
		return severityHigh
	case pain >= 5 || temperature >= 38:
		return severityMedium
	default:
		return severityLow
	}
}

// @Summary Analyze symptoms
// @Description Returns a free-text triage answer for a symptom description
// @Tags triage
// @Accept json
// @Produce json
// @Param request body triage.AnalyzeRequest true "Symptom query"
// @Success 200 {object} triage.AnalyzeResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/triage/triage [post]
func (s *Server) analyze(c *gin.Context) {
	var req triage.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Query is required"})
		return
	}

	severity := classifyQuery(req.Query)
	reply := triageReplies[severity]

	var resp triage.AnalyzeResponse
	resp.Success = true
	resp.Message = "Analysis complete"
	resp.Data.Response = reply.response
	resp.Data.Confidence = reply.confidence
	resp.Data.Recommendations = append([]string(nil), reply.recommendations...)
	resp.Data.Severity = severity

	s.logger.Info().
		Str("user_id", req.UserID).
		Str("input_method", req.InputMethod).
		Str("severity", severity).
		Msg("Triage analysis served")

	c.JSON(http.StatusOK, resp)
}

// @Summary Emergency clinics nearby
// @Tags clinics
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query number false "Radius in km (default 10)"
// @Param emergency_only query bool false "Only emergency clinics"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/clinics/emergency [get]
func (s *Server) emergencyClinics(c *gin.Context) {
	params, err := clinics.ParseQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	found := clinics.Nearby(clinics.MockClinics, params)
	c.JSON(http.StatusOK, gin.H{"clinics": found, "total": len(found)})
}
