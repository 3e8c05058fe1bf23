// Package hazard turns a vision analyzer's free-text scene caption into a
// typed EmergencyMetrics record. Parse is a pure, deterministic function:
// identical caption + timestamp always yields identical metrics.
package hazard

// Hazard is a member of the fixed hazard enumeration.
type Hazard string

// The fixed hazard enumeration.
const (
	Fire             Hazard = "fire"
	Smoke            Hazard = "smoke"
	Water            Hazard = "water"
	StructuralDamage Hazard = "structural_damage"
	Gas              Hazard = "gas"
	MedicalEmergency Hazard = "medical_emergency"
	Violence         Hazard = "violence"
	BlockedExit      Hazard = "blocked_exit"
)

// UrgencyLevel is the raw (pre-mapping) urgency classification. "critical"
// is an internal-only value that must never reach a downstream event;
// severity.PublicUrgency performs that mapping.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// EmergencyMetrics is produced by Parse, one per analyzed frame.
type EmergencyMetrics struct {
	Timestamp   string `json:"timestamp"`
	FrameNumber uint64 `json:"frame_number"`

	SceneDescription string `json:"scene_description"`

	UrgencyLevel UrgencyLevel `json:"urgency_level"`
	UrgencyScore float64      `json:"urgency_score"`

	DetectedHazards []Hazard `json:"detected_hazards"`

	PeopleCount     *int `json:"people_count,omitempty"`
	VisibleInjuries bool `json:"visible_injuries"`

	EnvironmentalConditions string   `json:"environmental_conditions"`
	AccessibilityIssues     []string `json:"accessibility_issues"`

	RecommendedAction string  `json:"recommended_action"`
	Confidence        float64 `json:"confidence"`

	RawResponse string `json:"raw_response"`
}

// HasHazard reports whether h is present in the metrics' detected hazards.
func (m EmergencyMetrics) HasHazard(h Hazard) bool {
	for _, d := range m.DetectedHazards {
		if d == h {
			return true
		}
	}
	return false
}
