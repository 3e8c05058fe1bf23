// Package severity holds the pure severity and dispatch policy functions:
// deriving a 0-10 severity index from EmergencyMetrics, classifying a
// public-facing urgency label, and deciding whether a frame warrants agent
// dispatch.
package severity

import (
	"math"

	"github.com/monkedh/sentinel/internal/hazard"
)

// hazardWeight is the per-hazard contribution to the severity index. The
// enum is closed (all eight hazards are listed), so the 0.8 fallback only
// matters if the enum ever grows.
func hazardWeight(h hazard.Hazard) float64 {
	switch h {
	case hazard.Fire, hazard.MedicalEmergency:
		return 3.0
	case hazard.Violence:
		return 2.5
	case hazard.Smoke, hazard.StructuralDamage, hazard.Gas:
		return 2.0
	case hazard.Water:
		return 1.2
	case hazard.BlockedExit:
		return 1.0
	default:
		return 0.8
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Severity computes the 0-10 severity index for a frame's metrics:
// weighted urgency plus hazard weights, an injury bonus, and a capped
// crowd term, rounded to two decimals.
func Severity(m hazard.EmergencyMetrics) float64 {
	total := 0.4 * m.UrgencyScore
	for _, h := range m.DetectedHazards {
		total += hazardWeight(h)
	}
	if m.VisibleInjuries {
		total += 2.5
	}
	if m.PeopleCount != nil {
		people := *m.PeopleCount
		if people > 5 {
			people = 5
		}
		if people > 0 {
			total += 0.3 * float64(people)
		}
	}
	return round2(clamp(total, 0, 10))
}

// DispatchRequired reports whether a frame warrants agent dispatch: a
// life-threatening signal (fire, medical emergency, or visible injuries)
// combined with high urgency or severity.
func DispatchRequired(m hazard.EmergencyMetrics, sev float64) bool {
	hasCriticalHazard := m.HasHazard(hazard.Fire) || m.HasHazard(hazard.MedicalEmergency) || m.VisibleInjuries
	if !hasCriticalHazard {
		return false
	}
	return m.UrgencyScore >= 6.0 || sev >= 6.5
}

// PublicUrgency maps a metric's urgency to the consumer-facing label:
// critical never leaks downstream, and unknown labels are re-classified
// from the urgency score.
func PublicUrgency(m hazard.EmergencyMetrics) hazard.UrgencyLevel {
	if m.UrgencyLevel == hazard.UrgencyCritical {
		return hazard.UrgencyHigh
	}
	switch m.UrgencyLevel {
	case hazard.UrgencyLow, hazard.UrgencyNormal, hazard.UrgencyMedium, hazard.UrgencyHigh:
		return m.UrgencyLevel
	}
	switch {
	case m.UrgencyScore >= 7.0:
		return hazard.UrgencyHigh
	case m.UrgencyScore >= 5.0:
		return hazard.UrgencyMedium
	case m.UrgencyScore >= 3.0:
		return hazard.UrgencyNormal
	default:
		return hazard.UrgencyLow
	}
}

// Priority orders the public urgency labels, used to pick the dominant
// label across frames and to evaluate "at least high" thresholds in the
// orchestrator.
func Priority(level hazard.UrgencyLevel) int {
	switch level {
	case hazard.UrgencyLow:
		return 0
	case hazard.UrgencyNormal:
		return 1
	case hazard.UrgencyMedium:
		return 2
	case hazard.UrgencyHigh:
		return 3
	default:
		return 0
	}
}

// MaxByPriority returns whichever of a, b has the higher Priority; ties
// keep a.
func MaxByPriority(a, b hazard.UrgencyLevel) hazard.UrgencyLevel {
	if Priority(b) > Priority(a) {
		return b
	}
	return a
}

// DominantLabel picks the session's dominant urgency: argmax of the label
// counts by (count, priority), defaulting to low when there are no frames.
func DominantLabel(counts map[hazard.UrgencyLevel]int) hazard.UrgencyLevel {
	levels := []hazard.UrgencyLevel{hazard.UrgencyLow, hazard.UrgencyNormal, hazard.UrgencyMedium, hazard.UrgencyHigh}
	best := hazard.UrgencyLow
	bestCount := 0
	for _, lvl := range levels {
		c := counts[lvl]
		if c == 0 {
			continue
		}
		if c > bestCount || (c == bestCount && Priority(lvl) > Priority(best)) {
			best = lvl
			bestCount = c
		}
	}
	return best
}
