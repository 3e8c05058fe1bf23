package hazard

import (
	"regexp"
	"strconv"
	"strings"
)

// hazardRule is one row of the cue/negation table: a hazard is detected
// when any cue phrase appears and no negation for it does.
type hazardRule struct {
	hazard      Hazard
	cues        []string
	negations   []string
	negationRe  *regexp.Regexp // takes the place of negations when the negation set needs a pattern
	contextCues []string       // gas only: an extra cue required before the hazard is added
}

// rules is deliberately a slice, not a map, so iteration order is fixed and
// detected hazards always come out in the same order.
var rules = []hazardRule{
	{
		hazard:    Fire,
		cues:      []string{"fire", "flame", "burning", "blaze"},
		negations: []string{"no fire", "fire: no", "without fire"},
	},
	{
		hazard:    Smoke,
		cues:      []string{"smoke", "smoking", "smoky"},
		negations: []string{"no smoke", "smoke: no", "without smoke"},
	},
	{
		hazard:    Water,
		cues:      []string{"flood", "flooding", "submerged", "inundated", "water damage"},
		negations: []string{"no flood", "no water", "flood: no"},
	},
	{
		hazard: StructuralDamage,
		cues: []string{
			"collapsed", "debris", "rubble", "damaged building",
			"broken structure", "structural damage", "crumbled", "destroyed",
		},
		negations: []string{"no damage", "damage: no", "intact"},
	},
	{
		hazard:      Gas,
		cues:        []string{"gas leak", "gas", "chemical", "fumes", "toxic"},
		negations:   []string{"no gas", "gas: no"},
		contextCues: []string{"leak", "fumes", "toxic", "chemical", "danger"},
	},
	{
		hazard: MedicalEmergency,
		cues: []string{
			"injured", "injury", "hurt", "victim", "casualty", "wounded",
			"medical emergency", "blood", "bloody", "bleeding", "bloodied",
		},
		negationRe: regexp.MustCompile(`no injur\w*|injur\w*\s*:\s*no|uninjured`),
	},
	{
		hazard:    Violence,
		cues:      []string{"weapon", "gun", "knife", "assault", "attack", "violence", "fighting", "combat"},
		negations: []string{"no weapon", "no violence", "weapon: no"},
	},
	{
		hazard:     BlockedExit,
		cues:       []string{"blocked exit", "obstructed", "trapped", "blocked path"},
		negationRe: regexp.MustCompile(`no block\w*|block\s*:\s*no|clear`),
	},
}

func matchAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func detectHazards(lower string) []Hazard {
	var found []Hazard
	for _, r := range rules {
		if !matchAny(lower, r.cues) {
			continue
		}
		negated := false
		switch {
		case r.negationRe != nil:
			negated = r.negationRe.MatchString(lower)
		default:
			negated = matchAny(lower, r.negations)
		}
		if negated {
			continue
		}
		if len(r.contextCues) > 0 && !matchAny(lower, r.contextCues) {
			continue
		}
		found = append(found, r.hazard)
	}
	return found
}

func hasAny(hazards []Hazard, want ...Hazard) bool {
	for _, h := range hazards {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

var (
	criticalKeywords = []string{"critical", "extreme danger", "life threatening", "emergency"}
	highKeywords     = []string{"high danger", "high risk", "dangerous", "urgent"}
	mediumKeywords   = []string{"medium", "moderate", "caution", "some concern"}
	lowKeywords      = []string{"safe", "no danger", "no emergency", "normal situation"}
)

// assignUrgency classifies the caption's urgency: first matching rule wins.
func assignUrgency(lower string, hazards []Hazard) (UrgencyLevel, float64) {
	switch {
	case hasAny(hazards, Fire, Violence, MedicalEmergency):
		return UrgencyCritical, 9.5
	case hasAny(hazards, Smoke, StructuralDamage, Gas):
		return UrgencyHigh, 7.5
	case hasAny(hazards, Water, BlockedExit):
		return UrgencyMedium, 4.5
	case matchAny(lower, criticalKeywords):
		return UrgencyCritical, 9.5
	case matchAny(lower, highKeywords):
		return UrgencyHigh, 7.5
	case matchAny(lower, mediumKeywords):
		return UrgencyMedium, 4.5
	case matchAny(lower, lowKeywords):
		return UrgencyLow, 1.5
	default:
		return UrgencyLow, 1.5
	}
}

var peopleCountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s+(?:people|person|individual)`),
	regexp.MustCompile(`(?:people|person)[:\s]+(\d+)`),
	regexp.MustCompile(`see\s+(\d+)`),
	regexp.MustCompile(`count[:\s]+(\d+)`),
}

var noPeoplePhrases = []string{"no people", "nobody", "none visible", "0 people"}

// countPeople extracts a visible-people count from the caption, if any.
func countPeople(lower string) *int {
	for _, re := range peopleCountPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	if matchAny(lower, noPeoplePhrases) {
		zero := 0
		return &zero
	}
	return nil
}

var injuryRe = regexp.MustCompile(`injur\w*[:\s]*(?:yes|visible|present|detected)`)

func hasVisibleInjuries(lower string) bool {
	return injuryRe.MatchString(lower)
}

// environment summarizes the visible environmental conditions.
func environment(lower string, hazards []Hazard) string {
	switch {
	case matchAny(lower, []string{"dark", "low light"}):
		return "Low lighting"
	case matchAny(lower, []string{"bright", "good light"}):
		return "Good lighting"
	case hasAny(hazards, Smoke):
		return "Poor visibility due to smoke"
	case matchAny(lower, []string{"rain", "wet"}):
		return "Wet conditions"
	default:
		return "Normal indoor/outdoor conditions"
	}
}

// accessibility lists access problems the caption implies.
func accessibility(lower string, hazards []Hazard) []string {
	var issues []string
	if hasAny(hazards, BlockedExit) {
		issues = append(issues, "blocked_exit")
	}
	if matchAny(lower, []string{"debris", "rubble"}) {
		issues = append(issues, "debris")
	}
	return issues
}

var actionKeywords = []string{
	"should", "must", "need to", "evacuate", "call", "contact",
	"move", "leave", "stay", "avoid", "immediately",
}

var defaultActions = map[UrgencyLevel]string{
	UrgencyCritical: "IMMEDIATE ACTION REQUIRED. Evacuate area and call emergency services NOW.",
	UrgencyHigh:     "Call emergency services immediately. Ensure safety of all individuals.",
	UrgencyMedium:   "Stay alert. Prepare to evacuate if situation worsens. Contact authorities if needed.",
	UrgencyLow:      "Monitor situation. Call emergency services if needed.",
}

func splitSentences(raw string) []string {
	parts := strings.Split(raw, ".")
	var sentences []string
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// recommendedAction lifts actionable sentences out of the caption, or
// falls back to a per-urgency template.
func recommendedAction(raw, lower string, urgency UrgencyLevel) string {
	sentences := splitSentences(raw)
	var matched []string
	for _, s := range sentences {
		if matchAny(strings.ToLower(s), actionKeywords) {
			matched = append(matched, s)
			if len(matched) == 2 {
				break
			}
		}
	}
	if len(matched) > 0 {
		return strings.Join(matched, ". ")
	}
	if action, ok := defaultActions[urgency]; ok {
		return action
	}
	return defaultActions[UrgencyLow]
}

const maxSceneDescriptionLen = 250

// sceneDescription keeps the caption's first two sentences, clipped.
func sceneDescription(raw string) string {
	sentences := splitSentences(raw)
	n := len(sentences)
	if n > 2 {
		n = 2
	}
	desc := strings.Join(sentences[:n], ". ")
	if desc == "" {
		desc = strings.TrimSpace(raw)
	}
	if len(desc) > maxSceneDescriptionLen {
		desc = strings.TrimSpace(desc[:maxSceneDescriptionLen-1]) + "…"
	}
	return desc
}

// parserConfidence is the fixed confidence reported for rule-based parses.
const parserConfidence = 0.8

// Parse turns a vision analyzer's free-text caption into EmergencyMetrics.
// It is a pure function: the same caption and timestamp always yield the
// same metrics.
func Parse(caption, timestamp string, frameNumber uint64) EmergencyMetrics {
	lower := strings.ToLower(caption)

	hazards := detectHazards(lower)
	urgency, score := assignUrgency(lower, hazards)

	return EmergencyMetrics{
		Timestamp:               timestamp,
		FrameNumber:             frameNumber,
		SceneDescription:        sceneDescription(caption),
		UrgencyLevel:            urgency,
		UrgencyScore:            score,
		DetectedHazards:         hazards,
		PeopleCount:             countPeople(lower),
		VisibleInjuries:         hasVisibleInjuries(lower),
		EnvironmentalConditions: environment(lower, hazards),
		AccessibilityIssues:     accessibility(lower, hazards),
		RecommendedAction:       recommendedAction(caption, lower, urgency),
		Confidence:              parserConfidence,
		RawResponse:             caption,
	}
}
