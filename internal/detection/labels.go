package detection

import "strings"

// Canonical class labels produced by the detector. The training data uses
// inconsistent spellings (camelCase, snake_case, plural forms), so raw model
// labels are collapsed to these before any threat decision.
const (
	LabelNoMask         = "noMask"
	LabelMedicalMask    = "medicalMask"
	LabelOtherCoverings = "other_coverings"
	LabelWeapons        = "weapons"
)

// Threat levels assigned to detections.
const (
	ThreatLow  = "low"
	ThreatHigh = "high"
)

// highThreatLabels are the canonical labels that escalate a frame to high
// threat: face concealment other than medical masks, and weapons.
var highThreatLabels = map[string]bool{
	LabelOtherCoverings: true,
	LabelWeapons:        true,
}

// NormalizeLabel collapses case, spaces, dashes and underscores in a raw model
// label and maps known variants to their canonical form. Unknown labels are
// returned unchanged. Normalization is total: it never fails.
func NormalizeLabel(raw string) string {
	folded := strings.ToLower(raw)
	folded = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(folded)

	switch folded {
	case "nomask":
		return LabelNoMask
	case "medicalmask":
		return LabelMedicalMask
	case "othercoverings", "othercovering":
		return LabelOtherCoverings
	case "weapon", "weapons":
		return LabelWeapons
	default:
		return raw
	}
}

// ThreatForLabel returns the threat level for a canonical label.
func ThreatForLabel(label string) string {
	if highThreatLabels[label] {
		return ThreatHigh
	}
	return ThreatLow
}

// IsHighThreat reports whether a canonical label escalates the frame.
func IsHighThreat(label string) bool {
	return highThreatLabels[label]
}

// ArbitrateThreat returns the threat level for a set of detections: high if
// any detection carries a high-threat label, low otherwise.
func ArbitrateThreat(results []Result) string {
	for i := range results {
		if IsHighThreat(results[i].Label) {
			return ThreatHigh
		}
	}
	return ThreatLow
}
