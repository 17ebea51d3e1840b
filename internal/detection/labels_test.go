// labels_test.go: unit tests for label normalization and threat mapping.
package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabelVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"noMask", LabelNoMask},
		{"NoMask", LabelNoMask},
		{"no_mask", LabelNoMask},
		{"no-mask", LabelNoMask},
		{"medicalMask", LabelMedicalMask},
		{"Medical Mask", LabelMedicalMask},
		{"other_coverings", LabelOtherCoverings},
		{"otherCoverings", LabelOtherCoverings},
		{"other_Coverings", LabelOtherCoverings},
		{"OtherCovering", LabelOtherCoverings},
		{"weapon", LabelWeapons},
		{"weapons", LabelWeapons},
		{"Weapons", LabelWeapons},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLabel(tt.raw), "raw label %q", tt.raw)
	}
}

func TestNormalizeLabelUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "backpack", NormalizeLabel("backpack"))
	assert.Equal(t, "Person", NormalizeLabel("Person"))
}

func TestThreatForLabel(t *testing.T) {
	assert.Equal(t, ThreatLow, ThreatForLabel(LabelNoMask))
	assert.Equal(t, ThreatLow, ThreatForLabel(LabelMedicalMask))
	assert.Equal(t, ThreatHigh, ThreatForLabel(LabelOtherCoverings))
	assert.Equal(t, ThreatHigh, ThreatForLabel(LabelWeapons))
	assert.Equal(t, ThreatLow, ThreatForLabel("backpack"))
}

func TestArbitrateThreatAnyHighWins(t *testing.T) {
	results := []Result{
		{Label: LabelMedicalMask, Confidence: 0.9},
		{Label: LabelNoMask, Confidence: 0.8},
	}
	assert.Equal(t, ThreatLow, ArbitrateThreat(results))

	results = append(results, Result{Label: LabelWeapons, Confidence: 0.4})
	assert.Equal(t, ThreatHigh, ArbitrateThreat(results))
}

func TestArbitrateThreatEmpty(t *testing.T) {
	assert.Equal(t, ThreatLow, ArbitrateThreat(nil))
}
