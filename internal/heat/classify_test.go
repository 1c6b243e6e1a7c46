package heat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"heatwatch/internal/types"
)

func TestClassifyBandEdges(t *testing.T) {
	cases := []struct {
		tempC float64
		want  types.RiskLevel
	}{
		{26.9, types.RiskNotHazardous},
		{27, types.RiskCaution},
		{32, types.RiskCaution},
		{32.1, types.RiskExtremeCaution},
		{41, types.RiskExtremeCaution},
		{41.1, types.RiskDanger},
		{51, types.RiskDanger},
		{51.1, types.RiskExtremeDanger},
		{52, types.RiskExtremeDanger},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.tempC), "temp %v", tc.tempC)
	}
}

func TestClassifyScores(t *testing.T) {
	cases := []struct {
		tempC float64
		want  float64
	}{
		{24, 0},
		{30, 0.25},
		{37, 0.5},
		{46, 0.75},
		{55, 1},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.tempC).Score(), "temp %v", tc.tempC)
	}
}
