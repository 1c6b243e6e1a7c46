package heat

import (
	"heatwatch/internal/types"
)

// Classify maps a classification temperature in Celsius onto the ordinal
// risk scale. Band edges follow the published advisory thresholds: 27 and
// 32 close the lower bands, 41 and 51 close the upper ones.
func Classify(tempC float64) types.RiskLevel {
	switch {
	case tempC < 27:
		return types.RiskNotHazardous
	case tempC <= 32:
		return types.RiskCaution
	case tempC <= 41:
		return types.RiskExtremeCaution
	case tempC <= 51:
		return types.RiskDanger
	default:
		return types.RiskExtremeDanger
	}
}
