package heat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func humidityPtr(h float64) *float64 { return &h }

func TestHeatIndexReferencePoint(t *testing.T) {
	// Published reference: 32.2C at 90% humidity feels like roughly 49.9C.
	got := HeatIndexC(32.2, humidityPtr(90))
	assert.InDelta(t, 49.9, got, 0.2)
}

func TestHeatIndexNoHumidity(t *testing.T) {
	assert.Equal(t, 35.0, HeatIndexC(35.0, nil))
}

func TestHeatIndexCoolConditionsUseSimpleFormula(t *testing.T) {
	// Below the 80F threshold the averaged simple formula applies and tracks
	// the air temperature closely.
	got := HeatIndexC(22, humidityPtr(50))
	assert.InDelta(t, 22, got, 2)
}

func TestHeatIndexLowHumidityAdjustment(t *testing.T) {
	// 95F at 10% humidity sits in the dry-air adjustment window: the index
	// comes out below the plain regression value.
	withAdjustment := HeatIndexC(35, humidityPtr(10))
	atBoundary := HeatIndexC(35, humidityPtr(13))
	assert.Less(t, withAdjustment, atBoundary)
}

func TestHeatIndexOutOfDomainFallsBack(t *testing.T) {
	assert.Equal(t, 30.0, HeatIndexC(30, humidityPtr(-5)))
	assert.Equal(t, 30.0, HeatIndexC(30, humidityPtr(101)))
	assert.Equal(t, 30.0, HeatIndexC(30, humidityPtr(math.NaN())))

	nan := HeatIndexC(math.NaN(), humidityPtr(50))
	assert.True(t, math.IsNaN(nan))
}

func TestHeatIndexMonotonicInHumidity(t *testing.T) {
	prev := math.Inf(-1)
	for _, rh := range []float64{40, 55, 70, 85, 100} {
		got := HeatIndexC(34, humidityPtr(rh))
		assert.Greater(t, got, prev, "humidity %v", rh)
		prev = got
	}
}
