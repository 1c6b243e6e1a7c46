// Package heat implements the real-time risk path: the heat index
// computation, the ordinal risk classifier, the synthetic spread adjuster,
// and the assessment service that ties them to geo and weather.
package heat

import (
	"math"
)

// Rothfusz regression coefficients (NWS, Fahrenheit domain).
const (
	c1 = -42.379
	c2 = 2.04901523
	c3 = 10.14333127
	c4 = -0.22475541
	c5 = -0.00683783
	c6 = -0.05481717
	c7 = 0.00122874
	c8 = 0.00085282
	c9 = -0.00000199
)

func cToF(c float64) float64 { return c*9/5 + 32 }
func fToC(f float64) float64 { return (f - 32) * 5 / 9 }

// HeatIndexC returns the apparent temperature in Celsius for an air
// temperature and relative humidity percentage. With no humidity, an
// out-of-domain humidity, or a non-finite input it falls back to the air
// temperature; it never errors.
func HeatIndexC(tempC float64, humidity *float64) float64 {
	if humidity == nil {
		return tempC
	}
	rh := *humidity
	if rh < 0 || rh > 100 || !isFinite(tempC) || !isFinite(rh) {
		return tempC
	}

	t := cToF(tempC)

	// Steadman's simple formula, averaged with the temperature. Below 80F
	// the average is the heat index; above it the full regression applies.
	simple := 0.5 * (t + 61.0 + (t-68.0)*1.2 + rh*0.094)
	avg := (simple + t) / 2
	if avg < 80 {
		return fToC(avg)
	}

	hi := c1 + c2*t + c3*rh + c4*t*rh + c5*t*t + c6*rh*rh +
		c7*t*t*rh + c8*t*rh*rh + c9*t*t*rh*rh

	if rh < 13 && t >= 80 && t <= 112 {
		hi -= ((13 - rh) / 4) * math.Sqrt((17-math.Abs(t-95))/17)
	}
	if rh > 85 && t >= 80 && t <= 87 {
		hi += ((rh - 85) / 10) * ((87 - t) / 5)
	}

	return fToC(hi)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
