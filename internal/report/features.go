// Package report implements the batch prioritization pipeline: feature
// construction from historical observations, min-max scaling, deterministic
// k-means clustering, severity ranking, and the report store and service.
package report

import (
	"sort"
	"time"

	"heatwatch/internal/heat"
	"heatwatch/internal/types"
)

// trailingWindow is the span of the trailing temperature mean.
const trailingWindow = 7 * 24 * time.Hour

// FeatureMatrix is the pipeline's working set: one row per unit, columns in
// a fixed declared order. Rows are sorted by unit ID so identical input
// always yields an identical matrix.
type FeatureMatrix struct {
	UnitIDs []string
	Columns []string
	Rows    [][]float64
}

// BuildFeatures constructs the per-unit feature matrix from observations and
// facility counts. The temperature feature is the heat index when humidity
// was recorded, the raw air temperature otherwise, averaged over a trailing
// seven-day window ending at each unit's latest observation. The facility
// feature is 1/(1+count): more facilities means lower need. A density column
// is added only when every unit has one, so the matrix never mixes known and
// unknown densities.
func BuildFeatures(observations []types.Observation, facilityCounts map[string]int, densities map[string]float64) *FeatureMatrix {
	byUnit := make(map[string][]types.Observation)
	for _, obs := range observations {
		byUnit[obs.UnitID] = append(byUnit[obs.UnitID], obs)
	}

	unitIDs := make([]string, 0, len(byUnit))
	for unitID := range byUnit {
		unitIDs = append(unitIDs, unitID)
	}
	sort.Strings(unitIDs)

	includeDensity := len(densities) > 0
	for _, unitID := range unitIDs {
		if _, ok := densities[unitID]; !ok {
			includeDensity = false
			break
		}
	}

	columns := []string{"temperature", "facility_score"}
	if includeDensity {
		columns = append(columns, "density")
	}

	matrix := &FeatureMatrix{
		UnitIDs: unitIDs,
		Columns: columns,
		Rows:    make([][]float64, 0, len(unitIDs)),
	}
	for _, unitID := range unitIDs {
		row := []float64{
			temperatureFeature(byUnit[unitID]),
			1.0 / (1.0 + float64(facilityCounts[unitID])),
		}
		if includeDensity {
			row = append(row, densities[unitID])
		}
		matrix.Rows = append(matrix.Rows, row)
	}
	return matrix
}

// temperatureFeature reduces a unit's observations to a single value: the
// mean of the classification temperatures inside the trailing window ending
// at the unit's most recent observation.
func temperatureFeature(observations []types.Observation) float64 {
	latest := observations[0].Date
	for _, obs := range observations[1:] {
		if obs.Date.After(latest) {
			latest = obs.Date
		}
	}
	cutoff := latest.Add(-trailingWindow)

	sum, n := 0.0, 0
	for _, obs := range observations {
		if obs.Date.Before(cutoff) {
			continue
		}
		sum += heat.HeatIndexC(obs.TempC, obs.Humidity)
		n++
	}
	return sum / float64(n)
}

// ScaledMatrix is the min-max scaled form of a FeatureMatrix. Degenerate
// records which columns collapsed to a constant and were zeroed.
type ScaledMatrix struct {
	UnitIDs    []string
	Columns    []string
	Rows       [][]float64
	Degenerate []string
}

// Scale normalizes each column to [0,1] with (x-min)/(max-min). A constant
// column has no spread to normalize, so it is zeroed and reported in
// Degenerate rather than producing a division by zero.
func Scale(matrix *FeatureMatrix) *ScaledMatrix {
	scaled := &ScaledMatrix{
		UnitIDs: matrix.UnitIDs,
		Columns: matrix.Columns,
		Rows:    make([][]float64, len(matrix.Rows)),
	}
	for i := range matrix.Rows {
		scaled.Rows[i] = make([]float64, len(matrix.Columns))
	}
	if len(matrix.Rows) == 0 {
		return scaled
	}

	for col := range matrix.Columns {
		min, max := matrix.Rows[0][col], matrix.Rows[0][col]
		for _, row := range matrix.Rows[1:] {
			if row[col] < min {
				min = row[col]
			}
			if row[col] > max {
				max = row[col]
			}
		}

		if max == min {
			scaled.Degenerate = append(scaled.Degenerate, matrix.Columns[col])
			continue
		}
		for i, row := range matrix.Rows {
			scaled.Rows[i][col] = (row[col] - min) / (max - min)
		}
	}
	return scaled
}
