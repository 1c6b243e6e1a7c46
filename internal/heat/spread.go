package heat

import (
	"math"
	"sort"

	"heatwatch/internal/types"
)

// autoSpreadCapC is the spread applied when no cap is configured but every
// resolved temperature in the cycle is identical.
const autoSpreadCapC = 1.0

// ApplySpread differentiates per-unit temperatures by population density.
// Units are ranked density ascending (unknown density sorts lowest, ties
// break on unit ID) and each temperature is raised by rank-proportional
// fraction of the cap, rounded to one decimal. It runs at most once per
// fetch cycle, on raw resolved values only.
//
// With a configured cap > 0 the spread always applies. With no cap it
// applies only when more than one unit resolved and all temperatures are
// identical, using autoSpreadCapC. Otherwise temps is returned unchanged.
func ApplySpread(units []types.SpatialUnit, temps map[string]float64, capC float64) map[string]float64 {
	spreadCap := capC
	if spreadCap <= 0 {
		if !allIdentical(temps) || len(temps) < 2 {
			return temps
		}
		spreadCap = autoSpreadCapC
	}
	if len(temps) < 2 {
		return temps
	}

	ranked := make([]types.SpatialUnit, 0, len(temps))
	for _, unit := range units {
		if _, ok := temps[unit.ID]; ok {
			ranked = append(ranked, unit)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		di, dj := densityOf(ranked[i]), densityOf(ranked[j])
		if di != dj {
			return di < dj
		}
		return ranked[i].ID < ranked[j].ID
	})

	adjusted := make(map[string]float64, len(temps))
	n := len(ranked)
	for idx, unit := range ranked {
		p := float64(idx) / float64(n-1)
		adjusted[unit.ID] = round1(temps[unit.ID] + p*spreadCap)
	}
	return adjusted
}

func densityOf(unit types.SpatialUnit) float64 {
	if unit.Density == nil {
		return math.Inf(-1)
	}
	return *unit.Density
}

func allIdentical(temps map[string]float64) bool {
	var first float64
	seen := false
	for _, t := range temps {
		if !seen {
			first, seen = t, true
			continue
		}
		if t != first {
			return false
		}
	}
	return true
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
