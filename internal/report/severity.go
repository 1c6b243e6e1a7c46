package report

import (
	"sort"

	"heatwatch/internal/types"
)

// severity is the equal-weight mean of a value vector over the scaled
// feature space. All features already point the same direction (higher =
// more need), so no per-feature weighting is applied.
func severity(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RankClusters orders clusters by ascending severity and maps rank r to risk
// level r. Ties break on ascending cluster ID so the mapping is stable run
// to run. The returned slice maps cluster ID to level.
func RankClusters(scaled *ScaledMatrix, assignment []int, k int) []types.RiskLevel {
	dims := len(scaled.Columns)
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, row := range scaled.Rows {
		cluster := assignment[i]
		counts[cluster]++
		for d, v := range row {
			sums[cluster][d] += v
		}
	}

	type clusterSeverity struct {
		id       int
		severity float64
	}
	ranked := make([]clusterSeverity, 0, k)
	for cluster := 0; cluster < k; cluster++ {
		means := make([]float64, dims)
		if counts[cluster] > 0 {
			for d := range sums[cluster] {
				means[d] = sums[cluster][d] / float64(counts[cluster])
			}
		}
		ranked = append(ranked, clusterSeverity{id: cluster, severity: severity(means)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].severity != ranked[j].severity {
			return ranked[i].severity < ranked[j].severity
		}
		return ranked[i].id < ranked[j].id
	})

	levels := make([]types.RiskLevel, k)
	for rank, cs := range ranked {
		levels[cs.id] = types.RiskLevel(rank + 1)
	}
	return levels
}

// RankUnits is the degenerate path for inputs with fewer distinct rows than
// clusters: every unit becomes its own cluster and its rank is its level
// directly. Ties break on ascending row order, which is unit ID order.
func RankUnits(scaled *ScaledMatrix) map[string]types.ReportRow {
	type unitSeverity struct {
		idx      int
		severity float64
	}
	ranked := make([]unitSeverity, 0, len(scaled.Rows))
	for i, row := range scaled.Rows {
		ranked = append(ranked, unitSeverity{idx: i, severity: severity(row)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].severity < ranked[j].severity
	})

	rows := make(map[string]types.ReportRow, len(ranked))
	for rank, us := range ranked {
		rows[scaled.UnitIDs[us.idx]] = types.ReportRow{
			RiskLevel: types.RiskLevel(rank + 1),
			ClusterID: us.idx,
		}
	}
	return rows
}
