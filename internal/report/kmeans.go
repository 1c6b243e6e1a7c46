package report

import (
	"math"
	"math/rand"
)

// maxKMeansIterations bounds Lloyd iteration; the pipeline's inputs converge
// in far fewer.
const maxKMeansIterations = 300

// Clusterer runs Lloyd's k-means with a fixed seed so the same rows always
// produce the same assignment and the same cluster numbering.
type Clusterer struct {
	k    int
	seed int64
}

// NewClusterer creates a Clusterer for k clusters with a deterministic seed.
func NewClusterer(k int, seed int64) *Clusterer {
	return &Clusterer{k: k, seed: seed}
}

// Cluster assigns each row to one of k clusters and returns the assignment
// alongside the final centroids. Callers must supply at least k rows; fewer
// rows have no meaningful clustering and are handled by the ranker's
// degenerate path instead.
func (c *Clusterer) Cluster(rows [][]float64) ([]int, [][]float64) {
	rng := rand.New(rand.NewSource(c.seed))

	centroids := c.initCentroids(rows, rng)
	assignment := make([]int, len(rows))

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, row := range rows {
			nearest := nearestCentroid(row, centroids)
			if nearest != assignment[i] {
				assignment[i] = nearest
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		centroids = c.recompute(rows, assignment, centroids)
	}
	return assignment, centroids
}

// initCentroids picks k distinct starting rows with the seeded generator.
func (c *Clusterer) initCentroids(rows [][]float64, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(rows))
	centroids := make([][]float64, c.k)
	for i := 0; i < c.k; i++ {
		centroids[i] = append([]float64(nil), rows[perm[i]]...)
	}
	return centroids
}

// recompute moves each centroid to the mean of its members. A cluster that
// lost all members is re-seeded from the point farthest from its current
// centroid assignment, keeping the k-partition intact deterministically.
func (c *Clusterer) recompute(rows [][]float64, assignment []int, centroids [][]float64) [][]float64 {
	dims := len(rows[0])
	sums := make([][]float64, c.k)
	counts := make([]int, c.k)
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, row := range rows {
		cluster := assignment[i]
		counts[cluster]++
		for d, v := range row {
			sums[cluster][d] += v
		}
	}

	next := make([][]float64, c.k)
	for cluster := 0; cluster < c.k; cluster++ {
		if counts[cluster] == 0 {
			next[cluster] = append([]float64(nil), rows[farthestRow(rows, assignment, centroids)]...)
			continue
		}
		next[cluster] = make([]float64, dims)
		for d := range sums[cluster] {
			next[cluster][d] = sums[cluster][d] / float64(counts[cluster])
		}
	}
	return next
}

// nearestCentroid returns the index of the closest centroid by squared
// Euclidean distance, lowest index winning ties.
func nearestCentroid(row []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// farthestRow returns the index of the row farthest from its assigned
// centroid, lowest index winning ties.
func farthestRow(rows [][]float64, assignment []int, centroids [][]float64) int {
	best, bestDist := 0, -1.0
	for i, row := range rows {
		if d := squaredDistance(row, centroids[assignment[i]]); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
