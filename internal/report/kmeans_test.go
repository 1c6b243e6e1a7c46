package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterDeterministic(t *testing.T) {
	rows := [][]float64{
		{0.1, 0.2}, {0.15, 0.22}, {0.5, 0.5}, {0.52, 0.48},
		{0.9, 0.9}, {0.88, 0.93}, {0.3, 0.7}, {0.7, 0.3},
		{0.05, 0.95}, {0.95, 0.05},
	}

	clusterer := NewClusterer(5, 42)
	first, firstCentroids := clusterer.Cluster(rows)
	for range 5 {
		again, againCentroids := NewClusterer(5, 42).Cluster(rows)
		assert.Equal(t, first, again)
		assert.Equal(t, firstCentroids, againCentroids)
	}
}

func TestClusterSeparatesObviousGroups(t *testing.T) {
	// Two tight groups far apart, k=2: members of each group must share a
	// cluster and the groups must differ.
	rows := [][]float64{
		{0.0, 0.0}, {0.02, 0.01}, {0.01, 0.03},
		{1.0, 1.0}, {0.98, 0.99}, {0.99, 0.97},
	}

	assignment, centroids := NewClusterer(2, 42).Cluster(rows)

	require.Len(t, assignment, 6)
	require.Len(t, centroids, 2)
	assert.Equal(t, assignment[0], assignment[1])
	assert.Equal(t, assignment[0], assignment[2])
	assert.Equal(t, assignment[3], assignment[4])
	assert.Equal(t, assignment[3], assignment[5])
	assert.NotEqual(t, assignment[0], assignment[3])
}

func TestClusterAssignsEveryRow(t *testing.T) {
	rows := [][]float64{
		{0.1}, {0.2}, {0.3}, {0.4}, {0.5}, {0.6}, {0.7},
	}

	assignment, _ := NewClusterer(5, 42).Cluster(rows)

	require.Len(t, assignment, len(rows))
	for _, cluster := range assignment {
		assert.GreaterOrEqual(t, cluster, 0)
		assert.Less(t, cluster, 5)
	}
}
