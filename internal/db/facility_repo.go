package db

import (
	"context"

	"heatwatch/internal/types"
)

// FacilityRepository exposes the facility directory counts the batch feature
// builder needs. The facility CRUD itself lives in an external service; this
// repository only reads the per-unit aggregate.
type FacilityRepository struct {
	db DBTX
}

// NewFacilityRepository creates a new FacilityRepository backed by the given
// database connection (pool or transaction).
func NewFacilityRepository(db DBTX) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// CountsByCity returns the number of health facilities per unit for a city.
// Units with no facilities are absent from the map; callers treat absence as
// zero.
func (r *FacilityRepository) CountsByCity(ctx context.Context, cityKey string) (map[string]int, error) {
	const query = `
		SELECT f.unit_id, COUNT(*)
		FROM facilities f
		JOIN spatial_units u ON u.id = f.unit_id
		WHERE u.city_key = $1
		GROUP BY f.unit_id`

	rows, err := r.db.Query(ctx, query, cityKey)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"failed to query facility counts", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var unitID string
		var count int
		if err := rows.Scan(&unitID, &count); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB,
				"failed to scan facility count row", err)
		}
		counts[unitID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"error iterating facility count rows", err)
	}

	return counts, nil
}
