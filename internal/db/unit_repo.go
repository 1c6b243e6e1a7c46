package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"heatwatch/internal/types"
)

// UnitRepository provides read access to the spatial_units table: one row per
// administrative unit with its centroid and optional density/area metadata.
// Units are loaded by city key and treated as immutable by the rest of the
// service.
type UnitRepository struct {
	db DBTX
}

// NewUnitRepository creates a new UnitRepository backed by the given database
// connection (pool or transaction).
func NewUnitRepository(db DBTX) *UnitRepository {
	return &UnitRepository{db: db}
}

const unitColumns = `u.id, u.name, u.centroid_lat, u.centroid_lng, u.density, u.area_km2`

// ListByCity returns all spatial units for a city key, ordered by unit ID for
// deterministic downstream processing. An unknown city yields an empty slice,
// not an error.
func (r *UnitRepository) ListByCity(ctx context.Context, cityKey string) ([]types.SpatialUnit, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM spatial_units u
		WHERE u.city_key = $1
		ORDER BY u.id`, unitColumns)

	rows, err := r.db.Query(ctx, query, cityKey)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"failed to query spatial units", err)
	}
	defer rows.Close()

	var units []types.SpatialUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB,
				"failed to scan spatial unit row", err)
		}
		units = append(units, *unit)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"error iterating spatial unit rows", err)
	}

	return units, nil
}

// scanUnit scans a single spatial unit row. The columns must match the order
// defined in unitColumns.
func scanUnit(row pgx.Row) (*types.SpatialUnit, error) {
	var u types.SpatialUnit
	var (
		name    *string
		density *float64
		area    *float64
	)

	err := row.Scan(&u.ID, &name, &u.Centroid.Lat, &u.Centroid.Lng, &density, &area)
	if err != nil {
		return nil, err
	}

	if name != nil {
		u.Name = *name
	}
	u.Density = density
	u.AreaKm2 = area
	return &u, nil
}
