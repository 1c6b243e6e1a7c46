package db

import (
	"context"
	"time"

	"heatwatch/internal/types"
)

// ObservationRepository stores per-unit daily temperature observations, the
// input history for the batch feature builder. Only the trailing window the
// rolling mean needs is ever read back; no further history retention is
// promised.
type ObservationRepository struct {
	db DBTX
}

// NewObservationRepository creates a new ObservationRepository backed by the
// given database connection (pool or transaction).
func NewObservationRepository(db DBTX) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Record upserts one observation per unit per date. Re-recording the same
// unit/date replaces the previous values.
func (r *ObservationRepository) Record(ctx context.Context, cityKey string, obs types.Observation) error {
	const query = `
		INSERT INTO observations (city_key, unit_id, obs_date, temp_c, humidity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (city_key, unit_id, obs_date)
		DO UPDATE SET temp_c = EXCLUDED.temp_c, humidity = EXCLUDED.humidity`

	_, err := r.db.Exec(ctx, query, cityKey, obs.UnitID, obs.Date, obs.TempC, obs.Humidity)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB,
			"failed to record observation", err)
	}
	return nil
}

// ListSince returns observations for a city on or after the given date,
// ordered by unit then date so the feature builder can compute trailing means
// in one pass.
func (r *ObservationRepository) ListSince(ctx context.Context, cityKey string, since time.Time) ([]types.Observation, error) {
	const query = `
		SELECT o.unit_id, o.obs_date, o.temp_c, o.humidity
		FROM observations o
		WHERE o.city_key = $1 AND o.obs_date >= $2
		ORDER BY o.unit_id, o.obs_date`

	rows, err := r.db.Query(ctx, query, cityKey, since)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"failed to query observations", err)
	}
	defer rows.Close()

	var observations []types.Observation
	for rows.Next() {
		var obs types.Observation
		if err := rows.Scan(&obs.UnitID, &obs.Date, &obs.TempC, &obs.Humidity); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB,
				"failed to scan observation row", err)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"error iterating observation rows", err)
	}

	return observations, nil
}
