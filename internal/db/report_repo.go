package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"heatwatch/internal/types"
)

// ReportRepository persists the single "latest report" row per scope. Each
// successful write replaces the previous blob wholesale; no history is kept.
// Report rows are stored as a zstd-compressed JSON blob: reports carry one
// entry per spatial unit and compress well.
type ReportRepository struct {
	db      DBTX
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewReportRepository creates a new ReportRepository backed by the given
// database connection (pool or transaction).
func NewReportRepository(db DBTX) *ReportRepository {
	// Both constructors only fail on invalid options; none are passed here.
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
	return &ReportRepository{db: db, encoder: enc, decoder: dec}
}

// Replace stores the report as the current one for its scope, overwriting any
// previous report in a single statement so readers never observe a partial
// write.
func (r *ReportRepository) Replace(ctx context.Context, report *types.Report) error {
	blob, err := json.Marshal(report.Rows)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to marshal report rows", err)
	}
	compressed := r.encoder.EncodeAll(blob, nil)

	const query = `
		INSERT INTO reports (scope, report_id, report_date, generated_at, rows_blob)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope)
		DO UPDATE SET report_id = EXCLUDED.report_id,
		              report_date = EXCLUDED.report_date,
		              generated_at = EXCLUDED.generated_at,
		              rows_blob = EXCLUDED.rows_blob`

	_, err = r.db.Exec(ctx, query,
		report.Scope, report.ID, report.ReportDate, report.GeneratedAt, compressed)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB,
			"failed to replace report", err)
	}
	return nil
}

// Latest returns the current report for a scope, or nil when none exists.
func (r *ReportRepository) Latest(ctx context.Context, scope string) (*types.Report, error) {
	const query = `
		SELECT report_id, report_date, generated_at, rows_blob
		FROM reports
		WHERE scope = $1`

	var (
		report     types.Report
		compressed []byte
	)
	report.Scope = scope

	err := r.db.QueryRow(ctx, query, scope).Scan(
		&report.ID, &report.ReportDate, &report.GeneratedAt, &compressed)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"failed to query latest report", err)
	}

	blob, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to decompress report blob", err)
	}
	if err := json.Unmarshal(blob, &report.Rows); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to unmarshal report rows", err)
	}

	return &report, nil
}

// Meta returns availability and timestamps for a scope without loading the
// row blob.
func (r *ReportRepository) Meta(ctx context.Context, scope string) (*types.ReportMeta, error) {
	const query = `
		SELECT report_date, generated_at
		FROM reports
		WHERE scope = $1`

	var reportDate, generatedAt time.Time
	err := r.db.QueryRow(ctx, query, scope).Scan(&reportDate, &generatedAt)
	if err == pgx.ErrNoRows {
		return &types.ReportMeta{Available: false}, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"failed to query report meta", err)
	}

	return &types.ReportMeta{
		Available:   true,
		ReportDate:  reportDate,
		GeneratedAt: generatedAt,
	}, nil
}
