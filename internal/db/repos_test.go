package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"heatwatch/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

type mockRows struct {
	data    [][]any
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newMockRows(data [][]any) *mockRows {
	return &mockRows{data: data, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case **string:
			if row[i] == nil {
				*v = nil
			} else {
				s := row[i].(string)
				*v = &s
			}
		case *int:
			*v = row[i].(int)
		case *float64:
			*v = row[i].(float64)
		case **float64:
			if row[i] == nil {
				*v = nil
			} else {
				f := row[i].(float64)
				*v = &f
			}
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// --- UnitRepository Tests ---

func TestUnitRepository_ListByCity(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUnitRepository(db)

	rows := newMockRows([][]any{
		{"brgy-001", "Agdao", 7.0903, 125.6129, 12000.5, 1.2},
		{"brgy-002", nil, 7.1001, 125.6200, nil, nil},
	})

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	units, err := repo.ListByCity(context.Background(), "davao")
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "brgy-001", units[0].ID)
	assert.Equal(t, "Agdao", units[0].Name)
	assert.Equal(t, 7.0903, units[0].Centroid.Lat)
	require.NotNil(t, units[0].Density)
	assert.Equal(t, 12000.5, *units[0].Density)

	assert.Equal(t, "brgy-002", units[1].ID)
	assert.Empty(t, units[1].Name)
	assert.Nil(t, units[1].Density)
	assert.Nil(t, units[1].AreaKm2)

	db.AssertExpectations(t)
}

func TestUnitRepository_ListByCity_Empty(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUnitRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(nil), nil)

	units, err := repo.ListByCity(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestUnitRepository_ListByCity_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUnitRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := repo.ListByCity(context.Background(), "davao")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

// --- FacilityRepository Tests ---

func TestFacilityRepository_CountsByCity(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFacilityRepository(db)

	rows := newMockRows([][]any{
		{"brgy-001", 3},
		{"brgy-002", 1},
	})

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	counts, err := repo.CountsByCity(context.Background(), "davao")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"brgy-001": 3, "brgy-002": 1}, counts)
}

// --- ObservationRepository Tests ---

func TestObservationRepository_Record(t *testing.T) {
	db := new(mockDBTX)
	repo := NewObservationRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	humidity := 85.0
	err := repo.Record(context.Background(), "davao", types.Observation{
		UnitID:   "brgy-001",
		Date:     time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		TempC:    33.4,
		Humidity: &humidity,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestObservationRepository_ListSince(t *testing.T) {
	db := new(mockDBTX)
	repo := NewObservationRepository(db)

	day := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	rows := newMockRows([][]any{
		{"brgy-001", day, 33.4, 85.0},
		{"brgy-001", day.AddDate(0, 0, 1), 34.1, nil},
	})

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	obs, err := repo.ListSince(context.Background(), "davao", day)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	require.NotNil(t, obs[0].Humidity)
	assert.Equal(t, 85.0, *obs[0].Humidity)
	assert.Nil(t, obs[1].Humidity)
}

// --- ReportRepository Tests ---

func TestReportRepository_ReplaceAndLatest_RoundTrip(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReportRepository(db)

	report := &types.Report{
		ID:          "rep-1",
		Scope:       "davao",
		ReportDate:  time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2026, 4, 20, 6, 0, 0, 0, time.UTC),
		Rows: map[string]types.ReportRow{
			"brgy-001": {RiskLevel: types.RiskDanger, ClusterID: 3},
			"brgy-002": {RiskLevel: types.RiskCaution, ClusterID: 0},
		},
	}

	// Capture the compressed blob written by Replace.
	var storedBlob []byte
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			sqlArgs := args.Get(2).([]any)
			storedBlob = sqlArgs[4].([]byte)
		}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.Replace(context.Background(), report))
	require.NotEmpty(t, storedBlob)

	// Feed the captured blob back through Latest.
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*string)) = report.ID
			*(dest[1].(*time.Time)) = report.ReportDate
			*(dest[2].(*time.Time)) = report.GeneratedAt
			*(dest[3].(*[]byte)) = storedBlob
			return nil
		}})

	got, err := repo.Latest(context.Background(), "davao")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, report.Rows, got.Rows)
	assert.Equal(t, report.ReportDate, got.ReportDate)
}

func TestReportRepository_Latest_NoRows(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReportRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	got, err := repo.Latest(context.Background(), "davao")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReportRepository_Meta(t *testing.T) {
	db := new(mockDBTX)
	repo := NewReportRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows}).Once()

	meta, err := repo.Meta(context.Background(), "davao")
	require.NoError(t, err)
	assert.False(t, meta.Available)

	reportDate := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	generatedAt := reportDate.Add(6 * time.Hour)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*time.Time)) = reportDate
			*(dest[1].(*time.Time)) = generatedAt
			return nil
		}}).Once()

	meta, err = repo.Meta(context.Background(), "davao")
	require.NoError(t, err)
	assert.True(t, meta.Available)
	assert.Equal(t, generatedAt, meta.GeneratedAt)
}
