package types

import (
	"time"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SpatialUnit is the smallest administrative area tracked by the platform
// (a barangay in the original deployment). Units are immutable once loaded:
// they are owned by the geo provider and cached for the process lifetime.
type SpatialUnit struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Centroid Coordinate `json:"centroid"`

	// Density is population per km2 when known. Units without density sort
	// lowest in the synthetic spread ranking.
	Density *float64 `json:"density,omitempty"`
	AreaKm2 *float64 `json:"area_km2,omitempty"`
}

// WeatherReading is a single resolved upstream observation for a coordinate.
type WeatherReading struct {
	TempC    float64  `json:"temp_c"`
	Humidity *float64 `json:"humidity,omitempty"` // percent, 0-100
}

// TemperatureSample is a cached weather reading keyed by its dedup key
// (unit ID in exact mode, rounded coordinate in grouped mode). Samples are
// owned exclusively by the temperature cache, replaced on refetch, and
// expire once older than the cache TTL.
type TemperatureSample struct {
	Key        string
	TempC      float64
	Humidity   *float64
	InsertedAt time.Time
}

// RiskLevel is an ordinal heat risk category, 1 (lowest) through 5 (highest).
// The scale makes no claim about equal spacing between levels.
type RiskLevel int

const (
	RiskNotHazardous   RiskLevel = 1
	RiskCaution        RiskLevel = 2
	RiskExtremeCaution RiskLevel = 3
	RiskDanger         RiskLevel = 4
	RiskExtremeDanger  RiskLevel = 5
)

// riskLabels maps each level to its published label.
var riskLabels = map[RiskLevel]string{
	RiskNotHazardous:   "Not Hazardous",
	RiskCaution:        "Caution",
	RiskExtremeCaution: "Extreme Caution",
	RiskDanger:         "Danger",
	RiskExtremeDanger:  "Extreme Danger",
}

// Label returns the human-readable label for the level, or "Unknown" for
// values outside 1-5.
func (l RiskLevel) Label() string {
	if label, ok := riskLabels[l]; ok {
		return label
	}
	return "Unknown"
}

// Valid reports whether the level is within the ordinal scale.
func (l RiskLevel) Valid() bool {
	return l >= RiskNotHazardous && l <= RiskExtremeDanger
}

// Score returns the normalized score for the level: (level-1)/4 exactly.
// The score is a pure function of the level and nothing else, so it stays
// auditable against the single classified temperature input.
func (l RiskLevel) Score() float64 {
	return float64(l-1) / 4
}

// RiskAssessment is the per-unit output of the real-time path. It is
// computed per request and never persisted.
type RiskAssessment struct {
	UnitID     string    `json:"unit_id"`
	TempC      float64   `json:"temp_c"`
	HeatIndexC *float64  `json:"heat_index_c,omitempty"`
	Level      RiskLevel `json:"level"`
	Label      string    `json:"label"`
	Score      float64   `json:"score"`
}

// Observation is one historical temperature row for a unit, consumed by the
// batch feature builder. Humidity is carried through so the builder can use
// the heat index as the temperature feature when upstream supplied it.
type Observation struct {
	UnitID   string    `json:"unit_id"`
	Date     time.Time `json:"date"`
	TempC    float64   `json:"temp_c"`
	Humidity *float64  `json:"humidity,omitempty"`
}

// ReportRow is the per-unit entry of a prioritization report.
type ReportRow struct {
	RiskLevel RiskLevel `json:"risk_level"`
	ClusterID int       `json:"cluster_id"`
}

// Report is the batch output for one scope (e.g. one city). Exactly one
// current report exists per scope; each successful generate or upload
// replaces it wholesale, never partially.
type Report struct {
	ID          string               `json:"id"`
	Scope       string               `json:"scope"`
	ReportDate  time.Time            `json:"report_date"`
	GeneratedAt time.Time            `json:"generated_at"`
	Rows        map[string]ReportRow `json:"rows"`
}

// ReportMeta is the availability view of a stored report: no rows, just
// whether one exists and when it was generated.
type ReportMeta struct {
	Available   bool      `json:"available"`
	ReportDate  time.Time `json:"report_date,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
}
