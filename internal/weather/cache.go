package weather

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"heatwatch/internal/types"
)

// DedupMode selects how fetch targets are grouped before hitting the
// upstream: by unit identity, or by rounded coordinate so co-located units
// share one reading.
type DedupMode string

const (
	ModeExact   DedupMode = "exact"
	ModeGrouped DedupMode = "grouped"
)

// ParseDedupMode validates a mode string from user input.
func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(strings.ToLower(s)) {
	case ModeExact:
		return ModeExact, nil
	case ModeGrouped:
		return ModeGrouped, nil
	default:
		return "", types.NewAppError(types.ErrCodeValidationInvalidMode,
			fmt.Sprintf("unknown dedup mode %q, expected exact or grouped", s), nil)
	}
}

// KeyFor computes a unit's cache key under the given mode. In grouped mode
// the centroid is rounded to precision decimal places so nearby units
// collapse onto the same key.
func KeyFor(unit types.SpatialUnit, mode DedupMode, precision int) string {
	if mode == ModeGrouped {
		return fmt.Sprintf("%.*f,%.*f", precision, unit.Centroid.Lat, precision, unit.Centroid.Lng)
	}
	return unit.ID
}

// TemperatureCache holds raw upstream readings for a fixed TTL. Only raw
// readings go in: anything derived per request (synthetic spread, heat
// index) is recomputed from the cached raw value so cached and fresh paths
// behave identically.
type TemperatureCache struct {
	mu      sync.Mutex
	entries map[string]types.TemperatureSample
	ttl     time.Duration
	clock   types.Clock
}

// NewTemperatureCache creates a cache with the given TTL. A nil clock falls
// back to real UTC time.
func NewTemperatureCache(ttl time.Duration, clock types.Clock) *TemperatureCache {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &TemperatureCache{
		entries: make(map[string]types.TemperatureSample),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached reading for key if present and still fresh.
// Freshness is strict: an entry exactly at age TTL has expired. Expired
// entries are removed on lookup.
func (c *TemperatureCache) Get(key string) (*types.WeatherReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(sample.InsertedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return &types.WeatherReading{TempC: sample.TempC, Humidity: sample.Humidity}, true
}

// Put stores a raw reading under key, replacing any prior entry and
// restarting its TTL.
func (c *TemperatureCache) Put(key string, reading types.WeatherReading) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = types.TemperatureSample{
		Key:        key,
		TempC:      reading.TempC,
		Humidity:   reading.Humidity,
		InsertedAt: c.clock.Now(),
	}
}

// Sweep drops all expired entries and returns how many were removed. The
// fetch orchestrator calls it once per cycle so the map does not accumulate
// keys for units that stop being requested.
func (c *TemperatureCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, sample := range c.entries {
		if now.Sub(sample.InsertedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held, expired or not.
func (c *TemperatureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
