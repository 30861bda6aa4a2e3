package migrate

import (
	"time"
)

// The migrator works on the raw decoded JSON (map[string]any) because the
// whole point is to repair documents that do not yet fit the typed model.
// Every accessor tolerates missing keys and wrong types: legacy snapshots
// from the field arrive in every imaginable half-migrated shape.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// ensureMap returns parent[key] as a map, creating it when missing or when
// a scalar is squatting on the key.
func ensureMap(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	parent[key] = m
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// timeLayouts are the formats observed in legacy snapshots, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeTimestamp parses a legacy datetime string and re-renders it as
// UTC RFC3339. Unparseable values are returned unchanged with ok=false so
// callers can decide between keeping and dropping them.
func normalizeTimestamp(s string) (string, bool) {
	if s == "" {
		return s, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), true
		}
	}
	return s, false
}

// roundedPoints rounds to the stored 2-decimal precision.
func roundedPoints(f float64) float64 {
	if f >= 0 {
		return float64(int64(f*100+0.5)) / 100
	}
	return float64(int64(f*100-0.5)) / 100
}
