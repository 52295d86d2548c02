// Package config reads the service settings from a YAML file.
package config

import (
	"io"
	"time"
)

// Config is the read-only view of the settings. Missing keys yield the zero
// value. Durations are stored as plain integers; the getter names the unit.
type Config interface {
	io.Closer

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetArray accepts a YAML list or a comma separated string.
	GetArray(key string) []string
}
