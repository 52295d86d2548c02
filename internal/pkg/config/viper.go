package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Viper implements Config. A file-backed instance reloads itself when the
// file changes, so values read per request follow edits without a restart.
type Viper struct {
	v *viper.Viper
}

func NewViper(file string) (*Viper, error) {
	v := viper.New()
	v.SetConfigFile(file)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", file, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config reloaded", "path", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes parses data of the given type ("yaml", "json"...).
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config: type is required")
	}

	v := viper.New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configType, err)
	}

	return &Viper{v: v}, nil
}

func (c *Viper) GetString(key string) string   { return c.v.GetString(key) }
func (c *Viper) GetBool(key string) bool       { return c.v.GetBool(key) }
func (c *Viper) GetInt(key string) int         { return c.v.GetInt(key) }
func (c *Viper) GetInt32(key string) int32     { return c.v.GetInt32(key) }
func (c *Viper) GetInt64(key string) int64     { return c.v.GetInt64(key) }
func (c *Viper) GetUint64(key string) uint64   { return c.v.GetUint64(key) }
func (c *Viper) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

func (c *Viper) GetMillisecond(key string) time.Duration { return c.duration(key, time.Millisecond) }
func (c *Viper) GetSecond(key string) time.Duration      { return c.duration(key, time.Second) }
func (c *Viper) GetMinute(key string) time.Duration      { return c.duration(key, time.Minute) }
func (c *Viper) GetHour(key string) time.Duration        { return c.duration(key, time.Hour) }

func (c *Viper) duration(key string, unit time.Duration) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * unit
}

func (c *Viper) GetArray(key string) []string {
	var items []string
	if s, ok := c.v.Get(key).(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = c.v.GetStringSlice(key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (*Viper) Close() error { return nil }
