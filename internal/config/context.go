// Package config carries the telluric context: the defaults used by product operations
// (sensor bands info, GDAL configuration...) when they are not explicitly provided.
//
// Defaults are resolved from two layers:
//   - the scope carried by a context.Context (With, Scoped), which nests and is safe
//     to use from concurrent goroutines
//   - the process-wide defaults (SetDefault, LoadEnv)
//
// The scope always takes precedence over the process-wide defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/airbusgeo/telluric/internal/telluric"
)

// EnvSensorBandsInfo is the environment variable with the path of the default sensor bands info file
const EnvSensorBandsInfo = "TELLURIC_SENSOR_BANDS_INFO"

// Options of a telluric context
type Options struct {
	SensorBandsInfo telluric.SensorBandsInfo
	GDALConfig      map[string]string
}

// Option modifies the options of a telluric context
type Option func(o *Options)

// WithSensorBandsInfo sets the sensor bands info used when it is not provided to an operation
func WithSensorBandsInfo(sbi telluric.SensorBandsInfo) Option {
	sbi = sbi.Clone()
	return func(o *Options) {
		o.SensorBandsInfo = sbi
	}
}

// WithGDALConfig sets a GDAL configuration option, used when datasets are opened
func WithGDALConfig(key, value string) Option {
	return func(o *Options) {
		if o.GDALConfig == nil {
			o.GDALConfig = map[string]string{}
		}
		o.GDALConfig[key] = value
	}
}

func (o Options) clone() Options {
	c := Options{SensorBandsInfo: o.SensorBandsInfo.Clone()}
	if o.GDALConfig != nil {
		c.GDALConfig = make(map[string]string, len(o.GDALConfig))
		for k, v := range o.GDALConfig {
			c.GDALConfig[k] = v
		}
	}
	return c
}

func (o Options) apply(opts ...Option) Options {
	c := o.clone()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// merge returns o overridden by the values defined in scope
func (o Options) merge(scope Options) Options {
	m := o.clone()
	if scope.SensorBandsInfo != nil {
		m.SensorBandsInfo = scope.SensorBandsInfo.Clone()
	}
	for k, v := range scope.GDALConfig {
		if m.GDALConfig == nil {
			m.GDALConfig = map[string]string{}
		}
		m.GDALConfig[k] = v
	}
	return m
}

type contextKey int

const contextKeyOptions contextKey = iota

func scope(ctx context.Context) Options {
	o, _ := ctx.Value(contextKeyOptions).(Options)
	return o
}

// With returns a context carrying the options of the scope of ctx, modified by opts.
// ctx is not modified: leaving the scope (dropping the returned context) restores the previous options.
func With(ctx context.Context, opts ...Option) context.Context {
	return context.WithValue(ctx, contextKeyOptions, scope(ctx).apply(opts...))
}

// Scoped runs fn inside a scope modified by opts.
func Scoped(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	return fn(With(ctx, opts...))
}

// FromContext returns the options of the process-wide defaults overridden by the scope of ctx
func FromContext(ctx context.Context) Options {
	return Default().merge(scope(ctx))
}

// SensorBandsInfo returns the sensor bands info of the telluric context
// Returns MissingSensorBandsInfo
func SensorBandsInfo(ctx context.Context) (telluric.SensorBandsInfo, error) {
	if sbi := FromContext(ctx).SensorBandsInfo; sbi != nil {
		return sbi, nil
	}
	return nil, telluric.NewMissingSensorBandsInfo("no sensor bands info provided and none set in the telluric context")
}

// GDALConfigOptions returns the GDAL configuration options as sorted "KEY=VALUE"
func GDALConfigOptions(ctx context.Context) []string {
	cfg := FromContext(ctx).GDALConfig
	opts := make([]string, 0, len(cfg))
	for k, v := range cfg {
		opts = append(opts, k+"="+v)
	}
	sort.Strings(opts)
	return opts
}

var (
	defaultsMutex sync.RWMutex
	defaults      Options
)

// Default returns a copy of the process-wide defaults
func Default() Options {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()
	return defaults.clone()
}

// SetDefault modifies the process-wide defaults and returns a function restoring the previous ones.
// Nested SetDefault must be restored in reverse order.
func SetDefault(opts ...Option) (restore func()) {
	defaultsMutex.Lock()
	defer defaultsMutex.Unlock()
	previous := defaults
	defaults = defaults.apply(opts...)
	return func() {
		defaultsMutex.Lock()
		defer defaultsMutex.Unlock()
		defaults = previous
	}
}

// LoadEnv loads the process-wide defaults from the environment (see EnvSensorBandsInfo).
// It returns a function restoring the previous defaults.
func LoadEnv() (restore func(), err error) {
	var opts []Option
	if path := os.Getenv(EnvSensorBandsInfo); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadEnv[%s]: %w", EnvSensorBandsInfo, err)
		}
		sbi, err := telluric.ParseSensorBandsInfo(data)
		if err != nil {
			return nil, fmt.Errorf("LoadEnv[%s=%s].%w", EnvSensorBandsInfo, path, err)
		}
		opts = append(opts, WithSensorBandsInfo(sbi))
	}
	return SetDefault(opts...), nil
}
