// Package hostconfig loads the configuration of a worker process from its
// environment.
package hostconfig

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/durabletask"
)

// Config is the configuration of a worker process.
type Config struct {
	Address                 string
	TaskHub                 string
	ConcurrencyLimit        uint
	KeepAliveTime           time.Duration
	KeepAliveTimeout        time.Duration
	ConnectionLifetime      time.Duration
	SilentDisconnectTimeout time.Duration
	MetricsAddress          string
	Debug                   bool
}

// DefaultMetricsAddress is the default address on which metrics are served.
const DefaultMetricsAddress = ":9090"

// Load returns the configuration in b.
//
// Keys that are not defined in b take the worker's defaults.
func Load(b config.Bucket) (cfg Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}

			err = fmt.Errorf("invalid configuration: %w", e)
		}
	}()

	return Config{
		Address:                 config.AsStringDefault(b, "DURABLETASK_ADDRESS", durabletask.DefaultAddress),
		TaskHub:                 config.AsStringDefault(b, "DURABLETASK_TASK_HUB", durabletask.DefaultTaskHub),
		ConcurrencyLimit:        config.AsUintDefault(b, "DURABLETASK_CONCURRENCY", durabletask.DefaultConcurrencyLimit),
		KeepAliveTime:           config.AsDurationDefault(b, "DURABLETASK_KEEPALIVE_TIME", durabletask.DefaultKeepAliveTime),
		KeepAliveTimeout:        config.AsDurationDefault(b, "DURABLETASK_KEEPALIVE_TIMEOUT", durabletask.DefaultKeepAliveTimeout),
		ConnectionLifetime:      config.AsDurationDefault(b, "DURABLETASK_CONNECTION_LIFETIME", durabletask.DefaultConnectionLifetime),
		SilentDisconnectTimeout: config.AsDurationDefault(b, "DURABLETASK_SILENT_DISCONNECT_TIMEOUT", 0),
		MetricsAddress:          config.AsStringDefault(b, "DURABLETASK_METRICS_ADDRESS", DefaultMetricsAddress),
		Debug:                   config.AsBoolDefault(b, "DEBUG", false),
	}, nil
}

// WorkerOptions returns the worker options that apply the configuration.
func (c Config) WorkerOptions() []durabletask.WorkerOption {
	return []durabletask.WorkerOption{
		durabletask.WithAddress(c.Address),
		durabletask.WithTaskHub(c.TaskHub),
		durabletask.WithConcurrencyLimit(c.ConcurrencyLimit),
		durabletask.WithKeepAlive(c.KeepAliveTime, c.KeepAliveTimeout),
		durabletask.WithConnectionLifetime(c.ConnectionLifetime),
		durabletask.WithSilentDisconnectTimeout(c.SilentDisconnectTimeout),
	}
}
