package hostconfig_test

import (
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/durabletask"
	. "github.com/dogmatiq/durabletask/internal/hostconfig"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Load()", func() {
	It("uses the worker defaults for undefined keys", func() {
		cfg, err := Load(config.Map{})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(cfg).To(Equal(Config{
			Address:            durabletask.DefaultAddress,
			TaskHub:            durabletask.DefaultTaskHub,
			ConcurrencyLimit:   durabletask.DefaultConcurrencyLimit,
			KeepAliveTime:      durabletask.DefaultKeepAliveTime,
			KeepAliveTimeout:   durabletask.DefaultKeepAliveTimeout,
			ConnectionLifetime: durabletask.DefaultConnectionLifetime,
			MetricsAddress:     DefaultMetricsAddress,
		}))
	})

	It("reads each key", func() {
		cfg, err := Load(config.Map{
			"DURABLETASK_ADDRESS":                   config.String("https://engine.example.org:443"),
			"DURABLETASK_TASK_HUB":                  config.String("<hub>"),
			"DURABLETASK_CONCURRENCY":               config.String("8"),
			"DURABLETASK_KEEPALIVE_TIME":            config.String("10s"),
			"DURABLETASK_KEEPALIVE_TIMEOUT":         config.String("5s"),
			"DURABLETASK_CONNECTION_LIFETIME":       config.String("1h"),
			"DURABLETASK_SILENT_DISCONNECT_TIMEOUT": config.String("2m"),
			"DURABLETASK_METRICS_ADDRESS":           config.String(":9999"),
			"DEBUG":                                 config.String("true"),
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(cfg).To(Equal(Config{
			Address:                 "https://engine.example.org:443",
			TaskHub:                 "<hub>",
			ConcurrencyLimit:        8,
			KeepAliveTime:           10 * time.Second,
			KeepAliveTimeout:        5 * time.Second,
			ConnectionLifetime:      time.Hour,
			SilentDisconnectTimeout: 2 * time.Minute,
			MetricsAddress:          ":9999",
			Debug:                   true,
		}))
	})

	It("returns an error if a value is invalid", func() {
		_, err := Load(config.Map{
			"DURABLETASK_CONNECTION_LIFETIME": config.String("<not a duration>"),
		})
		Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
	})
})

var _ = Describe("func Config.WorkerOptions()", func() {
	It("returns an option for each setting", func() {
		cfg, err := Load(config.Map{})
		Expect(err).ShouldNot(HaveOccurred())

		options := cfg.WorkerOptions()
		Expect(options).To(HaveLen(6))
		Expect(func() {
			durabletask.New(options...)
		}).NotTo(Panic())
	})
})
