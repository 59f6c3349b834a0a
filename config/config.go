// Package config reads the matching engine's ambient process
// configuration from the environment. None of the retrieved example
// repos declares a config-file library (spf13/viper appears only as an
// import in one file of abdoElHodaky-tradSys without a corresponding
// go.mod entry, i.e. it is not actually a usable dependency of that
// module either) so this package follows the plainest pattern actually
// present in the pack: a struct populated from os.Getenv with typed
// defaults, the same shape abdoElHodaky-tradSys's pkg/config.Config uses
// for its nested sections, trimmed to what this engine needs.
package config

import (
	"os"
	"strconv"
)

// Config is the full set of environment-tunable knobs for
// cmd/matchingengine.
type Config struct {
	// RedisAddr, when non-empty, selects publish.RedisBus over
	// publish.MemoryBus.
	RedisAddr string

	// PublishThrottleMs is the minimum interval between order-book
	// snapshot publishes for one symbol. 0 forces a publish on every
	// submission.
	PublishThrottleMs int64

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint.
	MetricsAddr string

	// LogLevel selects the zap logging level: "debug", "info", "warn" or
	// "error".
	LogLevel string
}

// FromEnv reads Config from the process environment, applying the
// documented defaults for anything unset.
func FromEnv() Config {
	return Config{
		RedisAddr:         os.Getenv("MATCHINGENGINE_REDIS_ADDR"),
		PublishThrottleMs: envInt64("MATCHINGENGINE_PUBLISH_THROTTLE_MS", 50),
		MetricsAddr:       envString("MATCHINGENGINE_METRICS_ADDR", ":9090"),
		LogLevel:          envString("MATCHINGENGINE_LOG_LEVEL", "info"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
