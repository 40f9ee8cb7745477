// Package config defines the sender's runtime configuration: CLI flags
// bound via spf13/pflag (wired into cobra in cmd/rudp-send), an
// environment-variable layer read with sethvargo/go-envconfig that fills
// fields the flags left at their defaults, and validation that aggregates every problem
// with hashicorp/go-multierror instead of bailing on the first bad flag.
package config

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

// Defaults for the sliding window, retransmission timeout, and fault-injection probabilities.
const (
	DefaultWindowBytes  = 5000
	DefaultTimeoutMs    = 10000
	DefaultPLoss        = 0
	DefaultPCorrupt     = 0
	DefaultCongestion   = false
	minWindowPackets    = 1
	maxWindowPackets    = 15
	packetSizeBytes     = 1000
)

// ErrConfig marks a configuration validation failure.
var ErrConfig = errors.New("config")

// Env holds values sourced from the process environment, applied after
// flag parsing to the fields the CLI flags left at their defaults.
type Env struct {
	Port         int     `env:"RUDP_PORT"`
	WindowBytes  int     `env:"RUDP_WINDOW_BYTES,default=5000"`
	TimeoutMs    int     `env:"RUDP_TIMEOUT_MS,default=10000"`
	PLoss        float64 `env:"RUDP_P_LOSS,default=0"`
	PCorrupt     float64 `env:"RUDP_P_CORRUPT,default=0"`
	Congestion   bool    `env:"RUDP_CONGESTION,default=false"`
	MetricsAddr  string  `env:"RUDP_METRICS_ADDR"`
}

// LoadEnv reads environment overrides into an Env.
func LoadEnv(ctx context.Context) (Env, error) {
	var e Env
	if err := envconfig.Process(ctx, &e); err != nil {
		return Env{}, errors.Wrap(err, "reading environment configuration")
	}
	return e, nil
}

// Config is the fully resolved, validated sender configuration.
type Config struct {
	Port            int
	WindowBytes     int
	TimeoutMs       int
	PLoss           float64
	PCorrupt        float64
	CongestionMode  bool
	MetricsAddr     string
}

// WindowCapPackets returns the configured window expressed in whole
// packets (the byte size is always a multiple of PacketSize once
// validated).
func (c Config) WindowCapPackets() int {
	return c.WindowBytes / packetSizeBytes
}

// Validate checks every field and returns a single aggregated error
// (via multierror) naming every problem found, not just the first.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Port <= 0 || c.Port > 65535 {
		result = multierror.Append(result, errors.Wrapf(ErrConfig, "port %d out of range [1,65535]", c.Port))
	}
	if c.WindowBytes%packetSizeBytes != 0 {
		result = multierror.Append(result, errors.Wrapf(ErrConfig, "window bytes %d must be a multiple of %d", c.WindowBytes, packetSizeBytes))
	} else {
		wp := c.WindowBytes / packetSizeBytes
		if wp < minWindowPackets || wp > maxWindowPackets {
			result = multierror.Append(result, errors.Wrapf(ErrConfig, "window size %d bytes must be between %d and %d", c.WindowBytes, minWindowPackets*packetSizeBytes, maxWindowPackets*packetSizeBytes))
		}
	}
	if c.TimeoutMs <= 0 {
		result = multierror.Append(result, errors.Wrapf(ErrConfig, "timeout %dms must be positive", c.TimeoutMs))
	}
	if c.PLoss < 0 || c.PLoss > 1 {
		result = multierror.Append(result, errors.Wrapf(ErrConfig, "loss probability %v must be within [0,1]", c.PLoss))
	}
	if c.PCorrupt < 0 || c.PCorrupt > 1 {
		result = multierror.Append(result, errors.Wrapf(ErrConfig, "corruption probability %v must be within [0,1]", c.PCorrupt))
	}
	return result.ErrorOrNil()
}
