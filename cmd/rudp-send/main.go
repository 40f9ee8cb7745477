// Command rudp-send is the file-transfer sender: it listens on a UDP port
// for REQUEST packets and serves one file transfer at a time, using a
// selective-repeat sliding window with per-packet retransmission timers and
// optional TCP-style congestion control.
//
// A cobra.Command binds flags into a config struct, a base logger and
// optional metrics server are attached to the context, and a dgroup.Group
// supervises the engine with signal handling enabled.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tspeterkim/CS118-Lab2/internal/config"
	"github.com/tspeterkim/CS118-Lab2/internal/filesource"
	"github.com/tspeterkim/CS118-Lab2/internal/metrics"
	"github.com/tspeterkim/CS118-Lab2/internal/rlog"
	"github.com/tspeterkim/CS118-Lab2/internal/transfer"
)

const processName = "rudp-send"

func main() {
	ctx := context.Background()
	ctx = dgroup.WithGoroutineName(ctx, "/"+processName)

	var (
		cfg      config.Config
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          processName,
		Short:        "Reliable file-transfer sender over UDP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Main(cmd.Context(), cfg, logLevel)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.Port, "port", "p", 0, "UDP port to listen on (required)")
	flags.IntVarP(&cfg.WindowBytes, "window", "w", config.DefaultWindowBytes, "sliding window size in bytes (1000-15000, multiple of 1000)")
	flags.IntVarP(&cfg.TimeoutMs, "timeout", "t", config.DefaultTimeoutMs, "retransmission timeout in milliseconds")
	flags.Float64VarP(&cfg.PLoss, "loss", "l", config.DefaultPLoss, "probability in [0,1] of dropping a received ack")
	flags.Float64VarP(&cfg.PCorrupt, "corrupt", "c", config.DefaultPCorrupt, "probability in [0,1] of corrupting a received ack")
	flags.BoolVarP(&cfg.CongestionMode, "congestion", "x", config.DefaultCongestion, "enable TCP-style congestion control")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("port")

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main validates cfg, wires up logging/metrics/transport, and runs the
// engine until ctx is cancelled or a fatal error occurs.
func Main(ctx context.Context, cfg config.Config, logLevel string) error {
	env, err := config.LoadEnv(ctx)
	if err != nil {
		return err
	}
	applyEnvDefaults(&cfg, env)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx = rlog.WithBaseLogger(ctx, logLevel)

	addr := &net.UDPAddr{Port: cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("binding udp port %d: %w", cfg.Port, err)
	}
	defer conn.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	source := filesource.New()
	eng := transfer.New(conn, source, cfg, m, randSource())

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		SoftShutdownTimeout:  2 * time.Second,
		EnableSignalHandling: true,
		ShutdownOnNonError:   true,
	})

	if cfg.MetricsAddr != "" {
		grp.Go("metrics", func(ctx context.Context) error {
			return metrics.Serve(ctx, cfg.MetricsAddr, reg)
		})
	}
	grp.Go("engine", eng.Run)

	dlog.Infof(ctx, "listening on udp :%d (window=%dB timeout=%dms congestion=%v)",
		cfg.Port, cfg.WindowBytes, cfg.TimeoutMs, cfg.CongestionMode)

	return grp.Wait()
}

// randSource seeds the fault injector's PRNG for a production run. Tests
// construct the engine directly with a fixed rand.NewSource instead.
func randSource() rand.Source {
	return rand.NewSource(time.Now().UnixNano())
}

// applyEnvDefaults fills in cfg fields left at their flag defaults from the
// environment, so RUDP_* env vars can override unset flags in deployments
// that don't pass them explicitly. Only fields still at their zero/default
// values are replaced, so a flag passed with a non-default value wins; a
// flag passed explicitly with its default value is replaced like an unset
// one.
func applyEnvDefaults(cfg *config.Config, env config.Env) {
	if cfg.Port == 0 {
		cfg.Port = env.Port
	}
	if cfg.WindowBytes == config.DefaultWindowBytes && env.WindowBytes != 0 {
		cfg.WindowBytes = env.WindowBytes
	}
	if cfg.TimeoutMs == config.DefaultTimeoutMs && env.TimeoutMs != 0 {
		cfg.TimeoutMs = env.TimeoutMs
	}
	if cfg.PLoss == config.DefaultPLoss && env.PLoss != 0 {
		cfg.PLoss = env.PLoss
	}
	if cfg.PCorrupt == config.DefaultPCorrupt && env.PCorrupt != 0 {
		cfg.PCorrupt = env.PCorrupt
	}
	if !cfg.CongestionMode && env.Congestion {
		cfg.CongestionMode = env.Congestion
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = env.MetricsAddr
	}
}
