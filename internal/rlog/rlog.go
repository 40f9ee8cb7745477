// Package rlog wires up the sender's base logger: a logrus.Logger with a
// timestamped text formatter, wrapped as a dlog.Logger and attached to a
// context.Context (logrus.New + dlog.WrapLogrus + dlog.SetFallbackLogger
// + dlog.WithLogger).
package rlog

import (
	"context"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
)

// WithBaseLogger attaches a logrus-backed dlog.Logger to ctx. level is a
// logrus level name ("debug", "info", "warn", ...); an empty or invalid
// value falls back to "info".
func WithBaseLogger(ctx context.Context, level string) context.Context {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	dl := dlog.WrapLogrus(logger)
	dlog.SetFallbackLogger(dl)
	return dlog.WithLogger(ctx, dl)
}
