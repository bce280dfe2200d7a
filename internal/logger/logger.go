// Package logger builds the zap loggers used by the CLI and server.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// JSON switches from the console encoder to structured JSON lines.
	JSON    bool
	Verbose bool
	// Output defaults to stderr so stdout stays free for command output.
	Output io.Writer
}

// New returns a logger for opts.
func New(opts Options) *zap.Logger {
	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var enc zapcore.Encoder
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zap.New(core)
}
