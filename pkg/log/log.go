// Package log builds the proxy's structured logger.
//
// Grounded on the teacher's server/mod/accesslog.go: a zap core wired
// to a rotating lumberjack sink, plus main.go's pattern of stamping
// every line with "ts" and "pid". Here the logger doubles as the
// proxy's access log — one line per accepted connection and one per
// completed relay/tunnel.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the base logger. path == "" writes to stderr.
func New(path string, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if path == "" {
		sink = zapcore.AddSync(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:  path,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			LocalTime: true,
		})
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), sink, level)
	return zap.New(core).With(zap.Int("pid", os.Getpid()))
}
