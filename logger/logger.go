// Package logger holds the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
)

// Log is a no-op until Init runs, so library code and tests can log
// unconditionally.
var Log = zap.NewNop().Sugar()

// Init builds the global logger. Debug switches to the development
// encoder with debug-level output.
func Init(debug bool) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = l.Sugar()
}

// Sync flushes buffered log entries, called before exit.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
