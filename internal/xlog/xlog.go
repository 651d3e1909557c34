// Package xlog provides the package-scoped zap loggers used across the
// engine, following the teacher's convention of one package-level
// *zap.Logger variable per subsystem (decoderLog, streamLog, ...) rather
// than threading a logger through every call.
package xlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	base   *zap.Logger
	loggers = map[string]*zap.SugaredLogger{}
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// SetDebug swaps the base logger for a development logger at debug
// level; intended for CLI --debug wiring.
func SetDebug() {
	mu.Lock()
	defer mu.Unlock()

	l, err := zap.NewDevelopment()
	if err == nil {
		base = l
		loggers = map[string]*zap.SugaredLogger{}
	}
}

// For returns (creating if necessary) the sugared logger for a named
// subsystem, e.g. xlog.For("stream"), xlog.For("window").
func For(subsystem string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[subsystem]; ok {
		return l
	}

	l := base.Named(subsystem).Sugar()
	loggers[subsystem] = l

	return l
}
