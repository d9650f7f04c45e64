package lang

import (
	"sync"

	"github.com/ardnew/livexpr/log"
)

// logger receives trace output from the parse cache and the solver.
// The zero Logger discards everything.
var (
	logger   log.Logger
	loggerMu sync.RWMutex
)

// SetLogger installs l as the package logger.
func SetLogger(l log.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	logger = l
}

func packageLogger() log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	return logger
}
