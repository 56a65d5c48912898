// Package logging provides category-scoped structured logging for midas.
// Every subsystem logs through a named zap logger so a single run can be
// filtered by component (pipeline, detector, store, watch).
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryPipeline Category = "pipeline" // Stage execution, timings
	CategoryDetector Category = "detector" // Sketch and scoring internals
	CategoryStream   Category = "stream"   // CSV decode/encode
	CategoryStore    Category = "store"    // SQLite run archive
	CategoryWatch    Category = "watch"    // Input file watcher
	CategoryConfig   Category = "config"   // Config load/validate
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init builds the process logger. Verbose switches to a development config
// with debug level enabled. Safe to call more than once; the last call wins.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	base = logger
	mu.Unlock()
	return nil
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Get returns a sugared logger named after the category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(string(c)).Sugar()
}

// Timer measures the duration of an operation and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw("operation complete", "op", t.op, "elapsed", elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level.
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Infow("operation complete", "op", t.op, "elapsed", elapsed)
	return elapsed
}
