// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import (
	"io"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger receives the diagnostics this package emits for conditions the
// specification documents as programmer errors rather than returned errors:
// reentrant prepare/check, the last unref of a source still attached to its
// context, a child watch whose waitpid came back ECHILD, a failed poll, and
// a failed wakeup. The gsync primitives emit no diagnostics. None of these
// stop the caller; they exist so a misbehaving embedder is observable.
//
// Diagnostic takes a stable category (used both as the log field and the
// rate-limiter key) so high-frequency misuse - e.g. a source whose prepare
// function panics every iteration - degrades to a trickle instead of
// flooding the sink.
type Logger interface {
	Diagnostic(category, message string, fields ...Field)
}

// Field is a single structured log attribute, kept independent of the
// logging backend so callers of this package never need to import logiface.
type Field struct {
	Key   string
	Value any
}

// F constructs a [Field].
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type noopLogger struct{}

func (noopLogger) Diagnostic(string, string, ...Field) {}

// stumpyLogger adapts a [logiface.Logger] of stumpy's JSON event type to the
// [Logger] interface, throttling repeated categories through a catrate
// sliding-window limiter.
type stumpyLogger struct {
	log     *logiface.Logger[*stumpy.Event]
	limiter *catrate.Limiter
}

// LoggerConfig configures [NewLogger].
type LoggerConfig struct {
	// Writer receives the JSON diagnostic lines; nil defaults to os.Stderr.
	Writer io.Writer
	// MaxPerCategory and Window bound how often a given category may log;
	// either being non-positive disables throttling for that logger.
	MaxPerCategory int
	Window         time.Duration
}

// NewLogger returns the default [Logger]: structured JSON via stumpy, with
// each diagnostic category rate-limited independently.
func NewLogger(cfg LoggerConfig) Logger {
	stumpyOpts := []stumpy.Option{stumpy.WithLevelField("level")}
	if cfg.Writer != nil {
		stumpyOpts = append(stumpyOpts, stumpy.WithWriter(cfg.Writer))
	}

	l := &stumpyLogger{
		log: stumpy.L.New(
			stumpy.L.WithStumpy(stumpyOpts...),
			stumpy.L.WithLevel(logiface.LevelWarning),
		),
	}
	if cfg.MaxPerCategory > 0 && cfg.Window > 0 {
		l.limiter = catrate.NewLimiter(map[time.Duration]int{cfg.Window: cfg.MaxPerCategory})
	}
	return l
}

// DefaultLogger returns a ready-made [Logger]: stderr, at most 20 lines per
// category per minute. A context uses it only when passed through
// [WithContextLogger]; without that option a context discards diagnostics.
func DefaultLogger() Logger {
	return NewLogger(LoggerConfig{MaxPerCategory: 20, Window: time.Minute})
}

func (l *stumpyLogger) Diagnostic(category, message string, fields ...Field) {
	if l.limiter != nil {
		if _, ok := l.limiter.Allow(category); !ok {
			return
		}
	}
	b := l.log.Warning().Str("category", category)
	for _, f := range fields {
		b = b.Any(f.Key, f.Value)
	}
	b.Log(message)
}
