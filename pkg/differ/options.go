package differ

import (
	"fmt"
	"log/slog"
	"strings"
)

// Mode selects the per-level algorithm.
type Mode uint8

const (
	// ModeClassic is the four-stage algorithm.
	ModeClassic Mode = iota
	// ModeOptimizedMoves keeps unmoved siblings in place after the common
	// prefix.
	ModeOptimizedMoves
)

// String returns the string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case ModeClassic:
		return "classic"
	case ModeOptimizedMoves:
		return "optimized"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "classic":
		return ModeClassic, nil
	case "optimized", "optimized-moves":
		return ModeOptimizedMoves, nil
	default:
		return ModeClassic, fmt.Errorf("differ: unknown mode %q", s)
	}
}

type options struct {
	mode       Mode
	assertions bool
	logger     *slog.Logger
}

// Option configures Calculate.
type Option func(*options)

// WithMode selects the per-level algorithm.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithAssertions panics on caller contract violations: roots of different
// families, and zero or duplicate tags among siblings. Meant for tests and
// debug builds; the checks cost an extra pass per level.
func WithAssertions() Option {
	return func(o *options) {
		o.assertions = true
	}
}

// WithLogger logs a debug summary of every Calculate call.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
