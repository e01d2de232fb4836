package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrContractViolation  = errors.New("render: node contract violation")
	ErrStaleAck           = errors.New("render: stale acknowledgment")
	ErrIncompleteLearning = errors.New("render: incomplete learning")
	ErrInvariant          = errors.New("render: invariant violated")
	ErrLearningActive     = errors.New("render: learning in progress")
	ErrBuildActive        = errors.New("render: response build in progress")
	ErrNotReversible      = errors.New("render: handler cannot be undone")
	ErrInvalidMode        = errors.New("render: invalid mode")
	ErrNoRoot             = errors.New("render: application has no root node")
)

// Mode selects how invariant violations surface.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

func NormalizeMode(mode Mode) Mode {
	if strings.TrimSpace(string(mode)) == "" {
		return ModeDevelopment
	}
	return Mode(strings.ToLower(strings.TrimSpace(string(mode))))
}

func ValidateMode(mode Mode) error {
	switch NormalizeMode(mode) {
	case ModeDevelopment, ModeProduction:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

func invariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
