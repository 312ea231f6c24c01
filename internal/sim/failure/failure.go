// Package failure holds the error taxonomy shared by casting and rituals.
// Every error carries a precise human-readable reason and maps to one
// protocol code through Code.
package failure

import (
	"errors"
	"fmt"
	"time"

	"manacraft.ai/internal/protocol"
)

var (
	ErrInvalidAmount   = errors.New("amount must not be negative")
	ErrPatternMismatch = errors.New("invalid ritual pattern, check the structure")
	ErrItemsMissing    = errors.New("missing required ritual items")
)

type UnknownDefinitionError struct {
	Kind string // "spell" or "ritual"
	ID   string
}

func (e *UnknownDefinitionError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Kind, e.ID)
}

type InsufficientFundsError struct {
	Kind      string
	Needed    float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s mana (need %.1f, have %.1f)", e.Kind, e.Needed, e.Available)
}

type LevelTooLowError struct {
	Required int
	Actual   int
}

func (e *LevelTooLowError) Error() string {
	return fmt.Sprintf("level %d required (you are level %d)", e.Required, e.Actual)
}

type OnCooldownError struct {
	Remaining time.Duration
}

func (e *OnCooldownError) Error() string {
	return fmt.Sprintf("on cooldown for %.1f more seconds", e.Remaining.Seconds())
}

// EffectExecutionError reports a fault raised while an effect handler ran.
// The debited mana has already been refunded when this is returned.
type EffectExecutionError struct {
	Cause error
}

func (e *EffectExecutionError) Error() string {
	if e.Cause == nil {
		return "effect execution failed"
	}
	return "effect execution failed: " + e.Cause.Error()
}

func (e *EffectExecutionError) Unwrap() error { return e.Cause }

// Code maps an error to its protocol code. nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	var (
		unknown  *UnknownDefinitionError
		funds    *InsufficientFundsError
		level    *LevelTooLowError
		cooldown *OnCooldownError
		effect   *EffectExecutionError
	)
	switch {
	case errors.As(err, &effect):
		return protocol.ErrEffectFailed
	case errors.As(err, &unknown):
		return protocol.ErrUnknownDefinition
	case errors.As(err, &funds):
		return protocol.ErrInsufficientFunds
	case errors.As(err, &level):
		return protocol.ErrLevelTooLow
	case errors.As(err, &cooldown):
		return protocol.ErrOnCooldown
	case errors.Is(err, ErrPatternMismatch):
		return protocol.ErrPatternMismatch
	case errors.Is(err, ErrItemsMissing):
		return protocol.ErrItemsMissing
	case errors.Is(err, ErrInvalidAmount):
		return protocol.ErrInvalidAmount
	default:
		return protocol.ErrInternal
	}
}
