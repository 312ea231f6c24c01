package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Definition lookup.
	ErrUnknownDefinition = "E_UNKNOWN_DEFINITION"

	// Casting and ritual validation.
	ErrInsufficientFunds = "E_INSUFFICIENT_FUNDS"
	ErrLevelTooLow       = "E_LEVEL_TOO_LOW"
	ErrOnCooldown        = "E_ON_COOLDOWN"
	ErrPatternMismatch   = "E_PATTERN_MISMATCH"
	ErrItemsMissing      = "E_ITEMS_MISSING"
	ErrInvalidAmount     = "E_INVALID_AMOUNT"

	// Execution.
	ErrEffectFailed = "E_EFFECT_FAILED"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrUnknownDefinition: {},
	ErrInsufficientFunds: {},
	ErrLevelTooLow:       {},
	ErrOnCooldown:        {},
	ErrPatternMismatch:   {},
	ErrItemsMissing:      {},
	ErrInvalidAmount:     {},
	ErrEffectFailed:      {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
