package model

import "errors"

// Error kinds surfaced by the registration engine.  Callers compare with
// errors.Is; ErrorCode maps them to their wire names.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrIneligible        = errors.New("participant not eligible for this event")
	ErrDeadlinePassed    = errors.New("registration deadline has passed")
	ErrCapacityFull      = errors.New("event is full")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLimitExceeded     = errors.New("purchase limit exceeded")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrUnauthorized      = errors.New("not the owner of this resource")
	ErrAlreadyScanned    = errors.New("ticket already scanned")
	ErrInvalidInput      = errors.New("invalid input")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "NOT_FOUND"},
	{ErrAlreadyRegistered, "ALREADY_REGISTERED"},
	{ErrIneligible, "INELIGIBLE"},
	{ErrDeadlinePassed, "DEADLINE_PASSED"},
	{ErrCapacityFull, "CAPACITY_FULL"},
	{ErrVariantNotFound, "VARIANT_NOT_FOUND"},
	{ErrOutOfStock, "OUT_OF_STOCK"},
	{ErrInsufficientStock, "INSUFFICIENT_STOCK"},
	{ErrLimitExceeded, "LIMIT_EXCEEDED"},
	{ErrInvalidState, "INVALID_STATE"},
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrAlreadyScanned, "ALREADY_SCANNED"},
	{ErrInvalidInput, "INVALID_INPUT"},
}

// ErrorCode returns the kind name for err, or INTERNAL when err does not
// wrap one of the sentinels above.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}
