package engine

import (
	"errors"
	"fmt"
)

// Code classifies an engine failure so callers can map it onto a transport
// response without string matching.
type Code string

const (
	CodeNotFound             Code = "not_found"
	CodeInvalidInput         Code = "invalid_input"
	CodeRuleViolation        Code = "rule_violation"
	CodeRegionFull           Code = "region_full"
	CodeInsufficientFunds    Code = "insufficient_funds"
	CodeInsufficientCharisma Code = "insufficient_charisma"
	CodeAlreadyActed         Code = "already_acted"
)

// Error is a classified engine failure. Resource shortfalls carry the
// required and available amounts for the caller to surface.
type Error struct {
	Code      Code
	Msg       string
	Required  float64
	Available float64
}

func (e *Error) Error() string {
	if e.Code == CodeInsufficientFunds || e.Code == CodeInsufficientCharisma {
		return fmt.Sprintf("%s: %s (required %.0f, available %.0f)", e.Code, e.Msg, e.Required, e.Available)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// CodeOf extracts the classification from an error, unwrapping as needed,
// or "" for plain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func errNotFound(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Msg: fmt.Sprintf(format, args...)}
}

func errInvalid(format string, args ...any) error {
	return &Error{Code: CodeInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func errRule(format string, args ...any) error {
	return &Error{Code: CodeRuleViolation, Msg: fmt.Sprintf(format, args...)}
}

func errRegionFull(regionID int64) error {
	return &Error{Code: CodeRegionFull, Msg: fmt.Sprintf("region %d has no unclaimed support left", regionID)}
}

func errFunds(required, available float64) error {
	return &Error{Code: CodeInsufficientFunds, Msg: "budget too low", Required: required, Available: available}
}

func errCharisma(required, available int) error {
	return &Error{
		Code:      CodeInsufficientCharisma,
		Msg:       "charisma too low",
		Required:  float64(required),
		Available: float64(available),
	}
}

func errAlreadyActed(playerID int64, turn int) error {
	return &Error{Code: CodeAlreadyActed, Msg: fmt.Sprintf("player %d already acted on turn %d", playerID, turn)}
}
