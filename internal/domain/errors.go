package domain

import "fmt"

// ConfigurationError rejects an agent or batch setup before any request is sent.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid configuration"
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProviderError covers transport failures and malformed provider responses.
type ProviderError struct {
	Endpoint string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IllegalMoveError is raised when the rules engine rejects a provider move.
type IllegalMoveError struct {
	Move string
	FEN  string
	Err  error
}

func (e *IllegalMoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("illegal move %q in %s: %v", e.Move, e.FEN, e.Err)
	}
	return fmt.Sprintf("illegal move %q in %s", e.Move, e.FEN)
}

func (e *IllegalMoveError) Unwrap() error { return e.Err }

// InvalidPositionError is returned by the position builder.
type InvalidPositionError struct {
	Square string
	Reason string
}

func (e *InvalidPositionError) Error() string {
	if e.Square != "" {
		return fmt.Sprintf("invalid position at %s: %s", e.Square, e.Reason)
	}
	return "invalid position: " + e.Reason
}
