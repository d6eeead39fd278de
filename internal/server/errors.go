package server

import (
	"errors"
	"fmt"
)

// ErrBindFailed is matched by every listener bind failure.
var ErrBindFailed = errors.New("bind failed")

// BindError is returned by Bootstrap when a listener can't be bound. It's
// always fatal for the startup.
type BindError struct {
	Protocol Protocol
	Address  string
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s listener on %s: %v", e.Protocol, e.Address, e.Err)
}

func (e *BindError) Unwrap() []error {
	return []error{ErrBindFailed, e.Err}
}
