package config

import "fmt"

// Error is a configuration error: an unresolved reference, a duplicate
// name, a malformed block or a non-compiling expression. All Errors are
// detected at load time, before any data is fetched.
type Error struct {
	Address string
	Msg     string
}

func (e *Error) Error() string {
	if e.Address == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Address, e.Msg)
}

func errf(address, format string, args ...any) *Error {
	return &Error{Address: address, Msg: fmt.Sprintf(format, args...)}
}
