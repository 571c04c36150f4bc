package core

import "fmt"

// InitError indicates the core could not start: a missing or malformed
// BIOS image. System initialization cannot proceed.
type InitError struct {
	msg string
}

func (e *InitError) Error() string { return e.msg }

func newInitError(format string, args ...any) *InitError {
	return &InitError{msg: fmt.Sprintf(format, args...)}
}

// InvalidAccess describes a (region, width, offset) combination the
// hardware rejects. It is logged and made idempotent by the caller: a read
// returns 0xFFFFFFFF, a write is ignored. It is never returned to the CPU.
type InvalidAccess struct {
	msg string
}

func (e *InvalidAccess) Error() string { return e.msg }

func newInvalidAccess(format string, args ...any) *InvalidAccess {
	return &InvalidAccess{msg: fmt.Sprintf(format, args...)}
}

// AssertionViolation marks a width constraint violated by the emulator
// itself (CDROM/GPU/MDEC width rules) rather than by guest code. It is a
// programmer error. The bus logs it and returns a sentinel; no build of
// this package treats it as fatal.
type AssertionViolation struct {
	msg string
}

func (e *AssertionViolation) Error() string { return e.msg }

func newAssertionViolation(format string, args ...any) *AssertionViolation {
	return &AssertionViolation{msg: fmt.Sprintf(format, args...)}
}

// StateError indicates a DoState stream was shorter than expected or its
// checksum failed to verify. Callers discard the partial load.
type StateError struct {
	msg string
}

func (e *StateError) Error() string { return e.msg }

func newStateError(format string, args ...any) *StateError {
	return &StateError{msg: fmt.Sprintf(format, args...)}
}
