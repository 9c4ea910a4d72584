package compiler

import (
	"fmt"
	"strings"
)

// UnknownPresetError is returned when a caller names a preset the
// registry has never heard of.
type UnknownPresetError struct {
	Name string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown preset %q. Available: %s", e.Name, strings.Join(ListPresetNames(), ", "))
}

// UnknownModifierError is returned when a caller names a workload
// modifier the registry has never heard of.
type UnknownModifierError struct {
	Name string
}

func (e *UnknownModifierError) Error() string {
	return fmt.Sprintf("unknown modifier %q. Available: %s", e.Name, strings.Join(ListModifierNames(), ", "))
}

// UnknownParameterError is returned when an override names a key that
// is not registered.
type UnknownParameterError struct {
	Key string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter key %q", e.Key)
}

// ConstraintViolationError is returned when an override value falls
// outside the parameter's registered constraints.
type ConstraintViolationError struct {
	Key     string
	Value   any
	Reason  string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("override for %q (%v) %s", e.Key, e.Value, e.Reason)
}

// CompilationError is raised when one or more guard rails produce an
// error-level finding, halting compilation before any artifact is
// emitted.
type CompilationError struct {
	Messages []string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation failed with %d error(s): %s", len(e.Messages), strings.Join(e.Messages, "; "))
}
