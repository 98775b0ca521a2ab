package joinpath

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvable is wrapped by every UnresolvableError.
	ErrUnresolvable = errors.New("no join path to an anchor table")

	// ErrCycle is wrapped by every CycleError.
	ErrCycle = errors.New("cyclic bridge relations")
)

// UnresolvableError reports a table that cannot be connected to an anchor.
type UnresolvableError struct {
	Table string

	// Tried lists the bridge tables that were attempted, in order.
	Tried []string
}

func (e *UnresolvableError) Error() string {
	if len(e.Tried) > 0 {
		return fmt.Sprintf("table %s: %v (tried bridges: %s)", e.Table, ErrUnresolvable, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("table %s: %v", e.Table, ErrUnresolvable)
}

func (e *UnresolvableError) Unwrap() error {
	return ErrUnresolvable
}

// CycleError reports a bridge chain that revisits a table.
type CycleError struct {
	// Path is the chain of tables, ending with the revisited one.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// IsUnresolvable returns true if err reports an unresolvable table.
// Uses errors.Is to handle wrapped errors.
func IsUnresolvable(err error) bool {
	return errors.Is(err, ErrUnresolvable)
}

// IsCycle returns true if err reports cyclic bridge relations.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCycle)
}
