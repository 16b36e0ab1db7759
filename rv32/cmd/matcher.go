package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/periscope-vm/periscope/rv32/vm"
)

// StepMatcher decides whether an action applies at the current step.
type StepMatcher func(st *vm.VMState) bool

// ParseStepMatcher accepts "never", "always", "=N" for exactly step N and
// "%N" for every N steps.
func ParseStepMatcher(value string) (StepMatcher, error) {
	switch {
	case value == "" || value == "never":
		return func(st *vm.VMState) bool { return false }, nil
	case value == "always":
		return func(st *vm.VMState) bool { return true }, nil
	case strings.HasPrefix(value, "="):
		steps, err := strconv.ParseUint(value[1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse step number: %v", ErrUsage, err)
		}
		return func(st *vm.VMState) bool { return st.Step == steps }, nil
	case strings.HasPrefix(value, "%"):
		steps, err := strconv.ParseUint(value[1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse step interval number: %v", ErrUsage, err)
		}
		if steps == 0 {
			return nil, fmt.Errorf("%w: step interval must be positive", ErrUsage)
		}
		return func(st *vm.VMState) bool { return st.Step%steps == 0 }, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized step matcher: %q", ErrUsage, value)
	}
}
