package riscv

import (
	"strconv"
	"strings"
)

// RegNames are the psABI names of the integer registers.
var RegNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegisterByName resolves an ABI name ("a0", "fp") or a numeric name
// ("x10") to a register index.
func RegisterByName(name string) (uint32, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "fp" {
		return RegS0, true
	}
	for i, n := range RegNames {
		if n == name {
			return uint32(i), true
		}
	}
	if rest, ok := strings.CutPrefix(name, "x"); ok {
		n, err := strconv.ParseUint(rest, 10, 8)
		if err == nil && n < 32 {
			return uint32(n), true
		}
	}
	return 0, false
}
