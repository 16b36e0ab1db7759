package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/periscope-vm/periscope/rv32/riscv"
	"github.com/periscope-vm/periscope/rv32/vm"
)

// Peek is a register-relative memory word printed after a run,
// written as "s0-20", "sp+12" or just "a0" for the word a0 points at.
type Peek struct {
	Expr   string
	Reg    uint32
	Offset int32
}

func ParsePeek(expr string) (Peek, error) {
	p := Peek{Expr: expr}
	name, off := expr, ""
	if i := strings.IndexAny(expr, "+-"); i >= 0 {
		name, off = expr[:i], expr[i:]
	}
	reg, ok := riscv.RegisterByName(name)
	if !ok {
		return Peek{}, fmt.Errorf("%w: unknown register %q in peek %q", ErrUsage, name, expr)
	}
	p.Reg = reg
	if off != "" {
		v, err := strconv.ParseInt(off, 0, 32)
		if err != nil {
			return Peek{}, fmt.Errorf("%w: bad offset in peek %q: %v", ErrUsage, expr, err)
		}
		p.Offset = int32(v)
	}
	return p, nil
}

func (p Peek) Addr(proc *vm.Processor) uint32 {
	return proc.ReadRegister(p.Reg) + uint32(p.Offset)
}

// Read loads the word at the peek address.
func (p Peek) Read(st *vm.VMState) (uint32, error) {
	return st.Memory.Read32(p.Addr(&st.Processor))
}
