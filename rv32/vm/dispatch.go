package vm

import (
	"github.com/periscope-vm/periscope/rv32/riscv"
)

// DispatchTable maps a 7-bit opcode to the handler of its family.
// It is filled once at construction and only read afterwards.
type DispatchTable struct {
	handlers [128]Handler
}

var defaultHandlers = map[uint32]Handler{
	riscv.OpLoad:   Load,
	riscv.OpStore:  Store,
	riscv.OpAluImm: AluImm,
	riscv.OpAluReg: AluReg,
	riscv.OpLUI:    LUI,
	riscv.OpJAL:    JAL,
	riscv.OpBranch: Branch,
	riscv.OpJALR:   JALR,
}

// NewDispatchTable builds a table from the given opcode to handler mapping.
// Opcodes wider than 7 bits are masked.
func NewDispatchTable(entries map[uint32]Handler) *DispatchTable {
	t := &DispatchTable{}
	for op, h := range entries {
		t.handlers[op&0x7F] = h
	}
	return t
}

// DefaultDispatchTable returns a table covering every supported family.
func DefaultDispatchTable() *DispatchTable {
	return NewDispatchTable(defaultHandlers)
}

func (t *DispatchTable) Lookup(opcode uint32) (Handler, bool) {
	h := t.handlers[opcode&0x7F]
	return h, h != nil
}
