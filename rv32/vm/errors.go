package vm

import (
	"errors"
	"fmt"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

var (
	ErrAlignmentFault           = errors.New("misaligned memory access")
	ErrUnmappedAccess           = errors.New("unmapped memory access")
	ErrUnimplementedInstruction = errors.New("unimplemented instruction")
	ErrInvalidELF               = errors.New("invalid ELF file")
	ErrNotRISCV                 = errors.New("ELF is not RISC-V")
	ErrNoProgramHeaders         = errors.New("no program header table")
	ErrBadProgramHeader         = errors.New("bad program header")
	ErrSegmentOverlap           = errors.New("overlapping memory segments")
)

type FaultKind uint8

const (
	FaultAlignment FaultKind = iota + 1
	FaultUnmapped
	FaultUnimplemented
)

func (k FaultKind) String() string {
	switch k {
	case FaultAlignment:
		return "alignment"
	case FaultUnmapped:
		return "unmapped"
	case FaultUnimplemented:
		return "unimplemented"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(k))
	}
}

// Fault aborts an emulation run. Memory faults fill Addr and Size, the
// interpreter fills PC and Instr once it knows which instruction raised it.
// UnknownOpcode is set when the dispatch table had no handler for the
// opcode, as opposed to a handler rejecting the function code.
type Fault struct {
	Kind          FaultKind
	Addr          uint32
	Size          uint32
	PC            uint32
	Instr         uint32
	UnknownOpcode bool
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultAlignment:
		return fmt.Sprintf("%v: %d-byte access at %08x (pc %08x, insn %08x)", ErrAlignmentFault, f.Size, f.Addr, f.PC, f.Instr)
	case FaultUnmapped:
		return fmt.Sprintf("%v: %d-byte access at %08x (pc %08x, insn %08x)", ErrUnmappedAccess, f.Size, f.Addr, f.PC, f.Instr)
	case FaultUnimplemented:
		return fmt.Sprintf("%v: insn %08x opcode %#02x (pc %08x)", ErrUnimplementedInstruction, f.Instr, parseOpcode(f.Instr), f.PC)
	default:
		return fmt.Sprintf("fault %v (pc %08x)", f.Kind, f.PC)
	}
}

// Is lets errors.Is match a fault against the sentinel of its kind.
func (f *Fault) Is(target error) bool {
	switch f.Kind {
	case FaultAlignment:
		return target == ErrAlignmentFault
	case FaultUnmapped:
		return target == ErrUnmappedAccess
	case FaultUnimplemented:
		return target == ErrUnimplementedInstruction
	}
	return false
}

// Code returns the numeric revert code of the fault.
func (f *Fault) Code() uint64 {
	switch f.Kind {
	case FaultAlignment:
		return riscv.ErrNotAlignedAddr
	case FaultUnmapped:
		return riscv.ErrUnmappedAddr
	case FaultUnimplemented:
		if f.UnknownOpcode {
			return riscv.ErrUnknownOpCode
		}
		return riscv.ErrUnknownFunct
	}
	return 0
}

func unimplemented(instr uint32) error {
	return &Fault{Kind: FaultUnimplemented, Instr: instr}
}
