package vm

import (
	"github.com/periscope-vm/periscope/rv32/riscv"
)

// Handler executes one instruction of an opcode family and returns the
// address of the next instruction.
type Handler func(mem *Memory, proc *Processor, instr uint32) (uint32, error)

// Load handles LB, LH, LW, LBU and LHU.
func Load(mem *Memory, proc *Processor, instr uint32) (uint32, error) {
	ii := DecodeI(instr)
	addr := proc.ReadRegister(ii.Rs1) + ii.Imm

	var v uint32
	var err error
	switch ii.Funct3 {
	case riscv.Funct3LB:
		v, err = mem.Read8(addr)
		v = signExtend32(v, 7)
	case riscv.Funct3LH:
		v, err = mem.Read16(addr)
		v = signExtend32(v, 15)
	case riscv.Funct3LW:
		v, err = mem.Read32(addr)
	case riscv.Funct3LBU:
		v, err = mem.Read8(addr)
	case riscv.Funct3LHU:
		v, err = mem.Read16(addr)
	default:
		return 0, unimplemented(instr)
	}
	if err != nil {
		return 0, err
	}
	proc.WriteRegister(ii.Rd, v)
	return proc.NextPC(), nil
}

// Store handles SB, SH and SW.
func Store(mem *Memory, proc *Processor, instr uint32) (uint32, error) {
	si := DecodeS(instr)
	addr := proc.ReadRegister(si.Rs1) + si.Imm
	value := proc.ReadRegister(si.Rs2)

	var err error
	switch si.Funct3 {
	case riscv.Funct3SB:
		err = mem.Write8(addr, value)
	case riscv.Funct3SH:
		err = mem.Write16(addr, value)
	case riscv.Funct3SW:
		err = mem.Write32(addr, value)
	default:
		return 0, unimplemented(instr)
	}
	if err != nil {
		return 0, err
	}
	return proc.NextPC(), nil
}

// AluImm handles ADDI and SLLI.
func AluImm(_ *Memory, proc *Processor, instr uint32) (uint32, error) {
	ii := DecodeI(instr)
	rs1Value := proc.ReadRegister(ii.Rs1)

	var rdValue uint32
	switch ii.Funct3 {
	case riscv.Funct3ADDI:
		rdValue = rs1Value + ii.Imm
	case riscv.Funct3SLLI:
		rdValue = rs1Value << (ii.Imm & 0x1F)
	default:
		return 0, unimplemented(instr)
	}
	proc.WriteRegister(ii.Rd, rdValue)
	return proc.NextPC(), nil
}

// AluReg handles ADD and MUL.
func AluReg(_ *Memory, proc *Processor, instr uint32) (uint32, error) {
	ri := DecodeR(instr)
	rs1Value := proc.ReadRegister(ri.Rs1)
	rs2Value := proc.ReadRegister(ri.Rs2)

	if ri.Funct3 != riscv.Funct3ADD {
		return 0, unimplemented(instr)
	}
	var rdValue uint32
	switch ri.Funct7 {
	case riscv.Funct7ADD:
		rdValue = rs1Value + rs2Value
	case riscv.Funct7MUL:
		rdValue = rs1Value * rs2Value
	default:
		return 0, unimplemented(instr)
	}
	proc.WriteRegister(ri.Rd, rdValue)
	return proc.NextPC(), nil
}

// LUI loads the upper immediate, already shifted by the decoder.
func LUI(_ *Memory, proc *Processor, instr uint32) (uint32, error) {
	ui := DecodeU(instr)
	proc.WriteRegister(ui.Rd, ui.Imm)
	return proc.NextPC(), nil
}

// JAL always links into ra, whatever rd encodes, and jumps relative to the PC.
// Plain jumps (rd = x0) and the final jump-to-self overwrite ra too.
func JAL(_ *Memory, proc *Processor, instr uint32) (uint32, error) {
	ji := DecodeJ(instr)
	pc := proc.GetPC()
	proc.WriteRegister(riscv.RegRA, pc+riscv.InstrSize)
	return pc + ji.Imm, nil
}

// JALR links into rd and jumps to rs1+imm with the lowest bit cleared.
func JALR(_ *Memory, proc *Processor, instr uint32) (uint32, error) {
	ii := DecodeI(instr)
	if ii.Funct3 != 0 {
		return 0, unimplemented(instr)
	}
	pc := proc.GetPC()
	// rs1 is read before rd is written: rd and rs1 may be the same register
	target := (proc.ReadRegister(ii.Rs1) + ii.Imm) &^ 1
	proc.WriteRegister(ii.Rd, pc+riscv.InstrSize)
	return target, nil
}

// Branch handles BEQ, BNE, BLT, BGE, BLTU and BGEU.
func Branch(_ *Memory, proc *Processor, instr uint32) (uint32, error) {
	bi := DecodeB(instr)
	rs1Value := proc.ReadRegister(bi.Rs1)
	rs2Value := proc.ReadRegister(bi.Rs2)

	var taken bool
	switch bi.Funct3 {
	case riscv.Funct3BEQ:
		taken = rs1Value == rs2Value
	case riscv.Funct3BNE:
		taken = rs1Value != rs2Value
	case riscv.Funct3BLT:
		taken = int32(rs1Value) < int32(rs2Value)
	case riscv.Funct3BGE:
		taken = int32(rs1Value) >= int32(rs2Value)
	case riscv.Funct3BLTU:
		taken = rs1Value < rs2Value
	case riscv.Funct3BGEU:
		taken = rs1Value >= rs2Value
	default:
		return 0, unimplemented(instr)
	}
	if !taken {
		return proc.NextPC(), nil
	}
	return proc.GetPC() + bi.Imm, nil
}
