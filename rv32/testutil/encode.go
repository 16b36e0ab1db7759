package testutil

import (
	"encoding/binary"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return opcode&0x7F | (rd&0x1F)<<7 | (funct3&0x7)<<12 | (rs1&0x1F)<<15 | (rs2&0x1F)<<20 | (funct7&0x7F)<<25
}

func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return opcode&0x7F | (rd&0x1F)<<7 | (funct3&0x7)<<12 | (rs1&0x1F)<<15 | (uint32(imm)&0xFFF)<<20
}

func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcode&0x7F | (u&0x1F)<<7 | (funct3&0x7)<<12 | (rs1&0x1F)<<15 | (rs2&0x1F)<<20 | ((u>>5)&0x7F)<<25
}

// EncodeB encodes a branch; the lowest bit of imm is dropped.
func EncodeB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return riscv.OpBranch |
		((u>>11)&1)<<7 |
		((u>>1)&0xF)<<8 |
		(funct3&0x7)<<12 |
		(rs1&0x1F)<<15 |
		(rs2&0x1F)<<20 |
		((u>>5)&0x3F)<<25 |
		((u>>12)&1)<<31
}

// EncodeU takes the 20-bit upper immediate, not the shifted value.
func EncodeU(opcode, rd, imm20 uint32) uint32 {
	return opcode&0x7F | (rd&0x1F)<<7 | (imm20&0xFFFFF)<<12
}

// EncodeJ encodes a JAL; the lowest bit of imm is dropped.
func EncodeJ(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return riscv.OpJAL |
		(rd&0x1F)<<7 |
		((u>>12)&0xFF)<<12 |
		((u>>11)&1)<<20 |
		((u>>1)&0x3FF)<<21 |
		((u>>20)&1)<<31
}

func LB(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpLoad, rd, riscv.Funct3LB, rs1, imm)
}
func LH(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpLoad, rd, riscv.Funct3LH, rs1, imm)
}
func LW(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpLoad, rd, riscv.Funct3LW, rs1, imm)
}
func LBU(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpLoad, rd, riscv.Funct3LBU, rs1, imm)
}
func LHU(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpLoad, rd, riscv.Funct3LHU, rs1, imm)
}

func SB(rs2, rs1 uint32, imm int32) uint32 {
	return EncodeS(riscv.OpStore, riscv.Funct3SB, rs1, rs2, imm)
}
func SH(rs2, rs1 uint32, imm int32) uint32 {
	return EncodeS(riscv.OpStore, riscv.Funct3SH, rs1, rs2, imm)
}
func SW(rs2, rs1 uint32, imm int32) uint32 {
	return EncodeS(riscv.OpStore, riscv.Funct3SW, rs1, rs2, imm)
}

func ADDI(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpAluImm, rd, riscv.Funct3ADDI, rs1, imm)
}
func SLLI(rd, rs1, shamt uint32) uint32 {
	return EncodeI(riscv.OpAluImm, rd, riscv.Funct3SLLI, rs1, int32(shamt&0x1F))
}
func ADD(rd, rs1, rs2 uint32) uint32 {
	return EncodeR(riscv.OpAluReg, rd, riscv.Funct3ADD, rs1, rs2, riscv.Funct7ADD)
}
func MUL(rd, rs1, rs2 uint32) uint32 {
	return EncodeR(riscv.OpAluReg, rd, riscv.Funct3ADD, rs1, rs2, riscv.Funct7MUL)
}
func LUI(rd, imm20 uint32) uint32 {
	return EncodeU(riscv.OpLUI, rd, imm20)
}
func JAL(rd uint32, imm int32) uint32 {
	return EncodeJ(rd, imm)
}
func JALR(rd, rs1 uint32, imm int32) uint32 {
	return EncodeI(riscv.OpJALR, rd, 0, rs1, imm)
}

func BEQ(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(riscv.Funct3BEQ, rs1, rs2, imm) }
func BNE(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(riscv.Funct3BNE, rs1, rs2, imm) }
func BLT(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(riscv.Funct3BLT, rs1, rs2, imm) }
func BGE(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(riscv.Funct3BGE, rs1, rs2, imm) }
func BLTU(rs1, rs2 uint32, imm int32) uint32 { return EncodeB(riscv.Funct3BLTU, rs1, rs2, imm) }
func BGEU(rs1, rs2 uint32, imm int32) uint32 { return EncodeB(riscv.Funct3BGEU, rs1, rs2, imm) }

// Halt is the jump-to-self that ends a run.
func Halt() uint32 {
	return JAL(riscv.RegZero, 0)
}

// Assemble lays out instruction words little-endian.
func Assemble(words ...uint32) []byte {
	out := make([]byte, 0, 4*len(words))
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

const (
	t0 = 5
	t1 = 6
)

// Factorial computes n! into a0 with a MUL loop, then halts.
func Factorial(n int32) []uint32 {
	return []uint32{
		ADDI(riscv.RegA0, riscv.RegZero, 1),
		ADDI(t0, riscv.RegZero, n),
		BEQ(t0, riscv.RegZero, 16), // loop:
		MUL(riscv.RegA0, riscv.RegA0, t0),
		ADDI(t0, t0, -1),
		JAL(riscv.RegZero, -12),
		Halt(), // done:
	}
}

// StackCall stores 42 on the stack, calls a function that doubles the
// stack slot and returns through ra, loads the result into a0 and halts.
func StackCall() []uint32 {
	return []uint32{
		ADDI(riscv.RegSP, riscv.RegSP, -16),
		ADDI(t0, riscv.RegZero, 42),
		SW(t0, riscv.RegSP, 12),
		JAL(riscv.RegRA, 12),
		LW(riscv.RegA0, riscv.RegSP, 12),
		Halt(),
		LW(t1, riscv.RegSP, 12), // func:
		ADD(t1, t1, t1),
		SW(t1, riscv.RegSP, 12),
		JALR(riscv.RegZero, riscv.RegRA, 0),
	}
}
