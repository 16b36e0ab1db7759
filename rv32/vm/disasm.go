package vm

import (
	"fmt"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

var loadMnemonics = map[uint32]string{
	riscv.Funct3LB:  "lb",
	riscv.Funct3LH:  "lh",
	riscv.Funct3LW:  "lw",
	riscv.Funct3LBU: "lbu",
	riscv.Funct3LHU: "lhu",
}

var storeMnemonics = map[uint32]string{
	riscv.Funct3SB: "sb",
	riscv.Funct3SH: "sh",
	riscv.Funct3SW: "sw",
}

var branchMnemonics = map[uint32]string{
	riscv.Funct3BEQ:  "beq",
	riscv.Funct3BNE:  "bne",
	riscv.Funct3BLT:  "blt",
	riscv.Funct3BGE:  "bge",
	riscv.Funct3BLTU: "bltu",
	riscv.Funct3BGEU: "bgeu",
}

// Disassemble renders the supported instructions in assembler syntax.
// Anything else is shown as a raw word.
func Disassemble(instr uint32) string {
	unknown := fmt.Sprintf(".word 0x%08x", instr)
	switch parseOpcode(instr) {
	case riscv.OpLoad:
		ii := DecodeI(instr)
		if m, ok := loadMnemonics[ii.Funct3]; ok {
			return fmt.Sprintf("%s x%d, %d(x%d)", m, ii.Rd, int32(ii.Imm), ii.Rs1)
		}
	case riscv.OpStore:
		si := DecodeS(instr)
		if m, ok := storeMnemonics[si.Funct3]; ok {
			return fmt.Sprintf("%s x%d, %d(x%d)", m, si.Rs2, int32(si.Imm), si.Rs1)
		}
	case riscv.OpAluImm:
		ii := DecodeI(instr)
		switch ii.Funct3 {
		case riscv.Funct3ADDI:
			return fmt.Sprintf("addi x%d, x%d, %d", ii.Rd, ii.Rs1, int32(ii.Imm))
		case riscv.Funct3SLLI:
			return fmt.Sprintf("slli x%d, x%d, %d", ii.Rd, ii.Rs1, ii.Imm&0x1F)
		}
	case riscv.OpAluReg:
		ri := DecodeR(instr)
		if ri.Funct3 == riscv.Funct3ADD {
			switch ri.Funct7 {
			case riscv.Funct7ADD:
				return fmt.Sprintf("add x%d, x%d, x%d", ri.Rd, ri.Rs1, ri.Rs2)
			case riscv.Funct7MUL:
				return fmt.Sprintf("mul x%d, x%d, x%d", ri.Rd, ri.Rs1, ri.Rs2)
			}
		}
	case riscv.OpLUI:
		ui := DecodeU(instr)
		return fmt.Sprintf("lui x%d, 0x%x", ui.Rd, ui.Imm>>12)
	case riscv.OpJAL:
		ji := DecodeJ(instr)
		return fmt.Sprintf("jal x%d, %d", ji.Rd, int32(ji.Imm))
	case riscv.OpJALR:
		ii := DecodeI(instr)
		if ii.Funct3 == 0 {
			return fmt.Sprintf("jalr x%d, %d(x%d)", ii.Rd, int32(ii.Imm), ii.Rs1)
		}
	case riscv.OpBranch:
		bi := DecodeB(instr)
		if m, ok := branchMnemonics[bi.Funct3]; ok {
			return fmt.Sprintf("%s x%d, x%d, %d", m, bi.Rs1, bi.Rs2, int32(bi.Imm))
		}
	}
	return unknown
}
