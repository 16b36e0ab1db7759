package riscv

// Opcodes of the supported instruction families (bits 0-6).
const (
	OpLoad   = 0x03 // 000_0011
	OpStore  = 0x23 // 010_0011
	OpAluImm = 0x13 // 001_0011
	OpAluReg = 0x33 // 011_0011
	OpLUI    = 0x37 // 011_0111
	OpJAL    = 0x6F // 110_1111
	OpJALR   = 0x67 // 110_0111
	OpBranch = 0x63 // 110_0011
)

// funct3 selectors.
const (
	Funct3LB  = 0b000
	Funct3LH  = 0b001
	Funct3LW  = 0b010
	Funct3LBU = 0b100
	Funct3LHU = 0b101

	Funct3SB = 0b000
	Funct3SH = 0b001
	Funct3SW = 0b010

	Funct3ADDI = 0b000
	Funct3SLLI = 0b001

	Funct3ADD = 0b000

	Funct3BEQ  = 0b000
	Funct3BNE  = 0b001
	Funct3BLT  = 0b100
	Funct3BGE  = 0b101
	Funct3BLTU = 0b110
	Funct3BGEU = 0b111
)

// funct7 selectors.
const (
	Funct7ADD = 0b0000000
	Funct7MUL = 0b0000001
)

// ABI register indices.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegS0   = 8
	RegA0   = 10
)

// InstrSize is the width of one uncompressed instruction.
const InstrSize = 4

// Stack placement. The stack grows down from StackTop, which stays 16-byte
// aligned as the psABI requires.
const (
	StackTop         = 0x7FFF_F000
	DefaultStackSize = 1 << 20
)

const (
	ErrUnknownOpCode  = uint64(0xf001c0de)
	ErrUnknownFunct   = uint64(0xf001f0c7)
	ErrNotAlignedAddr = uint64(0xbad10ad0)
	ErrUnmappedAddr   = uint64(0xbad0add0)
)
