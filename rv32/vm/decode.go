package vm

import "fmt"

// Format is the encoding format of a 32-bit instruction word.
type Format uint8

const (
	FormatBase Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatBase:
		return "base"
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Instruction is a decoded view over a raw instruction word.
// The concrete type carries only the fields its format defines.
type Instruction interface {
	Opcode() uint32
	Format() Format
	Word() uint32
}

// bits extracts length bits of word starting at lsb.
func bits(word uint32, lsb, length uint) uint32 {
	return (word >> lsb) & (1<<length - 1)
}

// signExtend32 replicates bit into all higher bits of v.
func signExtend32(v uint32, bit uint) uint32 {
	shift := 31 - bit
	return uint32(int32(v<<shift) >> shift)
}

func parseOpcode(word uint32) uint32 { return bits(word, 0, 7) }
func parseRd(word uint32) uint32     { return bits(word, 7, 5) }
func parseFunct3(word uint32) uint32 { return bits(word, 12, 3) }
func parseRs1(word uint32) uint32    { return bits(word, 15, 5) }
func parseRs2(word uint32) uint32    { return bits(word, 20, 5) }
func parseFunct7(word uint32) uint32 { return bits(word, 25, 7) }

func parseImmTypeI(word uint32) uint32 {
	return signExtend32(bits(word, 20, 12), 11)
}

func parseImmTypeS(word uint32) uint32 {
	return signExtend32(bits(word, 25, 7)<<5|bits(word, 7, 5), 11)
}

// imm[12|10:5] in bits 31..25, imm[4:1|11] in bits 11..7; imm[0] is always 0.
func parseImmTypeB(word uint32) uint32 {
	v := bits(word, 31, 1)<<12 |
		bits(word, 7, 1)<<11 |
		bits(word, 25, 6)<<5 |
		bits(word, 8, 4)<<1
	return signExtend32(v, 12)
}

func parseImmTypeU(word uint32) uint32 {
	return bits(word, 12, 20) << 12
}

// imm[20|10:1|11|19:12] in bits 31..12; imm[0] is always 0.
func parseImmTypeJ(word uint32) uint32 {
	v := bits(word, 31, 1)<<20 |
		bits(word, 12, 8)<<12 |
		bits(word, 20, 1)<<11 |
		bits(word, 21, 10)<<1
	return signExtend32(v, 20)
}

// BaseType exposes only the opcode.
type BaseType struct {
	Raw uint32
}

func (i BaseType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i BaseType) Format() Format { return FormatBase }
func (i BaseType) Word() uint32   { return i.Raw }

type RType struct {
	Raw    uint32
	Rd     uint32
	Funct3 uint32
	Rs1    uint32
	Rs2    uint32
	Funct7 uint32
}

func (i RType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i RType) Format() Format { return FormatR }
func (i RType) Word() uint32   { return i.Raw }

type IType struct {
	Raw    uint32
	Rd     uint32
	Funct3 uint32
	Rs1    uint32
	Imm    uint32
}

func (i IType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i IType) Format() Format { return FormatI }
func (i IType) Word() uint32   { return i.Raw }

type SType struct {
	Raw    uint32
	Funct3 uint32
	Rs1    uint32
	Rs2    uint32
	Imm    uint32
}

func (i SType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i SType) Format() Format { return FormatS }
func (i SType) Word() uint32   { return i.Raw }

type BType struct {
	Raw    uint32
	Funct3 uint32
	Rs1    uint32
	Rs2    uint32
	Imm    uint32
}

func (i BType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i BType) Format() Format { return FormatB }
func (i BType) Word() uint32   { return i.Raw }

type UType struct {
	Raw uint32
	Rd  uint32
	Imm uint32
}

func (i UType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i UType) Format() Format { return FormatU }
func (i UType) Word() uint32   { return i.Raw }

type JType struct {
	Raw uint32
	Rd  uint32
	Imm uint32
}

func (i JType) Opcode() uint32 { return parseOpcode(i.Raw) }
func (i JType) Format() Format { return FormatJ }
func (i JType) Word() uint32   { return i.Raw }

func DecodeR(word uint32) RType {
	return RType{
		Raw:    word,
		Rd:     parseRd(word),
		Funct3: parseFunct3(word),
		Rs1:    parseRs1(word),
		Rs2:    parseRs2(word),
		Funct7: parseFunct7(word),
	}
}

func DecodeI(word uint32) IType {
	return IType{
		Raw:    word,
		Rd:     parseRd(word),
		Funct3: parseFunct3(word),
		Rs1:    parseRs1(word),
		Imm:    parseImmTypeI(word),
	}
}

func DecodeS(word uint32) SType {
	return SType{
		Raw:    word,
		Funct3: parseFunct3(word),
		Rs1:    parseRs1(word),
		Rs2:    parseRs2(word),
		Imm:    parseImmTypeS(word),
	}
}

func DecodeB(word uint32) BType {
	return BType{
		Raw:    word,
		Funct3: parseFunct3(word),
		Rs1:    parseRs1(word),
		Rs2:    parseRs2(word),
		Imm:    parseImmTypeB(word),
	}
}

func DecodeU(word uint32) UType {
	return UType{Raw: word, Rd: parseRd(word), Imm: parseImmTypeU(word)}
}

func DecodeJ(word uint32) JType {
	return JType{Raw: word, Rd: parseRd(word), Imm: parseImmTypeJ(word)}
}

// Decode interprets word in the requested format. It never fails: which
// format applies is decided by the caller from the opcode.
func Decode(word uint32, format Format) Instruction {
	switch format {
	case FormatR:
		return DecodeR(word)
	case FormatI:
		return DecodeI(word)
	case FormatS:
		return DecodeS(word)
	case FormatB:
		return DecodeB(word)
	case FormatU:
		return DecodeU(word)
	case FormatJ:
		return DecodeJ(word)
	default:
		return BaseType{Raw: word}
	}
}
