package vm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/periscope-vm/periscope/rv32/testutil"
)

var allFormats = []Format{FormatBase, FormatR, FormatI, FormatS, FormatB, FormatU, FormatJ}

func TestDecodeOpcodeIsFormatIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	for i := 0; i < 1000; i++ {
		word := rng.Uint32()
		for _, f := range allFormats {
			ins := Decode(word, f)
			require.Equal(t, word&0x7F, ins.Opcode(), "format %v word %08x", f, word)
			require.Equal(t, f, ins.Format())
			require.Equal(t, word, ins.Word())
		}
	}
}

func TestDecodeImmediates(t *testing.T) {
	t.Run("I sign extension", func(t *testing.T) {
		require.Equal(t, uint32(0xFFFFFFFF), DecodeI(0xFFF<<20).Imm)
		require.Equal(t, uint32(0x7FF), DecodeI(0x7FF<<20).Imm)
		require.Equal(t, uint32(0xFFFFF800), DecodeI(0x800<<20).Imm)
		require.Equal(t, uint32(5), DecodeI(testutil.ADDI(5, 0, 5)).Imm)
	})
	t.Run("I fields", func(t *testing.T) {
		ii := DecodeI(testutil.ADDI(5, 7, -3))
		require.Equal(t, uint32(5), ii.Rd)
		require.Equal(t, uint32(7), ii.Rs1)
		require.Equal(t, uint32(0), ii.Funct3)
		require.Equal(t, int32(-3), int32(ii.Imm))
	})
	t.Run("R fields", func(t *testing.T) {
		ri := DecodeR(testutil.MUL(31, 17, 3))
		require.Equal(t, RType{Raw: ri.Raw, Rd: 31, Funct3: 0, Rs1: 17, Rs2: 3, Funct7: 1}, ri)
	})
	t.Run("S", func(t *testing.T) {
		for _, imm := range []int32{0, 1, -1, 2047, -2048, 0x5A5, -0x123} {
			si := DecodeS(testutil.SW(9, 4, imm))
			require.Equal(t, imm, int32(si.Imm), "imm %d", imm)
			require.Equal(t, uint32(9), si.Rs2)
			require.Equal(t, uint32(4), si.Rs1)
			require.Equal(t, uint32(2), si.Funct3)
		}
	})
	t.Run("B", func(t *testing.T) {
		for _, imm := range []int32{0, 2, -2, 4094, -4096, 0x7FE, -0x800, 16} {
			bi := DecodeB(testutil.BNE(3, 4, imm))
			require.Equal(t, imm, int32(bi.Imm), "imm %d", imm)
			require.Equal(t, uint32(3), bi.Rs1)
			require.Equal(t, uint32(4), bi.Rs2)
		}
	})
	t.Run("U", func(t *testing.T) {
		ui := DecodeU(testutil.LUI(7, 0xABCDE))
		require.Equal(t, uint32(0xABCDE000), ui.Imm)
		require.Equal(t, uint32(7), ui.Rd)
		require.Equal(t, uint32(0xFFFFF000), DecodeU(0xFFFFFFFF).Imm)
	})
	t.Run("J", func(t *testing.T) {
		for _, imm := range []int32{0, 8, -8, 0xFFFFE, -0x100000, 2048, -2050} {
			ji := DecodeJ(testutil.JAL(1, imm))
			require.Equal(t, imm, int32(ji.Imm), "imm %d", imm)
			require.Equal(t, uint32(1), ji.Rd)
		}
	})
	t.Run("B and J are even", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 1000; i++ {
			word := rng.Uint32()
			require.Zero(t, DecodeB(word).Imm&1)
			require.Zero(t, DecodeJ(word).Imm&1)
		}
		require.Zero(t, DecodeB(0xFFFFFFFF).Imm&1)
		require.Zero(t, DecodeJ(0xFFFFFFFF).Imm&1)
	})
	t.Run("sign bit is bit 31", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 1000; i++ {
			word := rng.Uint32()
			neg := word>>31 == 1
			require.Equal(t, neg, int32(DecodeI(word).Imm) < 0)
			require.Equal(t, neg, int32(DecodeS(word).Imm) < 0)
			require.Equal(t, neg, int32(DecodeB(word).Imm) < 0)
			require.Equal(t, neg, int32(DecodeJ(word).Imm) < 0)
		}
	})
}

func TestDisassemble(t *testing.T) {
	cases := []struct {
		word uint32
		asm  string
	}{
		{testutil.ADDI(5, 0, 5), "addi x5, x0, 5"},
		{testutil.SLLI(6, 5, 3), "slli x6, x5, 3"},
		{testutil.ADD(1, 2, 3), "add x1, x2, x3"},
		{testutil.MUL(10, 10, 5), "mul x10, x10, x5"},
		{testutil.LUI(3, 0x12345), "lui x3, 0x12345"},
		{testutil.JAL(1, 8), "jal x1, 8"},
		{testutil.JALR(0, 1, 0), "jalr x0, 0(x1)"},
		{testutil.LW(10, 2, 12), "lw x10, 12(x2)"},
		{testutil.LBU(4, 8, -20), "lbu x4, -20(x8)"},
		{testutil.SH(7, 2, -2), "sh x7, -2(x2)"},
		{testutil.BGEU(1, 2, -16), "bgeu x1, x2, -16"},
		{0x00000073, ".word 0x00000073"},
		{testutil.EncodeR(0x33, 1, 0, 2, 3, 0x20), ".word 0x403100b3"},
	}
	for _, c := range cases {
		require.Equal(t, c.asm, Disassemble(c.word))
	}
}
