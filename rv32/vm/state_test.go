package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessorRegisters(t *testing.T) {
	var p Processor
	p.WriteRegister(0, 0xdeadbeef)
	require.Equal(t, uint32(0), p.ReadRegister(0))
	require.Equal(t, uint32(0), p.Registers[0])

	for reg := uint32(1); reg < 32; reg++ {
		p.WriteRegister(reg, reg*3)
	}
	for reg := uint32(1); reg < 32; reg++ {
		require.Equal(t, reg*3, p.ReadRegister(reg))
	}

	p.WriteRegister(32, 1)
	require.Equal(t, uint32(0), p.ReadRegister(32))
	require.Equal(t, uint32(0), p.ReadRegister(0xFFFFFFFF))
}

func TestProcessorPC(t *testing.T) {
	var p Processor
	p.SetPC(0x1000)
	require.Equal(t, uint32(0x1000), p.GetPC())
	require.Equal(t, uint32(0x1004), p.NextPC())
	p.SetPC(0xFFFFFFFC)
	require.Equal(t, uint32(0), p.NextPC())
}

func TestStateHash(t *testing.T) {
	newState := func() *VMState {
		s := NewVMState()
		_, err := s.Memory.AddSegment(0x1000, []byte{1, 2, 3, 4})
		require.NoError(t, err)
		s.PC = 0x1000
		s.WriteRegister(2, 0x7000)
		return s
	}
	a, b := newState(), newState()
	require.Equal(t, a.StateHash(), b.StateHash())
	require.Equal(t, a.EncodeWitness(), b.EncodeWitness())

	t.Run("register", func(t *testing.T) {
		c := newState()
		c.WriteRegister(31, 1)
		require.NotEqual(t, a.StateHash(), c.StateHash())
	})
	t.Run("memory", func(t *testing.T) {
		c := newState()
		require.NoError(t, c.Memory.Write8(0x1003, 5))
		require.NotEqual(t, a.StateHash(), c.StateHash())
	})
	t.Run("step", func(t *testing.T) {
		c := newState()
		c.Step = 1
		require.NotEqual(t, a.StateHash(), c.StateHash())
	})
	t.Run("exited", func(t *testing.T) {
		c := newState()
		c.Exited = true
		require.NotEqual(t, a.StateHash(), c.StateHash())
	})
}

func TestStateInstr(t *testing.T) {
	s := NewVMState()
	_, err := s.Memory.AddSegment(0x1000, []byte{0x93, 0x02, 0x50, 0x00})
	require.NoError(t, err)
	s.PC = 0x1000
	instr, err := s.Instr()
	require.NoError(t, err)
	require.Equal(t, uint32(0x00500293), instr)

	s.PC = 0x2000
	_, err = s.Instr()
	require.ErrorIs(t, err, ErrUnmappedAccess)
}
