package vm

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/periscope-vm/periscope/rv32/riscv"
	"github.com/periscope-vm/periscope/rv32/testutil"
)

func newProgramState(t *testing.T, base uint32, words ...uint32) *VMState {
	state := NewVMState()
	_, err := state.Memory.AddSegment(base, testutil.Assemble(words...))
	require.NoError(t, err)
	state.Memory.SetEntryPoint(base)
	require.NoError(t, InitState(state, riscv.DefaultStackSize))
	return state
}

func TestStep(t *testing.T) {
	t.Run("advances", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.ADDI(5, 0, 5), testutil.Halt())
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.Equal(t, uint32(0x1004), state.PC)
		require.Equal(t, uint64(1), state.Step)
		require.False(t, state.Exited)
		require.Equal(t, uint32(5), state.ReadRegister(5))
	})
	t.Run("halts on jump to self", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.Halt())
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.True(t, state.Exited)
		require.Equal(t, uint32(0x1000), state.PC)
		require.Equal(t, uint64(1), state.Step, "the final jump counts as executed")
		require.Equal(t, uint32(0x1004), state.ReadRegister(riscv.RegRA))
	})
	t.Run("self branch halts too", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.BEQ(0, 0, 0))
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.True(t, state.Exited)
	})
	t.Run("exited state does not move", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.Halt())
		require.NoError(t, Step(state, DefaultDispatchTable()))
		before := state.StateHash()
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.Equal(t, uint64(1), state.Step)
		require.Equal(t, before, state.StateHash())
	})
}

func TestStepFaults(t *testing.T) {
	t.Run("data access", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.ADDI(1, 0, 1), testutil.LW(2, 0, 0))
		require.NoError(t, Step(state, DefaultDispatchTable()))
		err := Step(state, DefaultDispatchTable())
		require.ErrorIs(t, err, ErrUnmappedAccess)
		var f *Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, uint32(0x1004), f.PC)
		require.Equal(t, testutil.LW(2, 0, 0), f.Instr)
		require.Equal(t, uint32(0), f.Addr)
		require.Equal(t, uint32(0x1004), state.PC, "faults leave the PC alone")
		require.Equal(t, uint64(1), state.Step)
	})
	t.Run("fetch outside of memory", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.JAL(0, 0x100))
		require.NoError(t, Step(state, DefaultDispatchTable()))
		err := Step(state, DefaultDispatchTable())
		require.ErrorIs(t, err, ErrUnmappedAccess)
		var f *Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, uint32(0x1100), f.PC)
		require.Equal(t, uint32(0x1100), f.Addr)
	})
	t.Run("misaligned fetch", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.LUI(1, 1), testutil.ADDI(1, 1, 6), testutil.JALR(0, 1, 0), 0)
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.NoError(t, Step(state, DefaultDispatchTable()))
		require.Equal(t, uint32(0x1006), state.PC)
		err := Step(state, DefaultDispatchTable())
		require.ErrorIs(t, err, ErrAlignmentFault)
	})
	t.Run("unknown opcode", func(t *testing.T) {
		state := newProgramState(t, 0x1000, 0x00000073) // ecall
		err := Step(state, DefaultDispatchTable())
		require.ErrorIs(t, err, ErrUnimplementedInstruction)
		var f *Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, riscv.ErrUnknownOpCode, f.Code())
		require.Equal(t, uint32(0x1000), f.PC)
	})
}

func TestRun(t *testing.T) {
	t.Run("factorial", func(t *testing.T) {
		for _, c := range []struct {
			n     int32
			want  uint32
			steps uint64
		}{
			{0, 1, 4},
			{1, 1, 8},
			{5, 120, 24},
			{10, 3628800, 44},
			{13, 1932053504, 56}, // 13! mod 2^32
		} {
			state := newProgramState(t, 0x1000, testutil.Factorial(c.n)...)
			us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
			require.NoError(t, us.Run(context.Background(), nil))
			require.True(t, state.Exited)
			require.Equal(t, c.want, state.ReadRegister(riscv.RegA0), "n=%d", c.n)
			require.Equal(t, c.steps, state.Step, "n=%d", c.n)
			require.Equal(t, uint32(0x1018), state.PC)
			require.Equal(t, uint32(0x101c), state.ReadRegister(riscv.RegRA))
		}
	})
	t.Run("stack call", func(t *testing.T) {
		state := newProgramState(t, 0x10000, testutil.StackCall()...)
		us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
		require.NoError(t, us.Run(context.Background(), nil))
		require.Equal(t, uint32(84), state.ReadRegister(riscv.RegA0))
		require.Equal(t, uint32(riscv.StackTop-16), state.ReadRegister(riscv.RegSP))
		require.Equal(t, uint32(0x10018), state.ReadRegister(riscv.RegRA), "the final jal links too")
		require.Equal(t, uint64(10), state.Step)
		v, err := state.Memory.Read32(riscv.StackTop - 4)
		require.NoError(t, err)
		require.Equal(t, uint32(84), v)
	})
	t.Run("cancelled", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.JAL(0, 4), testutil.JAL(0, -4))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
		require.ErrorIs(t, us.Run(ctx, nil), context.Canceled)
		require.Equal(t, uint64(0), state.Step)
	})
	t.Run("fault stops the run", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.ADDI(1, 0, 1), testutil.SW(1, 1, 0), testutil.Halt())
		us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
		err := us.Run(context.Background(), nil)
		require.ErrorIs(t, err, ErrAlignmentFault)
		require.False(t, state.Exited)
		require.Equal(t, uint64(1), state.Step)
	})
}

func TestRunHook(t *testing.T) {
	t.Run("stop", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.Factorial(5)...)
		us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
		var seen []uint64
		err := us.Run(context.Background(), func(s *VMState) (bool, error) {
			seen = append(seen, s.Step)
			return s.Step == 10, nil
		})
		require.NoError(t, err)
		require.False(t, state.Exited)
		require.Equal(t, uint64(10), state.Step)
		require.Len(t, seen, 11)
		require.Equal(t, uint64(0), seen[0])
	})
	t.Run("error", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.Factorial(5)...)
		us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
		errHook := errors.New("hook failed")
		err := us.Run(context.Background(), func(s *VMState) (bool, error) {
			if s.Step == 3 {
				return false, errHook
			}
			return false, nil
		})
		require.ErrorIs(t, err, errHook)
		require.Equal(t, uint64(3), state.Step)
	})
	t.Run("not called after exit", func(t *testing.T) {
		state := newProgramState(t, 0x1000, testutil.Factorial(2)...)
		us := NewInstrumentedState(state, DefaultDispatchTable(), testlog.Logger(t, log.LevelInfo))
		calls := 0
		require.NoError(t, us.Run(context.Background(), func(s *VMState) (bool, error) {
			calls++
			return false, nil
		}))
		require.True(t, state.Exited)
		require.Equal(t, int(state.Step), calls)
	})
}

func TestInstrumentedTrace(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewLogger(log.LogfmtHandlerWithLevel(&buf, log.LevelDebug))
	state := newProgramState(t, 0x1000, testutil.ADDI(5, 0, 5), testutil.Halt())
	us := NewInstrumentedState(state, DefaultDispatchTable(), l)
	require.NoError(t, us.Run(context.Background(), nil))
	require.Empty(t, buf.String(), "nothing is traced by default")

	state = newProgramState(t, 0x1000, testutil.ADDI(5, 0, 5), testutil.Halt())
	us = NewInstrumentedState(state, DefaultDispatchTable(), l)
	us.SetTrace(true)
	require.NoError(t, us.Run(context.Background(), nil))
	out := buf.String()
	require.Contains(t, out, "pc=00001000")
	require.Contains(t, out, "insn=00500293")
	require.Contains(t, out, `asm="addi x5, x0, 5"`)
	require.Contains(t, out, `asm="jal x0, 0"`)
	require.Same(t, state, us.State())
}
