package vm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// InstrumentedState drives a VMState with a dispatch table and optionally
// traces every executed instruction.
type InstrumentedState struct {
	state *VMState
	table *DispatchTable

	log   log.Logger
	trace bool
}

func NewInstrumentedState(state *VMState, table *DispatchTable, l log.Logger) *InstrumentedState {
	if l == nil {
		l = log.Root()
	}
	return &InstrumentedState{
		state: state,
		table: table,
		log:   l,
	}
}

// SetTrace enables a debug log record for every executed instruction.
func (m *InstrumentedState) SetTrace(trace bool) {
	m.trace = trace
}

func (m *InstrumentedState) State() *VMState {
	return m.state
}

func (m *InstrumentedState) Step() error {
	if m.trace {
		pc := m.state.PC
		if instr, err := m.state.Instr(); err == nil {
			m.log.Debug("step", "step", m.state.Step, "pc", HexU32(pc), "insn", HexU32(instr), "asm", Disassemble(instr))
		}
	}
	return Step(m.state, m.table)
}

// StepHook is called before every step of Run. Returning stop ends the run
// before the step executes.
type StepHook func(s *VMState) (stop bool, err error)

// Run steps until the program jumps to itself, the hook asks to stop, or an
// error occurs. The hook may be nil. The context is only checked every 100
// steps.
func (m *InstrumentedState) Run(ctx context.Context, hook StepHook) error {
	for !m.state.Exited {
		if m.state.Step%100 == 0 { // don't do the ctx err check (includes lock) too often
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if hook != nil {
			stop, err := hook(m.state)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// HexU32 to lazy-format integer attributes for logging
type HexU32 uint32

func (v HexU32) String() string {
	return fmt.Sprintf("%08x", uint32(v))
}

func (v HexU32) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
