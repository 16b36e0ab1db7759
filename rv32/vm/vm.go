package vm

import (
	"errors"
)

// Step runs a single instruction: fetch the word at PC, dispatch on its
// opcode and write back the returned PC. The state is marked exited when an
// instruction jumps to itself. Faults abort the step with the PC and
// instruction word filled in, leaving PC and Step unchanged.
func Step(s *VMState, table *DispatchTable) error {
	if s.Exited {
		return nil
	}
	pc := s.GetPC()
	instr, err := s.Memory.Read32(pc)
	if err != nil {
		return annotate(err, pc, 0)
	}

	handler, ok := table.Lookup(parseOpcode(instr))
	if !ok {
		return &Fault{Kind: FaultUnimplemented, PC: pc, Instr: instr, UnknownOpcode: true}
	}
	nextPC, err := handler(s.Memory, &s.Processor, instr)
	if err != nil {
		return annotate(err, pc, instr)
	}

	s.SetPC(nextPC)
	s.Step++
	if nextPC == pc {
		s.Exited = true
	}
	return nil
}

func annotate(err error, pc uint32, instr uint32) error {
	var f *Fault
	if errors.As(err, &f) {
		f.PC = pc
		f.Instr = instr
	}
	return err
}
