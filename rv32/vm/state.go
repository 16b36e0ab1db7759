package vm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

// Processor is the architectural register state of a single hart.
type Processor struct {
	PC uint32 `json:"pc"`

	// Registers[0] is never written, so it always reads as zero.
	Registers [32]uint32 `json:"registers"`
}

func (p *Processor) ReadRegister(reg uint32) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return p.Registers[reg]
}

func (p *Processor) WriteRegister(reg uint32, v uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	p.Registers[reg] = v
}

func (p *Processor) GetPC() uint32 {
	return p.PC
}

func (p *Processor) SetPC(pc uint32) {
	p.PC = pc
}

// NextPC is the address of the sequentially following instruction.
func (p *Processor) NextPC() uint32 {
	return p.PC + riscv.InstrSize
}

type VMState struct {
	Memory *Memory `json:"memory"`

	Processor

	// Step counts executed instructions, including the final jump-to-self.
	Step uint64 `json:"step"`

	Exited bool `json:"exited"`
}

func NewVMState() *VMState {
	return &VMState{
		Memory: NewMemory(),
	}
}

func (state *VMState) EncodeWitness() []byte {
	out := make([]byte, 0, 8+4+1+32*4+state.Memory.Size())
	out = binary.BigEndian.AppendUint64(out, state.Step)
	out = binary.BigEndian.AppendUint32(out, state.PC)
	if state.Exited {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	for _, r := range state.Registers {
		out = binary.BigEndian.AppendUint32(out, r)
	}
	return state.Memory.encodeWitness(out)
}

// StateHash commits to the full processor and memory state.
func (state *VMState) StateHash() common.Hash {
	return crypto.Keccak256Hash(state.EncodeWitness())
}

// Instr returns the instruction word at the current PC.
func (state *VMState) Instr() (uint32, error) {
	return state.Memory.Read32(state.PC)
}
