package vm

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

// ProgramHeader is the part of an ELF32 program header the loader uses.
type ProgramHeader struct {
	Type   elf.ProgType
	Flags  elf.ProgFlag
	Offset uint32
	Vaddr  uint32
	Filesz uint32
	Memsz  uint32
}

// ELFImage is the parsed metadata of an ELF file plus its raw bytes.
type ELFImage struct {
	Machine  elf.Machine
	Entry    uint32
	Programs []ProgramHeader

	raw []byte
}

// ParseELFFile reads the whole file at path and parses it.
func ParseELFFile(path string) (*ELFImage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %q: %w", path, err)
	}
	return ParseELF(raw)
}

// ParseELF parses an ELF32 little-endian RISC-V executable.
func ParseELF(raw []byte) (*ELFImage, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidELF, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: not a 32-bit ELF file (class %v)", ErrInvalidELF, f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("%w: not a little-endian ELF file", ErrInvalidELF)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w, but got %q", ErrNotRISCV, f.Machine.String())
	}
	if len(f.Progs) < 1 {
		return nil, ErrNoProgramHeaders
	}

	img := &ELFImage{
		Machine:  f.Machine,
		Entry:    uint32(f.Entry),
		Programs: make([]ProgramHeader, 0, len(f.Progs)),
		raw:      raw,
	}
	for _, prog := range f.Progs {
		img.Programs = append(img.Programs, ProgramHeader{
			Type:   prog.Type,
			Flags:  prog.Flags,
			Offset: uint32(prog.Off),
			Vaddr:  uint32(prog.Vaddr),
			Filesz: uint32(prog.Filesz),
			Memsz:  uint32(prog.Memsz),
		})
	}
	return img, nil
}

// Materialize copies every PT_LOAD segment into m and records the entry
// point. Other program header types are kept in the image only.
func (img *ELFImage) Materialize(m *Memory) error {
	for i, prog := range img.Programs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if uint64(prog.Offset)+uint64(prog.Filesz) > uint64(len(img.raw)) {
			return fmt.Errorf("%w: segment %d file range [%d, %d) exceeds file size %d",
				ErrBadProgramHeader, i, prog.Offset, uint64(prog.Offset)+uint64(prog.Filesz), len(img.raw))
		}
		if prog.Filesz > prog.Memsz {
			return fmt.Errorf("%w: segment %d file size (%d) > mem size (%d)", ErrBadProgramHeader, i, prog.Filesz, prog.Memsz)
		}
		if prog.Memsz == 0 {
			continue
		}
		// bytes past filesz are the zero-filled bss
		if _, err := m.AddSegment(prog.Vaddr, make([]byte, prog.Memsz)); err != nil {
			return fmt.Errorf("failed to load program segment %d: %w", i, err)
		}
		r := io.NewSectionReader(bytes.NewReader(img.raw), int64(prog.Offset), int64(prog.Filesz))
		if err := m.SetMemoryRange(prog.Vaddr, r); err != nil {
			return fmt.Errorf("failed to read program segment %d: %w", i, err)
		}
	}
	m.SetEntryPoint(img.Entry)
	return nil
}

// LoadBinary parses the ELF file at path and populates the memory with its
// loadable segments.
func (m *Memory) LoadBinary(path string) (*ELFImage, error) {
	img, err := ParseELFFile(path)
	if err != nil {
		return nil, err
	}
	if err := img.Materialize(m); err != nil {
		return nil, err
	}
	return img, nil
}

// LoadELF builds the initial VM state for the program at path: segments
// loaded, a stack of stackSize bytes below riscv.StackTop, PC at the entry
// point and sp at the stack top.
func LoadELF(path string, stackSize uint32) (*VMState, *ELFImage, error) {
	state := NewVMState()
	img, err := state.Memory.LoadBinary(path)
	if err != nil {
		return nil, nil, err
	}
	if err := InitState(state, stackSize); err != nil {
		return nil, nil, err
	}
	return state, img, nil
}

// InitState allocates the stack and sets the registers for a freshly loaded
// memory image.
func InitState(state *VMState, stackSize uint32) error {
	if _, err := state.Memory.AllocStack(riscv.StackTop, stackSize); err != nil {
		return err
	}
	state.PC = state.Memory.EntryPoint()
	state.WriteRegister(riscv.RegSP, riscv.StackTop)
	return nil
}
