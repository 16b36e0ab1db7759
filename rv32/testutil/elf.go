package testutil

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
)

const (
	elf32HeaderSize = 52
	elf32PhdrSize   = 32
)

// Prog describes one program header of a generated ELF file.
// A zero Type is PT_LOAD and a zero Memsz means len(Data).
type Prog struct {
	Type  elf.ProgType
	Flags elf.ProgFlag
	Vaddr uint32
	Data  []byte
	Memsz uint32
}

// BuildELF32 produces a minimal little-endian ELF32 executable with the given
// program headers and no section headers. Segment data follows the program
// header table, each chunk 4-byte aligned.
func BuildELF32(machine elf.Machine, entry uint32, progs ...Prog) []byte {
	phoff := uint32(elf32HeaderSize)
	dataOff := phoff + uint32(len(progs))*elf32PhdrSize

	out := make([]byte, dataOff)
	copy(out, elf.ELFMAG)
	out[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	out[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	out[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	le := binary.LittleEndian
	le.PutUint16(out[16:], uint16(elf.ET_EXEC))
	le.PutUint16(out[18:], uint16(machine))
	le.PutUint32(out[20:], uint32(elf.EV_CURRENT))
	le.PutUint32(out[24:], entry)
	le.PutUint32(out[28:], phoff)
	le.PutUint32(out[32:], 0) // e_shoff
	le.PutUint32(out[36:], 0) // e_flags
	le.PutUint16(out[40:], elf32HeaderSize)
	le.PutUint16(out[42:], elf32PhdrSize)
	le.PutUint16(out[44:], uint16(len(progs)))
	le.PutUint16(out[46:], 0) // e_shentsize
	le.PutUint16(out[48:], 0) // e_shnum
	le.PutUint16(out[50:], 0) // e_shstrndx

	for i, p := range progs {
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		typ := p.Type
		if typ == 0 {
			typ = elf.PT_LOAD
		}
		memsz := p.Memsz
		if memsz == 0 {
			memsz = uint32(len(p.Data))
		}
		ph := out[phoff+uint32(i)*elf32PhdrSize:]
		le.PutUint32(ph[0:], uint32(typ))
		le.PutUint32(ph[4:], uint32(len(out))) // p_offset
		le.PutUint32(ph[8:], p.Vaddr)
		le.PutUint32(ph[12:], p.Vaddr) // p_paddr
		le.PutUint32(ph[16:], uint32(len(p.Data)))
		le.PutUint32(ph[20:], memsz)
		le.PutUint32(ph[24:], uint32(p.Flags))
		le.PutUint32(ph[28:], 4) // p_align
		out = append(out, p.Data...)
	}
	return out
}

// RISCVProgram is a single executable segment at base holding words, with
// the entry point at base.
func RISCVProgram(base uint32, words ...uint32) []byte {
	return BuildELF32(elf.EM_RISCV, base, Prog{
		Flags: elf.PF_R | elf.PF_X,
		Vaddr: base,
		Data:  Assemble(words...),
	})
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
