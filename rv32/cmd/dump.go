package cmd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/periscope-vm/periscope/rv32/vm"
)

func Dump(ctx *cli.Context) error {
	m, err := loadMemory(ctx.Path(PathFlag.Name))
	if err != nil {
		return err
	}
	segs := m.Segments()
	idx := ctx.Int(DumpSegmentFlag.Name)
	if idx >= len(segs) || idx < -1 {
		return fmt.Errorf("%w: invalid segment id %d, have %d segments", ErrUsage, idx, len(segs))
	}
	disasm := ctx.Bool(DumpDisasmFlag.Name)
	w := ctx.App.Writer

	_, _ = fmt.Fprintf(w, "Entry point: 0x%08x\n", m.EntryPoint())
	for i, seg := range segs {
		if idx != -1 && i != idx {
			continue
		}
		if err := dumpSegment(w, m, i, seg, disasm); err != nil {
			return err
		}
	}
	return nil
}

func dumpSegment(w io.Writer, m *vm.Memory, i int, seg *vm.Segment, disasm bool) error {
	_, _ = fmt.Fprintf(w, "\nSegment %d at 0x%08x\n", i, seg.Base)
	_, _ = fmt.Fprintf(w, "Size: %d Bytes\n", len(seg.Data))

	r, err := m.ReadMemoryRange(seg.Base, uint32(len(seg.Data)))
	if err != nil {
		return fmt.Errorf("failed to read segment %d: %w", i, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if disasm {
		for off := 0; off+4 <= len(data); off += 4 {
			word := binary.LittleEndian.Uint32(data[off:])
			_, _ = fmt.Fprintf(w, "0x%08x: %08x  %s\n", seg.Base+uint32(off), word, vm.Disassemble(word))
		}
		return nil
	}
	for off := 0; off < len(data); off += 16 {
		end := min(off+16, len(data))
		_, _ = fmt.Fprintf(w, "0x%08x: % x\n", seg.Base+uint32(off), data[off:end])
	}
	return nil
}

var DumpCommand = &cli.Command{
	Name:        "dump",
	Usage:       "Dump the loaded segments of an ELF file or JSON state",
	Description: "Print the memory segments that would be loaded from an ELF file, or that are held by a JSON state, as hex bytes or disassembled instructions",
	Action:      Dump,
	Flags: []cli.Flag{
		PathFlag,
		DumpSegmentFlag,
		DumpDisasmFlag,
	},
}
