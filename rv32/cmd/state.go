package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/periscope-vm/periscope/rv32/riscv"
	"github.com/periscope-vm/periscope/rv32/vm"
)

func isJSONState(path string) bool {
	return strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.gz")
}

func stackSize(ctx *cli.Context) (uint32, error) {
	size := ctx.Uint(StackSizeFlag.Name)
	if size == 0 || size > riscv.StackTop {
		return 0, fmt.Errorf("%w: stack size %d out of range (1..%d)", ErrUsage, size, riscv.StackTop)
	}
	return uint32(size), nil
}

// LoadState builds the VM state for path: a JSON state written by load-elf
// or run --output is resumed as is, anything else is loaded as an ELF
// program with a fresh stack.
func LoadState(path string, stackSize uint32, l log.Logger) (*vm.VMState, error) {
	if isJSONState(path) {
		state, err := jsonutil.LoadJSON[vm.VMState](path)
		if err != nil {
			return nil, fmt.Errorf("failed to load state %q: %w", path, err)
		}
		if state.Memory == nil {
			return nil, fmt.Errorf("state %q has no memory", path)
		}
		l.Info("resuming from state", "path", path, "step", state.Step, "pc", vm.HexU32(state.PC), "exited", state.Exited)
		return state, nil
	}
	state, img, err := vm.LoadELF(path, stackSize)
	if err != nil {
		return nil, err
	}
	for _, seg := range state.Memory.Segments() {
		l.Info("loaded segment", "base", vm.HexU32(seg.Base), "size", len(seg.Data))
	}
	l.Info("loaded program", "path", path, "machine", img.Machine.String(), "entry", vm.HexU32(img.Entry),
		"segments", state.Memory.SegmentCount(), "mem", state.Memory.Usage())
	return state, nil
}

// loadMemory loads the segments of path without setting up a stack.
func loadMemory(path string) (*vm.Memory, error) {
	if isJSONState(path) {
		state, err := jsonutil.LoadJSON[vm.VMState](path)
		if err != nil {
			return nil, fmt.Errorf("failed to load state %q: %w", path, err)
		}
		if state.Memory == nil {
			return nil, errors.New("state has no memory")
		}
		return state.Memory, nil
	}
	m := vm.NewMemory()
	if _, err := m.LoadBinary(path); err != nil {
		return nil, err
	}
	return m, nil
}
