package cmd

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

// ErrUsage marks errors caused by bad command line input.
var ErrUsage = errors.New("usage error")

var OutFilePerm = os.FileMode(0o755)

var (
	LogLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "Log level: trace, debug, info, warn, error or crit",
		Value: "info",
	}
	StackSizeFlag = &cli.UintFlag{
		Name:  "stack-size",
		Usage: "Size in bytes of the stack pre-allocated below the initial stack pointer",
		Value: riscv.DefaultStackSize,
	}
	RunOutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "Path of the JSON state written after the run. Empty to skip, - for stdout",
		TakesFile: true,
	}
	RunStopAtFlag = &cli.StringFlag{
		Name:  "stop-at",
		Usage: "step pattern to stop at: never (default), always, =123 at exactly step 123, %123 for every 123 steps",
		Value: "never",
	}
	RunInfoAtFlag = &cli.StringFlag{
		Name:  "info-at",
		Usage: "step pattern to print progress info at: never (default), always, =123, %123",
		Value: "never",
	}
	RunSnapshotAtFlag = &cli.StringFlag{
		Name:  "snapshot-at",
		Usage: "step pattern to write a JSON state snapshot at: never (default), always, =123, %123",
		Value: "never",
	}
	RunSnapshotFmtFlag = &cli.StringFlag{
		Name:  "snapshot-fmt",
		Usage: "format for snapshot output file names",
		Value: "state-%d.json",
	}
	RunPeekFlag = &cli.StringSliceFlag{
		Name:  "peek",
		Usage: "register-relative word to print after the run, e.g. s0-20; can be repeated",
	}
	RunTraceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "log every executed instruction at debug level",
	}
	RunPProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "enable pprof cpu profiling",
	}

	PathFlag = &cli.PathFlag{
		Name:      "path",
		Usage:     "Path to a RISC-V ELF file, or a JSON state",
		TakesFile: true,
		Required:  true,
	}
	LoadELFOutFlag = &cli.PathFlag{
		Name:      "out",
		Usage:     "Output path of the JSON state. - for stdout",
		TakesFile: true,
		Value:     "state.json",
	}
	DumpSegmentFlag = &cli.IntFlag{
		Name:  "segment",
		Usage: "Index of the segment to dump, -1 for all of them",
		Value: -1,
	}
	DumpDisasmFlag = &cli.BoolFlag{
		Name:  "disasm",
		Usage: "Disassemble the segment content word by word",
	}
	WitnessInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "path of the JSON state or ELF file",
		TakesFile: true,
		Required:  true,
	}
	WitnessOutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "path to write the binary witness and state hash to as JSON",
		TakesFile: true,
	}
)

var RunFlags = []cli.Flag{
	LogLevelFlag,
	StackSizeFlag,
	RunOutputFlag,
	RunStopAtFlag,
	RunInfoAtFlag,
	RunSnapshotAtFlag,
	RunSnapshotFmtFlag,
	RunPeekFlag,
	RunTraceFlag,
	RunPProfCPUFlag,
}
