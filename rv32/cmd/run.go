package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/periscope-vm/periscope/rv32/riscv"
	"github.com/periscope-vm/periscope/rv32/vm"
)

func Run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one program, got %d arguments", ErrUsage, ctx.NArg())
	}
	if ctx.Bool(RunPProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	lvl, err := ParseLogLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return err
	}
	l := Logger(ctx.App.ErrWriter, lvl)

	stopAt, err := ParseStepMatcher(ctx.String(RunStopAtFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", RunStopAtFlag.Name, err)
	}
	infoAt, err := ParseStepMatcher(ctx.String(RunInfoAtFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", RunInfoAtFlag.Name, err)
	}
	snapshotAt, err := ParseStepMatcher(ctx.String(RunSnapshotAtFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", RunSnapshotAtFlag.Name, err)
	}
	snapshotFmt := ctx.String(RunSnapshotFmtFlag.Name)

	var peeks []Peek
	for _, expr := range ctx.StringSlice(RunPeekFlag.Name) {
		p, err := ParsePeek(expr)
		if err != nil {
			return err
		}
		peeks = append(peeks, p)
	}

	size, err := stackSize(ctx)
	if err != nil {
		return err
	}
	state, err := LoadState(ctx.Args().First(), size, l)
	if err != nil {
		return err
	}

	us := vm.NewInstrumentedState(state, vm.DefaultDispatchTable(), l)
	us.SetTrace(ctx.Bool(RunTraceFlag.Name))

	start := time.Now()
	startStep := state.Step

	err = us.Run(ctx.Context, func(state *vm.VMState) (bool, error) {
		step := state.Step

		if infoAt(state) {
			delta := time.Since(start)
			instr, _ := state.Instr()
			l.Info("processing",
				"step", step,
				"pc", vm.HexU32(state.PC),
				"insn", vm.HexU32(instr),
				"ips", float64(step-startStep)/(float64(delta)/float64(time.Second)),
				"segments", state.Memory.SegmentCount(),
				"mem", state.Memory.Usage(),
			)
		}

		if stopAt(state) {
			l.Info("stopping early", "step", step, "pc", vm.HexU32(state.PC))
			return true, nil
		}

		if snapshotAt(state) {
			if err := jsonutil.WriteJSON(state, ioutil.ToStdOutOrFileOrNoop(fmt.Sprintf(snapshotFmt, step), OutFilePerm)); err != nil {
				return false, fmt.Errorf("failed to write state snapshot: %w", err)
			}
		}
		return false, nil
	})
	var fault *vm.Fault
	if errors.As(err, &fault) {
		return fmt.Errorf("failed at step %d (PC: %08x): %w", state.Step, state.PC, err)
	} else if err != nil {
		return err
	}
	l.Info("execution finished", "steps", state.Step-startStep, "exited", state.Exited, "elapsed", time.Since(start))

	if out := ctx.Path(RunOutputFlag.Name); out != "" {
		if err := jsonutil.WriteJSON(state, ioutil.ToStdOutOrFileOrNoop(out, OutFilePerm)); err != nil {
			return fmt.Errorf("failed to write state output: %w", err)
		}
	}
	return printSummary(ctx.App.Writer, state, peeks)
}

func printSummary(w io.Writer, state *vm.VMState, peeks []Peek) error {
	_, _ = fmt.Fprintf(w, "Number of executed instructions: %d\n", state.Step)
	_, _ = fmt.Fprintf(w, "Final PC: 0x%08x (exited: %v)\n", state.PC, state.Exited)
	_, _ = fmt.Fprintf(w, "Result in a0: %d\n", state.ReadRegister(riscv.RegA0))
	for _, p := range peeks {
		addr := p.Addr(&state.Processor)
		v, err := p.Read(state)
		if err != nil {
			return fmt.Errorf("failed to peek %s: %w", p.Expr, err)
		}
		_, _ = fmt.Fprintf(w, "Word at %s (0x%08x): %d\n", p.Expr, addr, v)
	}
	_, _ = fmt.Fprintf(w, "State hash: %s\n", state.StateHash().Hex())
	return nil
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Run a RISC-V program until it jumps to itself",
	Description: "Run a RV32I ELF program, or resume a JSON state, until it jumps to itself. See flags to match when to print progress, write a snapshot, or to stop early.",
	ArgsUsage:   "<program.elf|state.json>",
	Action:      Run,
	Flags:       RunFlags,
}

// NewApp returns the periscope CLI. Running it without a sub-command runs
// the program given as argument.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "periscope"
	app.Usage = "RV32I subset emulator"
	app.Description = "Loads a RISC-V ELF32 executable and interprets it until the program jumps to itself."
	app.ArgsUsage = "<program.elf|state.json>"
	app.Flags = RunFlags
	app.Action = Run
	app.Commands = []*cli.Command{
		RunCommand,
		LoadELFCommand,
		DumpCommand,
		WitnessCommand,
	}
	return app
}
