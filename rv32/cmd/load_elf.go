package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/periscope-vm/periscope/rv32/vm"
)

func LoadELF(ctx *cli.Context) error {
	size, err := stackSize(ctx)
	if err != nil {
		return err
	}
	state, _, err := vm.LoadELF(ctx.Path(PathFlag.Name), size)
	if err != nil {
		return fmt.Errorf("failed to load ELF data into VM state: %w", err)
	}
	return jsonutil.WriteJSON(state, ioutil.ToStdOutOrFileOrNoop(ctx.Path(LoadELFOutFlag.Name), OutFilePerm))
}

var LoadELFCommand = &cli.Command{
	Name:        "load-elf",
	Usage:       "Load ELF file into periscope JSON state",
	Description: "Load ELF file into periscope JSON state, with the stack allocated and the registers set up for the first step",
	Action:      LoadELF,
	Flags: []cli.Flag{
		PathFlag,
		LoadELFOutFlag,
		StackSizeFlag,
	},
}
