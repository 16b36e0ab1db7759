package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/periscope-vm/periscope/rv32/riscv"
)

type WitnessOutput struct {
	Witness   hexutil.Bytes `json:"witness"`
	StateHash common.Hash   `json:"stateHash"`
}

func Witness(ctx *cli.Context) error {
	input := ctx.Path(WitnessInputFlag.Name)
	output := ctx.Path(WitnessOutputFlag.Name)
	state, err := LoadState(input, riscv.DefaultStackSize, Logger(ctx.App.ErrWriter, log.LevelWarn))
	if err != nil {
		return fmt.Errorf("invalid input state (%v): %w", input, err)
	}
	witness := state.EncodeWitness()
	witnessOutput := &WitnessOutput{
		Witness:   witness,
		StateHash: state.StateHash(),
	}
	if output != "" {
		if err := jsonutil.WriteJSON(witnessOutput, ioutil.ToStdOutOrFileOrNoop(output, OutFilePerm)); err != nil {
			return fmt.Errorf("failed to write witness output %w", err)
		}
	}
	_, _ = fmt.Fprintln(ctx.App.Writer, witnessOutput.StateHash.Hex())
	return nil
}

var WitnessCommand = &cli.Command{
	Name:        "witness",
	Usage:       "Compute the state hash of a periscope state",
	Description: "Compute the Keccak-256 state hash of a JSON state or freshly loaded ELF program. The statehash is written to stdout",
	Action:      Witness,
	Flags: []cli.Flag{
		WitnessInputFlag,
		WitnessOutputFlag,
	},
}
