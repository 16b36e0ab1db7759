package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/periscope-vm/periscope/rv32/cmd"
)

func main() {
	app := cmd.NewApp()
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted\n")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if errors.Is(err, cmd.ErrUsage) {
				_, _ = fmt.Fprintf(os.Stderr, "usage: %s [flags] %s\n", app.Name, app.ArgsUsage)
			}
			os.Exit(1)
		}
	}
}
