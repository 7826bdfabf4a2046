package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.miragespace.co/kvlite/cmd/kvlite"
	"go.miragespace.co/kvlite/spec/kv"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kvlite.PrettierHelpPrinter()

	if err := kvlite.NewApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if kv.IsOpenError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
