package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/entro314-labs/bigkill/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bigkill:", err)
		stop()
		os.Exit(1)
	}
}
