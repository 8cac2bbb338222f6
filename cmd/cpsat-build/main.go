package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/goplus/cpsat/cmd/cpsat-build/internal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := internal.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
