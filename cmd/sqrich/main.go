package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"sqrich/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	application := app.New(os.Stdout, os.Stderr)
	if err := application.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sqrich failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}
