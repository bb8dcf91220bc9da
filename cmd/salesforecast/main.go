package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/drstein77/salesforecast/internal/app"
)

func main() {
	// Create a root context with the possibility of cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Create a channel for signal handling
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		// Wait for a signal
		sig := <-signalCh
		a.Log.Info("Received signal, stopping", zap.String("signal", sig.String()))

		// Cancel the context
		cancel()
	}()

	if err := a.Run(); err != nil {
		a.Log.Error("forecast run failed", zap.Error(err))
		os.Exit(1)
	}
}
