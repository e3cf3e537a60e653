package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/neurobridge-psychometrics/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Start(ctx); err != nil {
		application.Log.Error("Background workers failed to start", "error", err)
		os.Exit(1)
	}
	if err := application.Run(ctx); err != nil {
		application.Log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	application.Log.Info("Server stopped")
}
