// Package main implements verdantctl, a terminal client for the plant
// simulation. It runs the same generator, scoring and narratives as the API
// without a server.
//
// Usage:
//
//	verdantctl timeline
//	verdantctl observe 2024-06-09 --output yaml
//	verdantctl assess --temperature 22 --humidity 60 --light 800 --soil-moisture 50 --ph 6.5
//	verdantctl analyze debate 2024-06-11 --agents physiological,validation
//
// Ctrl-C cancels a running analysis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// VERDANT_SEED and friends may come from a local .env.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
