// Package main is the entry point for the key resolver.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"key-resolver-go/internal/app"
	"key-resolver-go/pkg/config"
)

const (
	exitOK          = 0
	exitInterrupted = 1
	exitFailed      = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	sslBypass := flag.Bool("ssl-bypass", false, "disable TLS certificate verification")
	debug := flag.Bool("debug", false, "enable verbose tracing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return exitFailed
	}
	if *sslBypass {
		cfg.InsecureSkipVerify = true
	}
	if *debug {
		cfg.Debug = true
	}

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
		return exitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := application.Run(ctx)

	if ctx.Err() != nil && errors.Is(result.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitInterrupted
	}
	if !result.OK() {
		fmt.Fprintf(os.Stderr, "failed: %v\n", result.Err())
		return exitFailed
	}

	fmt.Println(result.Key)
	return exitOK
}
