package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return 1
	}
	defer closeLog()

	a, err := buildApp(cfg, logger)
	if err != nil {
		logger.Error("initialising", "error", err)
		return 1
	}
	defer a.Close()

	ctrl := a.controller()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, stopping after the current step", "signal", sig.String())
		ctrl.Stop()

		sig = <-sigCh
		logger.Warn("second signal, exiting immediately", "signal", sig.String())
		os.Exit(1)
	}()

	ctx := context.Background()
	if err := ctrl.Run(ctx); err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	ctrl.Shutdown(ctx)
	return 0
}
