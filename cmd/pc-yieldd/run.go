// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/engine"
	"github.com/pushchain/pc-yield-contracts/internal/logging"
	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue/badger"
	"github.com/spf13/cobra"
)

var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Run the yield engine daemon",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		check(run())
	},
}

var flagConfig string

func init() {
	cmdRun.Flags().StringVarP(&flagConfig, "config", "c", "pc-yieldd.toml", "Configuration file")
}

func run() error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}

	var level slog.Level
	err = level.UnmarshalText([]byte(cfg.LogLevel))
	if err != nil {
		return err
	}
	handler, err := logging.NewHandler(os.Stderr, logging.Options{Format: cfg.LogFormat, Level: level})
	if err != nil {
		return err
	}
	logger := slog.New(handler)

	params, err := cfg.Params()
	if err != nil {
		return err
	}

	db, err := badger.New(filepath.Join(cfg.DataDir, "yield.db"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	out, err := openSettlementLog(cfg.SettlementLog)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	e, err := engine.New(params, engine.Options{
		Database:   db,
		Transferor: out,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newAPI(e, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	logger.Info("Listening", "module", "api", "address", cfg.Listen)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-sigs:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
