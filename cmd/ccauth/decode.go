package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ccauth/internal/config"
	"ccauth/internal/decoder"
	"ccauth/internal/pipeline"
	"ccauth/internal/storage"
	"ccauth/internal/storage/postgres"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	addresses, err := pipeline.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	topic0, err := pipeline.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg.ABIFiles, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.Storage{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)
	}

	var errSink pipeline.ErrorSink
	if cfg.Errors != "" {
		errSink = storage.NewJsonlStorage(cfg.Errors)
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	runner := pipeline.NewRunner(pipeline.RunConfig{
		Input:             cfg.In,
		Filter:            pipeline.NewFilter(addresses, topic0),
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, decoder.New(reg, logger), sinks, errSink, logger)

	logger.Info("decode start",
		zap.Strings("abi", cfg.ABIFiles),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	stats, err := runner.Run(ctx, inputFile)
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", stats.Total),
		zap.Int("resumed", stats.Resumed),
		zap.Int("decoded", stats.Decoded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("failed", stats.Failed),
	)

	return nil
}
