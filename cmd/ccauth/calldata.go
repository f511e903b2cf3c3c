package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ccauth/internal/config"
	"ccauth/internal/decoder"
)

func runCalldata(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCalldata(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Data) == 0 {
		return fmt.Errorf("call data is required")
	}

	reg, err := loadRegistry(cfg.ABIFiles, logger)
	if err != nil {
		return err
	}
	dec := decoder.New(reg, logger)

	out := json.NewEncoder(cmd.OutOrStdout())
	var failed int
	for _, input := range cfg.Data {
		call := dec.DecodeMethod(input)
		if call == nil {
			failed++
			logger.Warn("call data not decoded", zap.Int("bytes", len(input)/2))
		}
		// undecodable input is written as null to keep positions
		if err := out.Encode(call); err != nil {
			return fmt.Errorf("write call: %w", err)
		}
	}

	if failed == len(cfg.Data) {
		return fmt.Errorf("no call data decoded")
	}
	return nil
}
