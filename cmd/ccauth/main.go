package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ccauth",
		Short:        "Relay authorization signer and event log decoder",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs JSONL against ABI descriptors",
		RunE:  runDecode,
	}

	decodeCmd.Flags().StringSlice("abi", nil, "ABI JSON files or build artifacts (comma-separated)")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/decoded_events.jsonl", "output decoded events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "undecoded logs JSONL")
	decodeCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for decoded events")
	decodeCmd.Flags().StringSlice("address", nil, "only decode logs from these contracts (comma-separated)")
	decodeCmd.Flags().StringSlice("topic0", nil, "only decode logs with these topic0 hashes (comma-separated)")
	decodeCmd.Flags().Int("batch-size", 500, "logs per write batch")
	decodeCmd.Flags().String("checkpoint", "./data/decode_checkpoint.json", "checkpoint file path")
	decodeCmd.Flags().Bool("checkpoint-enabled", false, "resume from the last written input line")
	decodeCmd.Flags().Int("max-retries", 3, "maximum retry attempts per sink write")
	decodeCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	calldataCmd := &cobra.Command{
		Use:   "calldata",
		Short: "Decode transaction input data against ABI descriptors",
		RunE:  runCalldata,
	}

	calldataCmd.Flags().StringSlice("abi", nil, "ABI JSON files or build artifacts (comma-separated)")
	calldataCmd.Flags().StringSlice("data", nil, "hex call data (comma-separated)")
	calldataCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(calldataCmd)

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Co-sign a mint or claim request with the relay key",
		RunE:  runSign,
	}

	addRequestFlags(signCmd)
	signCmd.Flags().String("pg-dsn", "", "Postgres DSN for nonce allocation when --nonce is omitted")
	signCmd.Flags().String("key", "", "relay private key hex")
	signCmd.Flags().String("keystore", "", "relay keystore file")
	signCmd.Flags().String("password", "", "keystore password")
	signCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(signCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Recover and check the signers of an authorization",
		RunE:  runVerify,
	}

	addRequestFlags(verifyCmd)
	verifyCmd.Flags().String("signature1", "", "relay-field signature hex")
	verifyCmd.Flags().String("signature2", "", "sender-field signature hex")
	verifyCmd.Flags().StringSlice("authorized", nil, "authorized relay signer addresses (comma-separated)")
	verifyCmd.Flags().Duration("max-age", 0, "reject authorizations older than this, 0 disables")
	verifyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(verifyCmd)

	return root
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("sender", "", "true sender address")
	cmd.Flags().String("relay", "", "relay contract address")
	cmd.Flags().String("action", "", "action payload JSON ({tokenIds, amounts} or {numMints, editionId})")
	cmd.Flags().StringSlice("claim-token-ids", nil, "claim token ids (comma-separated)")
	cmd.Flags().StringSlice("claim-amounts", nil, "claim amounts (comma-separated)")
	cmd.Flags().String("mint-count", "", "number of tokens to mint")
	cmd.Flags().String("mint-edition", "", "edition (wave) id to mint from")
	cmd.Flags().String("nonce", "", "request nonce")
	cmd.Flags().String("timestamp", "", "signing timestamp (unix seconds or RFC3339), default now")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
