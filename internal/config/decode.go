package config

import (
	"time"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	ABIFiles          []string
	In                string
	Out               string
	Errors            string
	PGDSN             string
	Addresses         []string
	Topic0            []string
	BatchSize         int
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                "./data/decoded_events.jsonl",
		"errors":             "./data/decode_errors.jsonl",
		"batch-size":         500,
		"checkpoint":         "./data/decode_checkpoint.json",
		"checkpoint-enabled": false,
		"max-retries":        3,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		ABIFiles:          getStringSlice(v, "abi"),
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		PGDSN:             v.GetString("pg-dsn"),
		Addresses:         getStringSlice(v, "address"),
		Topic0:            getStringSlice(v, "topic0"),
		BatchSize:         v.GetInt("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// CalldataConfig holds configuration for the calldata command.
type CalldataConfig struct {
	ABIFiles []string
	Data     []string
	LogLevel string
}

// LoadCalldata merges config file, environment variables, and flags into CalldataConfig.
func LoadCalldata(cfgFile string, flags *pflag.FlagSet) (CalldataConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return CalldataConfig{}, err
	}

	cfg := CalldataConfig{
		ABIFiles: getStringSlice(v, "abi"),
		Data:     getStringSlice(v, "data"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
