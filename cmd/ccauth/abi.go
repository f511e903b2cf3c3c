package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ccauth/internal/registry"
)

// loadRegistry registers every ABI file. A file may hold a bare ABI array or
// a build artifact with an "abi" field.
func loadRegistry(paths []string, logger *zap.Logger) (*registry.Registry, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one abi file is required")
	}

	reg := registry.New()
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read abi %s: %w", path, err)
		}
		raw, err = abiDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("abi %s: %w", path, err)
		}
		before := len(reg.Descriptors())
		if err := reg.RegisterJSON(raw); err != nil {
			return nil, fmt.Errorf("register abi %s: %w", path, err)
		}
		logger.Info("abi loaded", zap.String("path", path), zap.Int("descriptors", len(reg.Descriptors())-before))
	}
	return reg, nil
}

func abiDocument(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(trimmed, &artifact); err != nil {
		return nil, err
	}
	if len(artifact.ABI) == 0 {
		return nil, fmt.Errorf("artifact has no abi field")
	}
	return artifact.ABI, nil
}
