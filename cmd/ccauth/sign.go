package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ccauth/internal/authsig"
	"ccauth/internal/config"
	"ccauth/internal/nonce"
	"ccauth/internal/storage/postgres"
)

func runSign(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSign(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	req, err := buildRequest(cfg.Request)
	if err != nil {
		return err
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if req.Nonce == nil {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if req.Nonce, err = allocateNonce(ctx, store, req); err != nil {
			return err
		}
		logger.Info("nonce allocated", zap.String("sender", req.Sender.Hex()), zap.String("nonce", req.Nonce.String()))
	}

	auth, err := authsig.NewAuthorizer(signer, authsig.WithLogger(logger)).Sign(ctx, req)
	if err != nil {
		return err
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	return out.Encode(authorizationOutput{
		Action:        req.Action.Kind(),
		Sender:        req.Sender,
		Relay:         req.Relay,
		Nonce:         req.Nonce.String(),
		Timestamp:     auth.Timestamp,
		Authorization: auth,
	})
}

func allocateNonce(ctx context.Context, alloc nonce.Allocator, req authsig.Request) (*big.Int, error) {
	n, err := alloc.Next(ctx, req.Sender)
	if err != nil {
		return nil, fmt.Errorf("allocate nonce: %w", err)
	}
	return n, nil
}

func loadSigner(cfg config.SignConfig) (authsig.Signer, error) {
	if cfg.Keystore != "" {
		return authsig.LoadKeystore(cfg.Keystore, cfg.Password)
	}
	return authsig.NewKeySignerFromHex(cfg.Key)
}
