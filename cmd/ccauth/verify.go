package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ccauth/internal/authsig"
	"ccauth/internal/config"
	"ccauth/internal/pipeline"
)

type verifyOutput struct {
	Valid   bool     `json:"valid"`
	Signers []string `json:"signers"`
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadVerify(cfgFile, cmd.Flags())
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
	authorized, err := pipeline.ParseAddresses(cfg.Authorized)
	if err != nil {
		return err
	}

	auth := authsig.SignedAuthorization{
		Timestamp:  req.Timestamp,
		Signature1: cfg.Signature1,
		Signature2: cfg.Signature2,
	}
	signers, err := authsig.Verify(req, auth, authsig.VerifyOptions{
		Authorized: authorized,
		MaxAge:     cfg.MaxAge,
	})
	if err != nil {
		logger.Warn("authorization rejected", zap.Error(err))
		return err
	}

	out := verifyOutput{Valid: true, Signers: make([]string, 0, len(signers))}
	for _, signer := range signers {
		out.Signers = append(out.Signers, signer.Hex())
	}
	logger.Info("authorization verified", zap.Strings("signers", out.Signers))
	return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
}
