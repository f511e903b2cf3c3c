package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ccauth/internal/authsig"
	"ccauth/internal/config"
	"ccauth/internal/pipeline"
)

// buildRequest turns the flag/config view of a request into an
// authsig.Request. nonce may be nil when it is allocated later.
func buildRequest(cfg config.RequestConfig) (authsig.Request, error) {
	addrs, err := pipeline.ParseAddresses([]string{cfg.Sender, cfg.Relay})
	if err != nil {
		return authsig.Request{}, err
	}
	if len(addrs) != 2 {
		return authsig.Request{}, fmt.Errorf("sender and relay are required")
	}

	action, err := buildAction(cfg)
	if err != nil {
		return authsig.Request{}, err
	}

	req := authsig.Request{
		Sender:    addrs[0],
		Relay:     addrs[1],
		Action:    action,
		Timestamp: cfg.Timestamp,
	}
	if cfg.Nonce != "" {
		req.Nonce, err = authsig.ParseBig(cfg.Nonce)
		if err != nil {
			return authsig.Request{}, fmt.Errorf("nonce: %w", err)
		}
	}
	return req, nil
}

func buildAction(cfg config.RequestConfig) (authsig.Action, error) {
	switch {
	case cfg.Action != "":
		return authsig.ParseAction([]byte(cfg.Action))
	case len(cfg.ClaimTokenIDs) > 0 || len(cfg.ClaimAmounts) > 0:
		tokenIDs, err := parseBigs(cfg.ClaimTokenIDs)
		if err != nil {
			return nil, fmt.Errorf("claim token ids: %w", err)
		}
		amounts, err := parseBigs(cfg.ClaimAmounts)
		if err != nil {
			return nil, fmt.Errorf("claim amounts: %w", err)
		}
		return authsig.ClaimAction{TokenIDs: tokenIDs, Amounts: amounts}, nil
	case cfg.MintCount != "" || cfg.MintEdition != "":
		count, err := authsig.ParseBig(cfg.MintCount)
		if err != nil {
			return nil, fmt.Errorf("mint count: %w", err)
		}
		edition, err := authsig.ParseBig(cfg.MintEdition)
		if err != nil {
			return nil, fmt.Errorf("mint edition: %w", err)
		}
		return authsig.MintAction{Count: count, EditionID: edition}, nil
	default:
		return nil, fmt.Errorf("%w: one of action, claim or mint flags is required", authsig.ErrInvalidInput)
	}
}

func parseBigs(values []string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, value := range values {
		n, err := authsig.ParseBig(value)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// authorizationOutput is what sign prints.
type authorizationOutput struct {
	Action        string                     `json:"action"`
	Sender        common.Address             `json:"sender"`
	Relay         common.Address             `json:"relay"`
	Nonce         string                     `json:"nonce"`
	Timestamp     uint64                     `json:"timestamp"`
	Authorization *authsig.SignedAuthorization `json:"authorization"`
}
