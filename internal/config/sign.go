package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RequestConfig holds the authorization request shared by sign and verify.
type RequestConfig struct {
	Sender        string
	Relay         string
	Action        string
	ClaimTokenIDs []string
	ClaimAmounts  []string
	MintCount     string
	MintEdition   string
	Nonce         string
	Timestamp     uint64
}

// SignConfig holds configuration for the sign command.
type SignConfig struct {
	Request  RequestConfig
	PGDSN    string
	Key      string
	Keystore string
	Password string
	LogLevel string
}

// VerifyConfig holds configuration for the verify command.
type VerifyConfig struct {
	Request    RequestConfig
	Signature1 string
	Signature2 string
	Authorized []string
	MaxAge     time.Duration
	LogLevel   string
}

// LoadSign merges config file, environment variables, and flags into SignConfig.
func LoadSign(cfgFile string, flags *pflag.FlagSet) (SignConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return SignConfig{}, err
	}
	req, err := loadRequest(v)
	if err != nil {
		return SignConfig{}, err
	}

	cfg := SignConfig{
		Request:  req,
		PGDSN:    v.GetString("pg-dsn"),
		Key:      v.GetString("key"),
		Keystore: v.GetString("keystore"),
		Password: v.GetString("password"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Key == "" && cfg.Keystore == "" {
		return SignConfig{}, fmt.Errorf("one of key or keystore is required")
	}
	if cfg.Key != "" && cfg.Keystore != "" {
		return SignConfig{}, fmt.Errorf("key and keystore are mutually exclusive")
	}
	if cfg.Request.Nonce == "" && cfg.PGDSN == "" {
		return SignConfig{}, fmt.Errorf("nonce is required without pg-dsn")
	}

	return cfg, nil
}

// LoadVerify merges config file, environment variables, and flags into VerifyConfig.
func LoadVerify(cfgFile string, flags *pflag.FlagSet) (VerifyConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return VerifyConfig{}, err
	}
	req, err := loadRequest(v)
	if err != nil {
		return VerifyConfig{}, err
	}

	cfg := VerifyConfig{
		Request:    req,
		Signature1: v.GetString("signature1"),
		Signature2: v.GetString("signature2"),
		Authorized: getStringSlice(v, "authorized"),
		MaxAge:     v.GetDuration("max-age"),
		LogLevel:   v.GetString("log-level"),
	}
	if cfg.Signature1 == "" {
		return VerifyConfig{}, fmt.Errorf("signature1 is required")
	}
	if cfg.Request.Nonce == "" {
		return VerifyConfig{}, fmt.Errorf("nonce is required")
	}
	if cfg.Request.Timestamp == 0 {
		return VerifyConfig{}, fmt.Errorf("timestamp is required")
	}
	if len(cfg.Authorized) == 0 {
		return VerifyConfig{}, fmt.Errorf("authorized is required")
	}

	return cfg, nil
}

func loadRequest(v *viper.Viper) (RequestConfig, error) {
	ts, err := ParseTimestamp(v.GetString("timestamp"))
	if err != nil {
		return RequestConfig{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	req := RequestConfig{
		Sender:        v.GetString("sender"),
		Relay:         v.GetString("relay"),
		Action:        v.GetString("action"),
		ClaimTokenIDs: getStringSlice(v, "claim-token-ids"),
		ClaimAmounts:  getStringSlice(v, "claim-amounts"),
		MintCount:     v.GetString("mint-count"),
		MintEdition:   v.GetString("mint-edition"),
		Nonce:         v.GetString("nonce"),
		Timestamp:     ts,
	}
	if req.Sender == "" || req.Relay == "" {
		return RequestConfig{}, fmt.Errorf("sender and relay are required")
	}
	return req, nil
}
