package authsig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// Stage is a step of the co-signing sequence.
type Stage int

const (
	AwaitingRelaySignature Stage = iota
	AwaitingSenderSignature
	Done
)

func (s Stage) String() string {
	switch s {
	case AwaitingRelaySignature:
		return "awaiting_relay_signature"
	case AwaitingSenderSignature:
		return "awaiting_sender_signature"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// NextStage returns the stage that follows s for req. The sender stage only
// runs when the sender is not the relay itself.
func NextStage(s Stage, req Request) Stage {
	switch s {
	case AwaitingRelaySignature:
		if req.Sender == req.Relay {
			return Done
		}
		return AwaitingSenderSignature
	default:
		return Done
	}
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithClock sets the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Authorizer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authorizer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Authorizer co-signs mint and claim requests with the relay key.
type Authorizer struct {
	signer Signer
	now    func() time.Time
	logger *zap.Logger
}

// NewAuthorizer builds an Authorizer around signer.
func NewAuthorizer(signer Signer, opts ...Option) *Authorizer {
	a := &Authorizer{
		signer: signer,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sign produces the authorization for req. Signature1 always covers the
// message with the relay address in the sender field. When the sender differs
// from the relay, Signature2 covers the message with the true sender. Every
// signature is checked to recover to the signer before it is kept; on any
// failure no partial result is returned.
func (a *Authorizer) Sign(ctx context.Context, req Request) (*SignedAuthorization, error) {
	if a.signer == nil {
		return nil, errors.New("authorizer has no signer")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Timestamp == 0 {
		req.Timestamp = uint64(a.now().Unix())
	}

	expected, err := a.signer.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("signer address: %w", err)
	}

	auth := SignedAuthorization{Timestamp: req.Timestamp}
	stage := AwaitingRelaySignature
	for stage != Done {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", stage, err)
		}

		field := req.Relay
		if stage == AwaitingSenderSignature {
			field = req.Sender
		}
		sig, err := a.signStage(ctx, req, field, expected)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stage, err)
		}

		if stage == AwaitingRelaySignature {
			auth.Signature1 = sig
		} else {
			auth.Signature2 = sig
		}
		a.logger.Debug("stage signed",
			zap.String("stage", stage.String()),
			zap.String("action", req.Action.Kind()),
			zap.String("sender_field", field.Hex()),
			zap.Uint64("timestamp", req.Timestamp),
		)
		stage = NextStage(stage, req)
	}

	a.logger.Info("authorization signed",
		zap.String("action", req.Action.Kind()),
		zap.String("sender", req.Sender.Hex()),
		zap.String("relay", req.Relay.Hex()),
		zap.String("nonce", req.Nonce.String()),
		zap.Bool("two_signatures", !auth.Single()),
	)
	return &auth, nil
}

func (a *Authorizer) signStage(ctx context.Context, req Request, field, expected common.Address) (string, error) {
	digest, err := Digest(req, field)
	if err != nil {
		return "", err
	}
	sig, err := a.signer.SignMessage(ctx, digest.Bytes())
	if err != nil {
		return "", err
	}
	recovered, err := RecoverDigest(digest, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}
	if recovered != expected {
		return "", fmt.Errorf("%w: recovered %s, expected %s", ErrSignatureRecovery, recovered.Hex(), expected.Hex())
	}
	return hexutil.Encode(sig), nil
}
