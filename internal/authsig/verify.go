package authsig

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrUnauthorizedSigner = errors.New("signer not authorized")
	ErrMissingSignature   = errors.New("missing signature")
	ErrStaleAuthorization = errors.New("authorization expired")
)

// RecoverDigest recovers the address that signed the personal-message hash
// of digest. V may be 0/1 or 27/28.
func RecoverDigest(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(PersonalHash(digest), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Recover returns the signer of a hex signature over req's message with
// senderField in the sender slot.
func Recover(req Request, senderField common.Address, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: signature: %v", ErrInvalidInput, err)
	}
	digest, err := Digest(req, senderField)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverDigest(digest, sig)
}

// VerifyOptions constrains Verify. Authorized must name at least one signer.
// MaxAge of zero disables the freshness check.
type VerifyOptions struct {
	Authorized []common.Address
	MaxAge     time.Duration
	Now        func() time.Time
}

// Verify recovers the signers of auth for req and checks them against opts.
// A non-zero auth.Timestamp overrides req.Timestamp. It returns the recovered
// signers in signature order.
func Verify(req Request, auth SignedAuthorization, opts VerifyOptions) ([]common.Address, error) {
	if len(opts.Authorized) == 0 {
		return nil, fmt.Errorf("%w: no authorized signers", ErrInvalidInput)
	}
	if auth.Timestamp != 0 {
		req.Timestamp = auth.Timestamp
	}
	if auth.Signature1 == "" {
		return nil, fmt.Errorf("%w: signature1", ErrMissingSignature)
	}
	if auth.Single() && req.Sender != req.Relay {
		return nil, fmt.Errorf("%w: signature2 required when sender is not the relay", ErrMissingSignature)
	}

	if opts.MaxAge > 0 {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		signedAt := time.Unix(int64(req.Timestamp), 0)
		if now().Sub(signedAt) > opts.MaxAge {
			return nil, fmt.Errorf("%w: signed at %s", ErrStaleAuthorization, signedAt.UTC().Format(time.RFC3339))
		}
	}

	type check struct {
		field common.Address
		sig   string
	}
	checks := []check{{field: req.Relay, sig: auth.Signature1}}
	if !auth.Single() {
		checks = append(checks, check{field: req.Sender, sig: auth.Signature2})
	}

	signers := make([]common.Address, 0, len(checks))
	for i, c := range checks {
		signer, err := Recover(req, c.field, c.sig)
		if err != nil {
			return nil, fmt.Errorf("signature%d: %w", i+1, err)
		}
		if !isAuthorized(signer, opts.Authorized) {
			return nil, fmt.Errorf("%w: signature%d by %s", ErrUnauthorizedSigner, i+1, signer.Hex())
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func isAuthorized(signer common.Address, authorized []common.Address) bool {
	for _, addr := range authorized {
		if addr == signer {
			return true
		}
	}
	return false
}
