package authsig

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidInput reports a malformed authorization request or payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSignatureRecovery is returned when a produced signature does not
	// recover to the signer's address.
	ErrSignatureRecovery = errors.New("unable to recover address")
)

// Request describes one action to authorize. Relay is the contract that
// forwards the call on behalf of Sender. A zero Timestamp is replaced with
// the authorizer's clock at signing time.
type Request struct {
	Sender    common.Address
	Relay     common.Address
	Action    Action
	Nonce     *big.Int
	Timestamp uint64
}

// Validate checks the request is signable.
func (r Request) Validate() error {
	if r.Action == nil {
		return fmt.Errorf("%w: missing action", ErrInvalidInput)
	}
	if r.Nonce == nil {
		return fmt.Errorf("%w: missing nonce", ErrInvalidInput)
	}
	if err := checkUint256("nonce", r.Nonce); err != nil {
		return err
	}
	if r.Sender == (common.Address{}) {
		return fmt.Errorf("%w: missing sender", ErrInvalidInput)
	}
	if r.Relay == (common.Address{}) {
		return fmt.Errorf("%w: missing relay address", ErrInvalidInput)
	}
	return r.Action.validate()
}

// Message is the ABI encoding of (sender, action fields, nonce, timestamp),
// with sender taken from senderField rather than r.Sender. The relay stage
// encodes the relay address, the sender stage the true sender.
func Message(r Request, senderField common.Address) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	args, err := messageArguments(r.Action.layout())
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, 0, len(args))
	values = append(values, senderField)
	values = append(values, r.Action.values()...)
	values = append(values, r.Nonce, new(big.Int).SetUint64(r.Timestamp))

	packed, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", r.Action.Kind(), err)
	}
	return packed, nil
}

// Digest is keccak256 of Message.
func Digest(r Request, senderField common.Address) (common.Hash, error) {
	msg, err := Message(r, senderField)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(msg), nil
}

// PersonalHash applies the EIP-191 personal-message prefix to a digest.
// This is the hash the relay contract recovers signatures against.
func PersonalHash(digest common.Hash) []byte {
	return accounts.TextHash(digest.Bytes())
}
