package authsig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The message layouts signed by the relay key. They mirror the relay
// contract's abi.encode of (sender, action fields, nonce, timestamp).
const messageABIJSON = `[
  {
    "type": "function",
    "name": "claimMessage",
    "inputs": [
      {"name": "sender", "type": "address"},
      {"name": "tokenIds", "type": "uint256[]"},
      {"name": "amounts", "type": "uint256[]"},
      {"name": "nonce", "type": "uint256"},
      {"name": "timestamp", "type": "uint256"}
    ]
  },
  {
    "type": "function",
    "name": "mintMessage",
    "inputs": [
      {"name": "sender", "type": "address"},
      {"name": "numMints", "type": "uint256"},
      {"name": "editionId", "type": "uint256"},
      {"name": "nonce", "type": "uint256"},
      {"name": "timestamp", "type": "uint256"}
    ]
  }
]`

var (
	messageABI     abi.ABI
	messageABIOnce sync.Once
	messageABIErr  error
)

func messageArguments(name string) (abi.Arguments, error) {
	messageABIOnce.Do(func() {
		messageABI, messageABIErr = abi.JSON(strings.NewReader(messageABIJSON))
	})
	if messageABIErr != nil {
		return nil, messageABIErr
	}
	method, ok := messageABI.Methods[name]
	if !ok {
		return nil, fmt.Errorf("unknown message layout %s", name)
	}
	return method.Inputs, nil
}

// Action is the action-specific part of an authorization request. It is
// implemented by ClaimAction and MintAction only.
type Action interface {
	Kind() string
	validate() error
	layout() string
	values() []interface{}
}

// ClaimAction authorizes claiming amounts of the listed token ids.
type ClaimAction struct {
	TokenIDs []*big.Int
	Amounts  []*big.Int
}

func (ClaimAction) Kind() string   { return "claim" }
func (ClaimAction) layout() string { return "claimMessage" }

func (c ClaimAction) validate() error {
	if len(c.TokenIDs) != len(c.Amounts) {
		return fmt.Errorf("%w: %d token ids but %d amounts", ErrInvalidInput, len(c.TokenIDs), len(c.Amounts))
	}
	for i := range c.TokenIDs {
		if c.TokenIDs[i] == nil || c.Amounts[i] == nil {
			return fmt.Errorf("%w: claim entry %d is nil", ErrInvalidInput, i)
		}
		if err := checkUint256(fmt.Sprintf("token id %d", i), c.TokenIDs[i]); err != nil {
			return err
		}
		if err := checkUint256(fmt.Sprintf("amount %d", i), c.Amounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c ClaimAction) values() []interface{} {
	tokenIDs := c.TokenIDs
	if tokenIDs == nil {
		tokenIDs = []*big.Int{}
	}
	amounts := c.Amounts
	if amounts == nil {
		amounts = []*big.Int{}
	}
	return []interface{}{tokenIDs, amounts}
}

// MintAction authorizes minting Count tokens from an edition (wave).
type MintAction struct {
	Count     *big.Int
	EditionID *big.Int
}

func (MintAction) Kind() string   { return "mint" }
func (MintAction) layout() string { return "mintMessage" }

func (m MintAction) validate() error {
	if m.Count == nil || m.EditionID == nil {
		return fmt.Errorf("%w: mint requires count and edition id", ErrInvalidInput)
	}
	if err := checkUint256("count", m.Count); err != nil {
		return err
	}
	return checkUint256("edition id", m.EditionID)
}

func (m MintAction) values() []interface{} {
	return []interface{}{m.Count, m.EditionID}
}

type actionJSON struct {
	TokenIDs  []json.RawMessage `json:"tokenIds"`
	Amounts   []json.RawMessage `json:"amounts"`
	NumMints  json.RawMessage   `json:"numMints"`
	EditionID json.RawMessage   `json:"editionId"`
	WaveID    json.RawMessage   `json:"waveId"`
}

// ParseAction decodes a claim ({tokenIds, amounts}) or mint ({numMints,
// editionId|waveId}) payload. The presence of tokenIds selects a claim.
// Numbers may be JSON numbers, decimal strings, or 0x-prefixed hex strings.
func ParseAction(raw []byte) (Action, error) {
	var payload actionJSON
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if payload.TokenIDs != nil {
		tokenIDs, err := parseQuantities(payload.TokenIDs)
		if err != nil {
			return nil, fmt.Errorf("token ids: %w", err)
		}
		amounts, err := parseQuantities(payload.Amounts)
		if err != nil {
			return nil, fmt.Errorf("amounts: %w", err)
		}
		claim := ClaimAction{TokenIDs: tokenIDs, Amounts: amounts}
		if err := claim.validate(); err != nil {
			return nil, err
		}
		return claim, nil
	}

	if isPresent(payload.NumMints) {
		edition := payload.EditionID
		if !isPresent(edition) {
			edition = payload.WaveID
		}
		if !isPresent(edition) {
			return nil, fmt.Errorf("%w: mint payload has no editionId", ErrInvalidInput)
		}
		count, err := parseQuantity(payload.NumMints)
		if err != nil {
			return nil, fmt.Errorf("numMints: %w", err)
		}
		editionID, err := parseQuantity(edition)
		if err != nil {
			return nil, fmt.Errorf("editionId: %w", err)
		}
		return MintAction{Count: count, EditionID: editionID}, nil
	}

	return nil, fmt.Errorf("%w: payload is neither a claim nor a mint", ErrInvalidInput)
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func parseQuantities(raws []json.RawMessage) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(raws))
	for _, raw := range raws {
		n, err := parseQuantity(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseQuantity(raw json.RawMessage) (*big.Int, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return ParseBig(text)
}

// checkUint256 rejects values abi packing would wrap modulo 2^256.
func checkUint256(field string, n *big.Int) error {
	if n.Sign() < 0 || n.BitLen() > 256 {
		return fmt.Errorf("%w: %s %s out of uint256 range", ErrInvalidInput, field, n)
	}
	return nil
}

// ParseBig parses a non-negative decimal or 0x-prefixed hex integer that
// fits in 256 bits. Hex digits may carry leading zeros.
func ParseBig(text string) (*big.Int, error) {
	text = strings.TrimSpace(text)
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		text, base = text[2:], 16
		if strings.HasPrefix(text, "-") || strings.HasPrefix(text, "+") {
			return nil, fmt.Errorf("%w: invalid integer %q", ErrInvalidInput, text)
		}
	}
	n, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, fmt.Errorf("%w: invalid integer %q", ErrInvalidInput, text)
	}
	if err := checkUint256("integer", n); err != nil {
		return nil, err
	}
	return n, nil
}
