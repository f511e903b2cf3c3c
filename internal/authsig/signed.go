package authsig

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SignedAuthorization is the result of Authorizer.Sign. A single-signature
// authorization encodes as a bare hex string; a two-signature one encodes as
// {timestamp, signature1, signature2}.
type SignedAuthorization struct {
	Timestamp  uint64
	Signature1 string
	Signature2 string
}

// Single reports whether only the relay signature is present.
func (s SignedAuthorization) Single() bool {
	return s.Signature2 == ""
}

type signedPairJSON struct {
	Timestamp  uint64 `json:"timestamp"`
	Signature1 string `json:"signature1"`
	Signature2 string `json:"signature2"`
}

func (s SignedAuthorization) MarshalJSON() ([]byte, error) {
	if s.Single() {
		return json.Marshal(s.Signature1)
	}
	return json.Marshal(signedPairJSON{
		Timestamp:  s.Timestamp,
		Signature1: s.Signature1,
		Signature2: s.Signature2,
	})
}

// UnmarshalJSON accepts both encodings. The bare string form carries no
// timestamp.
func (s *SignedAuthorization) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var sig string
		if err := json.Unmarshal(data, &sig); err != nil {
			return err
		}
		*s = SignedAuthorization{Signature1: sig}
		return nil
	}
	var pair signedPairJSON
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if pair.Signature1 == "" || pair.Signature2 == "" {
		return fmt.Errorf("%w: signature pair requires signature1 and signature2", ErrInvalidInput)
	}
	*s = SignedAuthorization(pair)
	return nil
}
