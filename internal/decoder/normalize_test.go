package decoder

import (
	"math/big"
	"testing"
)

func TestNormalizeIntegerRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211457", 10)
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(42),
		new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1)),
		huge,
	}

	for _, value := range values {
		text, err := NormalizeInteger(value)
		if err != nil {
			t.Fatalf("normalize %s: %v", value, err)
		}
		parsed, ok := new(big.Int).SetString(text, 10)
		if !ok || parsed.Cmp(value) != 0 {
			t.Fatalf("round-trip mismatch: %s -> %s", value, text)
		}
	}
}

func TestNormalizeIntegerInputs(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"0xff", "255"},
		{"0x", "0"},
		{"123", "123"},
		{uint8(7), "7"},
		{int32(-9), "-9"},
		{uint64(18446744073709551615), "18446744073709551615"},
	}
	for _, tc := range cases {
		got, err := NormalizeInteger(tc.in)
		if err != nil {
			t.Fatalf("normalize %v: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalize %v: got %s want %s", tc.in, got, tc.want)
		}
	}

	if _, err := NormalizeInteger("0xnothex"); err == nil {
		t.Fatalf("expected error for malformed hex")
	}
	if _, err := NormalizeInteger(1.5); err == nil {
		t.Fatalf("expected error for float")
	}
}

func TestNormalizeAddress(t *testing.T) {
	canonical := "0xabcdef0123456789abcdef0123456789abcdef01"
	if got := NormalizeAddress(canonical); got != canonical {
		t.Fatalf("canonical address changed: %s", got)
	}
	if got := NormalizeAddress(NormalizeAddress(canonical)); got != canonical {
		t.Fatalf("normalization not idempotent: %s", got)
	}

	padded := "0x000000000000000000000000ABCDEF0123456789ABCDEF0123456789ABCDEF01"
	if got := NormalizeAddress(padded); got != canonical {
		t.Fatalf("padded address not truncated: %s", got)
	}
}

func TestNormalizeQuantity(t *testing.T) {
	if got, err := NormalizeQuantity(""); err != nil || got != "" {
		t.Fatalf("empty quantity: %q %v", got, err)
	}
	if got, err := NormalizeQuantity("0x10"); err != nil || got != "16" {
		t.Fatalf("hex quantity: %q %v", got, err)
	}
	if _, err := NormalizeQuantity("ten"); err == nil {
		t.Fatalf("expected error for malformed quantity")
	}
}

func TestElementType(t *testing.T) {
	cases := map[string]string{
		"uint256[]":    "uint256",
		"uint256[2][]": "uint256[2]",
		"tuple[3]":     "tuple",
		"address":      "address",
	}
	for in, want := range cases {
		if got := elementType(in); got != want {
			t.Fatalf("elementType(%s) = %s, want %s", in, got, want)
		}
	}
}
