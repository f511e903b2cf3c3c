package postgres

import (
	"context"
	"errors"
	"testing"

	"ccauth/internal/model"
)

func TestPutDecodedEventsRequiresKey(t *testing.T) {
	store := &Store{}
	cases := map[string]model.DecodedEvent{
		"missing log index": {Name: "Mint", TransactionHash: "0xabc"},
		"missing tx hash":   {Name: "Mint", LogIndex: "0"},
	}
	for name, event := range cases {
		err := store.PutDecodedEvents(context.Background(), []model.DecodedEvent{event})
		if !errors.Is(err, ErrMissingEventKey) {
			t.Fatalf("%s: expected ErrMissingEventKey, got %v", name, err)
		}
	}

	if err := store.PutDecodedEvents(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}
