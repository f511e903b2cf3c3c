package model

import (
	"encoding/json"
	"testing"
)

func TestDecodedEventOmitsAbsentMetadata(t *testing.T) {
	event := DecodedEvent{
		Name:            "Mint",
		Events:          []Param{{Name: "count", Type: "uint256", Value: "10"}},
		Address:         "0x1111111111111111111111111111111111111111",
		TransactionHash: "0xdef",
		BlockNumber:     "12",
		BlockHash:       "0xabc",
		LogIndex:        "0",
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["logIndex"].(string); !ok {
		t.Fatalf("logIndex should be present")
	}
	for _, key := range []string{"transactionIndex", "timeStamp", "gasPrice", "gasUsed"} {
		if _, ok := decoded[key]; ok {
			t.Fatalf("%s should be omitted", key)
		}
	}

	p, ok := event.Param("count")
	if !ok || p.Value != "10" {
		t.Fatalf("param lookup failed: %+v", p)
	}
}
