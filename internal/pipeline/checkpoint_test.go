package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if _, ok, err := store.Load("in.jsonl"); err != nil || ok {
		t.Fatalf("expected no checkpoint: %v %v", ok, err)
	}
	if err := store.Save("in.jsonl", 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, ok, err := store.Load("in.jsonl")
	if err != nil || !ok || cp.LastProcessedLine != 42 {
		t.Fatalf("load mismatch: %+v %v %v", cp, ok, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be renamed away")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false)
	if err := store.Save("in.jsonl", 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled store must not write")
	}
}
