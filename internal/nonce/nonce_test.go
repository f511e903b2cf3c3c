package nonce

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestMemoryNextIsPerSender(t *testing.T) {
	alloc := NewMemory()
	ctx := context.Background()
	a := common.HexToAddress("0x1")
	b := common.HexToAddress("0x2")

	for want := int64(0); want < 3; want++ {
		got, err := alloc.Next(ctx, a)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got.Int64() != want {
			t.Fatalf("expected %d, got %s", want, got)
		}
	}

	got, err := alloc.Next(ctx, b)
	if err != nil || got.Sign() != 0 {
		t.Fatalf("second sender should start at 0: %v %v", got, err)
	}
	if alloc.Peek(a).Int64() != 3 {
		t.Fatalf("peek mismatch: %s", alloc.Peek(a))
	}
}

func TestMemoryNextConcurrent(t *testing.T) {
	alloc := NewMemory()
	sender := common.HexToAddress("0x3")

	const workers = 16
	seen := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Next(context.Background(), sender)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			seen <- n.Int64()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for n := range seen {
		if unique[n] {
			t.Fatalf("duplicate nonce %d", n)
		}
		unique[n] = true
	}
	if len(unique) != workers || alloc.Peek(sender).Int64() != workers {
		t.Fatalf("expected %d distinct nonces, got %d", workers, len(unique))
	}
}

func TestMemoryNextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().Next(ctx, common.Address{}); err == nil {
		t.Fatalf("expected context error")
	}
}
