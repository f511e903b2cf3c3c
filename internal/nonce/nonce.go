package nonce

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Allocator hands out per-sender nonces. Each call for the same sender
// returns a value one greater than the previous one.
type Allocator interface {
	Next(ctx context.Context, sender common.Address) (*big.Int, error)
}

// Memory is a process-local Allocator starting at 0.
type Memory struct {
	mu   sync.Mutex
	next map[common.Address]*big.Int
}

func NewMemory() *Memory {
	return &Memory{next: make(map[common.Address]*big.Int)}
}

func (m *Memory) Next(ctx context.Context, sender common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.next[sender]
	if !ok {
		current = new(big.Int)
	}
	m.next[sender] = new(big.Int).Add(current, big.NewInt(1))
	return new(big.Int).Set(current), nil
}

// Peek returns the nonce the next call to Next would return for sender.
func (m *Memory) Peek(sender common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.next[sender]; ok {
		return new(big.Int).Set(current)
	}
	return new(big.Int)
}
