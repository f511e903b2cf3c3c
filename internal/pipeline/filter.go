package pipeline

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ccauth/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseTopic0 converts string topic0 hashes into common.Hash.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topics = append(topics, common.BytesToHash(data))
	}
	return topics, nil
}

// Filter selects logs by emitting contract and topic0. Empty lists match
// everything.
type Filter struct {
	addresses map[common.Address]struct{}
	topic0    map[common.Hash]struct{}
}

func NewFilter(addresses []common.Address, topic0 []common.Hash) Filter {
	f := Filter{}
	if len(addresses) > 0 {
		f.addresses = make(map[common.Address]struct{}, len(addresses))
		for _, addr := range addresses {
			f.addresses[addr] = struct{}{}
		}
	}
	if len(topic0) > 0 {
		f.topic0 = make(map[common.Hash]struct{}, len(topic0))
		for _, topic := range topic0 {
			f.topic0[topic] = struct{}{}
		}
	}
	return f
}

// Match reports whether log passes the filter.
func (f Filter) Match(log model.RawLog) bool {
	if f.addresses != nil {
		if !common.IsHexAddress(log.Address) {
			return false
		}
		if _, ok := f.addresses[common.HexToAddress(log.Address)]; !ok {
			return false
		}
	}
	if f.topic0 != nil {
		if len(log.Topics) == 0 {
			return false
		}
		if _, ok := f.topic0[common.HexToHash(log.Topics[0])]; !ok {
			return false
		}
	}
	return true
}
