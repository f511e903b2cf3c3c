package decoder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"ccauth/internal/model"
	"ccauth/internal/registry"
)

var (
	// ErrNoCandidates is returned by FirstSuccess when there is nothing to try.
	ErrNoCandidates = errors.New("no candidates")
	ErrNoTopics     = errors.New("log has no topics")
	ErrUnknownEvent = errors.New("unknown event selector")
)

// Decoder turns raw logs and call data into decoded records using the
// descriptors held by a registry. Decode failures never propagate: a log or
// call that cannot be decoded yields nil.
type Decoder struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// New builds a Decoder over reg.
func New(reg *registry.Registry, logger *zap.Logger) *Decoder {
	if reg == nil {
		reg = registry.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{registry: reg, logger: logger}
}

// FirstSuccess tries attempt on each candidate in order and returns the first
// result that does not fail. When every candidate fails the joined errors
// are returned.
func FirstSuccess[C, T any](candidates []C, attempt func(C) (T, error)) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}
	errs := make([]error, 0, len(candidates))
	for _, candidate := range candidates {
		result, err := attempt(candidate)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
	}
	return zero, errors.Join(errs...)
}

// DecodeLogs decodes each log. The result has one entry per input log; logs
// that could not be decoded leave a nil entry at their position.
func (d *Decoder) DecodeLogs(logs []model.RawLog) []*model.DecodedEvent {
	out := make([]*model.DecodedEvent, len(logs))
	for i, log := range logs {
		out[i] = d.DecodeLog(log)
	}
	return out
}

// Compact drops the nil entries left by DecodeLogs.
func Compact(events []*model.DecodedEvent) []*model.DecodedEvent {
	out := make([]*model.DecodedEvent, 0, len(events))
	for _, event := range events {
		if event != nil {
			out = append(out, event)
		}
	}
	return out
}

// DecodeLog decodes a single log against every event candidate registered
// for its first topic.
func (d *Decoder) DecodeLog(log model.RawLog) *model.DecodedEvent {
	event, err := d.TryDecodeLog(log)
	if err != nil {
		if !errors.Is(err, ErrNoTopics) && !errors.Is(err, ErrUnknownEvent) {
			d.logger.Debug("log not decoded",
				zap.String("tx_hash", log.TransactionHash),
				zap.String("log_index", log.LogIndex),
				zap.String("topic0", log.Topics[0]),
				zap.Error(err),
			)
		}
		return nil
	}
	return event
}

// TryDecodeLog is DecodeLog with the failure reason. It returns ErrNoTopics
// for anonymous logs and ErrUnknownEvent when no descriptor matches topic0.
func (d *Decoder) TryDecodeLog(log model.RawLog) (*model.DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, ErrNoTopics
	}
	topic0, err := parseTopic(log.Topics[0])
	if err != nil {
		return nil, err
	}

	candidates := d.registry.ResolveEventCandidates(topic0)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, topic0.Hex())
	}

	return FirstSuccess(candidates, func(desc registry.Descriptor) (*model.DecodedEvent, error) {
		return decodeEvent(desc, log)
	})
}

type decodeSlot struct {
	param registry.Parameter
	typ   abi.Type
}

func decodeEvent(desc registry.Descriptor, log model.RawLog) (*model.DecodedEvent, error) {
	var indexed, nonIndexed []decodeSlot
	var dataArgs abi.Arguments
	for _, param := range desc.Inputs {
		typ, err := param.ABIType()
		if err != nil {
			return nil, err
		}
		slot := decodeSlot{param: param, typ: typ}
		if param.Indexed {
			indexed = append(indexed, slot)
			continue
		}
		nonIndexed = append(nonIndexed, slot)
		dataArgs = append(dataArgs, abi.Argument{Name: param.Name, Type: typ})
	}

	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("%s: expected %d topics, got %d", desc.Name, len(indexed)+1, len(log.Topics))
	}
	topics, err := parseTopicHashes(log.Topics[1:])
	if err != nil {
		return nil, err
	}

	values, err := unpackData(dataArgs, log.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc.Name, err)
	}

	params := make([]model.Param, 0, len(desc.Inputs))
	topicIndex, dataIndex := 0, 0
	for _, param := range desc.Inputs {
		var (
			slot  decodeSlot
			value interface{}
		)
		if param.Indexed {
			slot = indexed[topicIndex]
			value = topicValue(slot.typ, topics[topicIndex])
			topicIndex++
		} else {
			slot = nonIndexed[dataIndex]
			value, err = normalizeValue(slot.param, slot.typ, values[dataIndex])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", desc.Name, param.Name, err)
			}
			dataIndex++
		}
		params = append(params, model.Param{Name: param.Name, Type: param.Type, Value: value})
	}

	event := &model.DecodedEvent{
		Name:            desc.Name,
		Events:          params,
		Address:         log.Address,
		TransactionHash: log.TransactionHash,
		BlockHash:       log.BlockHash,
	}
	if err := fillMetadata(event, log); err != nil {
		return nil, err
	}
	return event, nil
}

func fillMetadata(event *model.DecodedEvent, log model.RawLog) error {
	fields := []struct {
		name string
		in   string
		out  *string
	}{
		{"blockNumber", log.BlockNumber, &event.BlockNumber},
		{"timeStamp", log.TimeStamp, &event.TimeStamp},
		{"gasPrice", log.GasPrice, &event.GasPrice},
		{"gasUsed", log.GasUsed, &event.GasUsed},
		{"logIndex", log.LogIndex, &event.LogIndex},
		{"transactionIndex", log.TransactionIndex, &event.TransactionIndex},
	}
	for _, f := range fields {
		value, err := NormalizeQuantity(f.in)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = value
	}
	return nil
}

// unpackData decodes the data payload and rejects payloads that are not the
// canonical encoding of the decoded values, so trailing or missing words
// disqualify a candidate.
func unpackData(args abi.Arguments, dataHex string) ([]interface{}, error) {
	data, err := decodeHex(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	if len(values) != len(args) {
		return nil, fmt.Errorf("unexpected value count: %d", len(values))
	}
	if packed, err := args.Pack(values...); err == nil && !bytes.Equal(packed, data) {
		return nil, fmt.Errorf("data length %d does not match encoded length %d", len(data), len(packed))
	}
	return values, nil
}

func decodeHex(input string) ([]byte, error) {
	if input == "" || input == "0x" {
		return []byte{}, nil
	}
	if !has0xPrefix(input) {
		input = "0x" + input
	}
	return hexutil.Decode(input)
}

func has0xPrefix(input string) bool {
	return len(input) >= 2 && input[0] == '0' && (input[1] == 'x' || input[1] == 'X')
}

func parseTopic(topic string) (common.Hash, error) {
	data, err := decodeHex(topic)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid topic: %w", err)
	}
	if len(data) > common.HashLength {
		return common.Hash{}, fmt.Errorf("topic length %d", len(data))
	}
	return common.BytesToHash(data), nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		hash, err := parseTopic(topic)
		if err != nil {
			return nil, err
		}
		out = append(out, hash)
	}
	return out, nil
}
