package decoder

import (
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"ccauth/internal/model"
	"ccauth/internal/registry"
)

var mintEvent = registry.Descriptor{
	Name: "Mint",
	Type: registry.TypeEvent,
	Inputs: []registry.Parameter{
		{Name: "to", Type: "address", Indexed: true},
		{Name: "editionId", Type: "uint256"},
		{Name: "count", Type: "uint256"},
	},
}

func TestDecodeMintEvent(t *testing.T) {
	dec := newTestDecoder(t, mintEvent)

	to := common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")
	data := packData(t, mintEvent, big.NewInt(3), big.NewInt(10))
	log := buildRawLog(t, mintEvent, data, topicFromAddress(to))

	event := dec.DecodeLog(log)
	if event == nil {
		t.Fatalf("mint not decoded")
	}
	if event.Name != "Mint" {
		t.Fatalf("name mismatch: %s", event.Name)
	}

	want := []model.Param{
		{Name: "to", Type: "address", Value: strings.ToLower(to.Hex())},
		{Name: "editionId", Type: "uint256", Value: "3"},
		{Name: "count", Type: "uint256", Value: "10"},
	}
	if !reflect.DeepEqual(event.Events, want) {
		t.Fatalf("events mismatch: %+v", event.Events)
	}
	if event.BlockNumber != "436" || event.LogIndex != "2" || event.TransactionIndex != "0" {
		t.Fatalf("metadata mismatch: %+v", event)
	}
	if event.TimeStamp != "" || event.GasPrice != "" || event.GasUsed != "" {
		t.Fatalf("absent metadata should be omitted: %+v", event)
	}
	if event.Address != log.Address || event.TransactionHash != log.TransactionHash || event.BlockHash != log.BlockHash {
		t.Fatalf("passthrough metadata mismatch: %+v", event)
	}
}

func TestDecodeKeepsDeclarationOrder(t *testing.T) {
	transfer := registry.Descriptor{
		Name: "TransferSingle",
		Type: registry.TypeEvent,
		Inputs: []registry.Parameter{
			{Name: "id", Type: "uint256"},
			{Name: "from", Type: "address", Indexed: true},
			{Name: "value", Type: "uint256"},
			{Name: "to", Type: "address", Indexed: true},
		},
	}
	dec := newTestDecoder(t, transfer)

	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	log := buildRawLog(t, transfer, packData(t, transfer, big.NewInt(7), big.NewInt(99)),
		topicFromAddress(from), topicFromAddress(to))

	event := dec.DecodeLog(log)
	if event == nil {
		t.Fatalf("transfer not decoded")
	}
	names := make([]string, 0, len(event.Events))
	for _, p := range event.Events {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "id,from,value,to" {
		t.Fatalf("order mismatch: %v", names)
	}
	if event.Events[1].Value != strings.ToLower(from.Hex()) || event.Events[3].Value != strings.ToLower(to.Hex()) {
		t.Fatalf("address mismatch: %+v", event.Events)
	}
}

func TestDecodeSelectorCollision(t *testing.T) {
	indexedTo := registry.Descriptor{
		Name: "Claim",
		Type: registry.TypeEvent,
		Inputs: []registry.Parameter{
			{Name: "to", Type: "address", Indexed: true},
			{Name: "amount", Type: "uint256"},
		},
	}
	plain := registry.Descriptor{
		Name: "Claim",
		Type: registry.TypeEvent,
		Inputs: []registry.Parameter{
			{Name: "account", Type: "address"},
			{Name: "quantity", Type: "uint256"},
		},
	}

	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	indexedLog := buildRawLog(t, indexedTo, packData(t, indexedTo, big.NewInt(5)), topicFromAddress(to))
	plainLog := buildRawLog(t, plain, packData(t, plain, to, big.NewInt(6)))

	orders := [][]registry.Descriptor{{indexedTo, plain}, {plain, indexedTo}}
	for _, order := range orders {
		dec := newTestDecoder(t, order...)

		event := dec.DecodeLog(indexedLog)
		if event == nil || event.Events[0].Name != "to" || event.Events[1].Value != "5" {
			t.Fatalf("indexed candidate not selected: %+v", event)
		}

		event = dec.DecodeLog(plainLog)
		if event == nil || event.Events[0].Name != "account" || event.Events[1].Value != "6" {
			t.Fatalf("plain candidate not selected: %+v", event)
		}
	}
}

func TestDecodeLogsBatchWithGaps(t *testing.T) {
	dec := newTestDecoder(t, mintEvent)

	to := common.HexToAddress("0x4444444444444444444444444444444444444444")
	good := buildRawLog(t, mintEvent, packData(t, mintEvent, big.NewInt(1), big.NewInt(2)), topicFromAddress(to))

	unknown := good
	unknown.Topics = []string{common.HexToHash("0xdead").Hex(), good.Topics[1]}

	anonymous := good
	anonymous.Topics = nil

	trailing := good
	trailing.Data = good.Data + strings.Repeat("0", 64)

	results := dec.DecodeLogs([]model.RawLog{unknown, good, anonymous, trailing, good})
	if len(results) != 5 {
		t.Fatalf("expected positional results, got %d", len(results))
	}
	if results[0] != nil || results[2] != nil || results[3] != nil {
		t.Fatalf("expected gaps at 0, 2, 3: %+v", results)
	}
	if results[1] == nil || results[4] == nil {
		t.Fatalf("sibling logs must still decode")
	}
	if len(Compact(results)) != 2 {
		t.Fatalf("compact mismatch")
	}
}

func TestDecodeTupleArrayAndSignedTopic(t *testing.T) {
	wave := registry.Descriptor{
		Name: "WaveConfigured",
		Type: registry.TypeEvent,
		Inputs: []registry.Parameter{
			{Name: "delta", Type: "int256", Indexed: true},
			{Name: "info", Type: "tuple", Components: []registry.Parameter{
				{Name: "id", Type: "uint256"},
				{Name: "uri", Type: "string"},
			}},
			{Name: "tokenIds", Type: "uint256[]"},
			{Name: "provHash", Type: "bytes32"},
			{Name: "open", Type: "bool"},
		},
	}
	dec := newTestDecoder(t, wave)

	info := struct {
		Id  *big.Int
		Uri string
	}{Id: big.NewInt(7), Uri: "ipfs://wave"}
	var provHash [32]byte
	provHash[31] = 0xab

	data := packData(t, wave, info, []*big.Int{big.NewInt(1), big.NewInt(2)}, provHash, true)
	delta := common.BytesToHash(math.U256Bytes(big.NewInt(-5)))
	log := buildRawLog(t, wave, data, delta)

	event := dec.DecodeLog(log)
	if event == nil {
		t.Fatalf("wave not decoded")
	}

	if event.Events[0].Value != "-5" {
		t.Fatalf("signed topic mismatch: %v", event.Events[0].Value)
	}
	wantInfo := []model.Param{
		{Name: "id", Type: "uint256", Value: "7"},
		{Name: "uri", Type: "string", Value: "ipfs://wave"},
	}
	if !reflect.DeepEqual(event.Events[1].Value, wantInfo) {
		t.Fatalf("tuple mismatch: %#v", event.Events[1].Value)
	}
	if !reflect.DeepEqual(event.Events[2].Value, []interface{}{"1", "2"}) {
		t.Fatalf("array mismatch: %#v", event.Events[2].Value)
	}
	if event.Events[3].Value != hexutil.Encode(provHash[:]) {
		t.Fatalf("bytes32 mismatch: %v", event.Events[3].Value)
	}
	if event.Events[4].Value != true {
		t.Fatalf("bool mismatch: %v", event.Events[4].Value)
	}
}

func TestDecodeBareIntegerAliases(t *testing.T) {
	adjusted := registry.Descriptor{
		Name: "Adjusted",
		Type: registry.TypeEvent,
		Inputs: []registry.Parameter{
			{Name: "delta", Type: "int", Indexed: true},
			{Name: "amounts", Type: "uint[]"},
			{Name: "pair", Type: "tuple", Components: []registry.Parameter{
				{Name: "low", Type: "int"},
				{Name: "high", Type: "uint"},
			}},
		},
	}
	dec := newTestDecoder(t, adjusted)

	pair := struct {
		Low  *big.Int
		High *big.Int
	}{Low: big.NewInt(-2), High: big.NewInt(9)}
	data := packData(t, adjusted, []*big.Int{big.NewInt(4)}, pair)
	delta := common.BytesToHash(math.U256Bytes(big.NewInt(-1)))
	log := buildRawLog(t, adjusted, data, delta)

	event, err := dec.TryDecodeLog(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Events[0].Value != "-1" || event.Events[0].Type != "int" {
		t.Fatalf("int topic mismatch: %+v", event.Events[0])
	}
	if !reflect.DeepEqual(event.Events[1].Value, []interface{}{"4"}) {
		t.Fatalf("uint array mismatch: %#v", event.Events[1].Value)
	}
	wantPair := []model.Param{
		{Name: "low", Type: "int", Value: "-2"},
		{Name: "high", Type: "uint", Value: "9"},
	}
	if !reflect.DeepEqual(event.Events[2].Value, wantPair) {
		t.Fatalf("tuple mismatch: %#v", event.Events[2].Value)
	}
}

func TestDecodeMetadataNormalization(t *testing.T) {
	dec := newTestDecoder(t, mintEvent)
	to := common.HexToAddress("0x5555555555555555555555555555555555555555")
	log := buildRawLog(t, mintEvent, packData(t, mintEvent, big.NewInt(1), big.NewInt(1)), topicFromAddress(to))
	log.TimeStamp = "0x5f5e100"
	log.GasPrice = "0x3b9aca00"
	log.GasUsed = "21000"

	event := dec.DecodeLog(log)
	if event == nil {
		t.Fatalf("not decoded")
	}
	if event.TimeStamp != "100000000" || event.GasPrice != "1000000000" || event.GasUsed != "21000" {
		t.Fatalf("metadata mismatch: %+v", event)
	}

	log.BlockNumber = "0xzz"
	if dec.DecodeLog(log) != nil {
		t.Fatalf("malformed metadata should fail the candidate")
	}
}

func TestDecodeMissingTopic(t *testing.T) {
	dec := newTestDecoder(t, mintEvent)
	log := buildRawLog(t, mintEvent, packData(t, mintEvent, big.NewInt(1), big.NewInt(1)))
	if dec.DecodeLog(log) != nil {
		t.Fatalf("log without indexed topic should not decode")
	}
}

func TestFirstSuccess(t *testing.T) {
	calls := 0
	got, err := FirstSuccess([]int{1, 2, 3}, func(n int) (int, error) {
		calls++
		if n < 2 {
			return 0, errors.New("too small")
		}
		return n * 10, nil
	})
	if err != nil || got != 20 || calls != 2 {
		t.Fatalf("unexpected result: %d %v %d", got, err, calls)
	}

	_, err = FirstSuccess([]int{1}, func(int) (int, error) { return 0, errors.New("nope") })
	if err == nil {
		t.Fatalf("expected error when all candidates fail")
	}

	_, err = FirstSuccess([]int{}, func(int) (int, error) { return 1, nil })
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func newTestDecoder(t *testing.T, descs ...registry.Descriptor) *Decoder {
	t.Helper()
	reg := registry.New()
	if err := reg.Register(descs); err != nil {
		t.Fatalf("register: %v", err)
	}
	return New(reg, zap.NewNop())
}

func packData(t *testing.T, desc registry.Descriptor, values ...interface{}) []byte {
	t.Helper()
	var args abi.Arguments
	for _, param := range desc.Inputs {
		if param.Indexed {
			continue
		}
		typ, err := param.ABIType()
		if err != nil {
			t.Fatalf("abi type: %v", err)
		}
		args = append(args, abi.Argument{Name: param.Name, Type: typ})
	}
	data, err := args.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", desc.Name, err)
	}
	return data
}

func buildRawLog(t *testing.T, desc registry.Descriptor, data []byte, indexed ...common.Hash) model.RawLog {
	t.Helper()
	topic0, err := registry.EventTopic(desc)
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	topics := []string{topic0.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.RawLog{
		Address:          "0x9999999999999999999999999999999999999999",
		Topics:           topics,
		Data:             hexutil.Encode(data),
		TransactionHash:  "0xdef",
		BlockNumber:      "0x1b4",
		BlockHash:        "0xabc",
		LogIndex:         "0x2",
		TransactionIndex: "0x0",
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestTryDecodeLogReasons(t *testing.T) {
	dec := newTestDecoder(t, mintEvent)

	if _, err := dec.TryDecodeLog(model.RawLog{}); !errors.Is(err, ErrNoTopics) {
		t.Fatalf("expected ErrNoTopics, got %v", err)
	}

	unknown := model.RawLog{Topics: []string{common.HexToHash("0xdead").Hex()}}
	if _, err := dec.TryDecodeLog(unknown); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}

	missing := buildRawLog(t, mintEvent, packData(t, mintEvent, big.NewInt(1), big.NewInt(1)))
	if _, err := dec.TryDecodeLog(missing); err == nil || !strings.Contains(err.Error(), "expected 2 topics") {
		t.Fatalf("expected topic count failure, got %v", err)
	}
}
