package decoder

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"ccauth/internal/model"
	"ccauth/internal/registry"
)

// addressHexLen is len("0x") + 40.
const addressHexLen = 42

// NormalizeAddress lower-cases an address and drops leading padding beyond
// the canonical 20-byte width, as found in zero-padded topics.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(addr)
	if len(addr) > addressHexLen && strings.HasPrefix(addr, "0x") {
		return "0x" + addr[len(addr)-(addressHexLen-2):]
	}
	return addr
}

// NormalizeInteger renders an integer value as a base-10 string. Strings with
// a 0x prefix are read as base-16, other strings as base-10.
func NormalizeInteger(value interface{}) (string, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return "", fmt.Errorf("nil integer")
		}
		return v.String(), nil
	case big.Int:
		return v.String(), nil
	case string:
		n, err := parseQuantity(v)
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case int8, int16, int32, int64, int:
		return fmt.Sprintf("%d", v), nil
	case uint8, uint16, uint32, uint64, uint:
		return fmt.Sprintf("%d", v), nil
	default:
		return "", fmt.Errorf("unsupported integer value %T", value)
	}
}

// NormalizeQuantity converts an optional hex or decimal chain quantity to a
// decimal string. Empty input stays empty.
func NormalizeQuantity(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	n, err := parseQuantity(value)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

func parseQuantity(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	base := 10
	digits := value
	if has0xPrefix(value) {
		base = 16
		digits = value[2:]
		if digits == "" {
			return new(big.Int), nil
		}
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", value)
	}
	return n, nil
}

// topicValue reads an indexed parameter from its topic word. Dynamic types
// are stored as their keccak256 hash and are returned as hex.
func topicValue(typ abi.Type, topic common.Hash) interface{} {
	switch typ.T {
	case abi.AddressTy:
		return NormalizeAddress(topic.Hex())
	case abi.UintTy:
		return new(big.Int).SetBytes(topic[:]).String()
	case abi.IntTy:
		return math.S256(new(big.Int).SetBytes(topic[:])).String()
	case abi.BoolTy:
		return topic[common.HashLength-1] != 0
	default:
		return topic.Hex()
	}
}

// normalizeValue converts a value unpacked by go-ethereum into its wire form.
func normalizeValue(param registry.Parameter, typ abi.Type, value interface{}) (interface{}, error) {
	switch typ.T {
	case abi.IntTy, abi.UintTy:
		return NormalizeInteger(value)
	case abi.AddressTy:
		addr, ok := value.(common.Address)
		if !ok {
			return nil, fmt.Errorf("unexpected address value %T", value)
		}
		return NormalizeAddress(addr.Hex()), nil
	case abi.BoolTy, abi.StringTy:
		return value, nil
	case abi.BytesTy, abi.FixedBytesTy, abi.HashTy, abi.FunctionTy:
		return bytesHex(value)
	case abi.SliceTy, abi.ArrayTy:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("unexpected array value %T", value)
		}
		elemParam := param
		elemParam.Type = elementType(param.Type)
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := normalizeValue(elemParam, *typ.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case abi.TupleTy:
		return normalizeTuple(param, typ, value)
	default:
		return value, nil
	}
}

func normalizeTuple(param registry.Parameter, typ abi.Type, value interface{}) ([]model.Param, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.NumField() != len(typ.TupleElems) {
		return nil, fmt.Errorf("unexpected tuple value %T", value)
	}

	out := make([]model.Param, 0, len(typ.TupleElems))
	for i, elem := range typ.TupleElems {
		component := registry.Parameter{Name: typ.TupleRawNames[i], Type: elem.String()}
		if i < len(param.Components) {
			component = param.Components[i]
		}
		v, err := normalizeValue(component, *elem, rv.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", component.Name, err)
		}
		out = append(out, model.Param{Name: component.Name, Type: component.Type, Value: v})
	}
	return out, nil
}

func bytesHex(value interface{}) (string, error) {
	if b, ok := value.([]byte); ok {
		return hexutil.Encode(b), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
		return "", fmt.Errorf("unexpected bytes value %T", value)
	}
	out := make([]byte, rv.Len())
	for i := range out {
		out[i] = byte(rv.Index(i).Uint())
	}
	return hexutil.Encode(out), nil
}

// elementType strips the outermost array suffix: uint256[2][] -> uint256[2].
func elementType(t string) string {
	if i := strings.LastIndex(t, "["); i > 0 && strings.HasSuffix(t, "]") {
		return t[:i]
	}
	return t
}
