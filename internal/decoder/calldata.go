package decoder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"

	"ccauth/internal/model"
	"ccauth/internal/registry"
)

// DecodeMethod decodes transaction input data. It returns nil when the
// selector is unknown or the arguments do not decode.
func (d *Decoder) DecodeMethod(input string) *model.DecodedCall {
	data, err := decodeHex(input)
	if err != nil {
		d.logger.Debug("invalid call data", zap.Error(err))
		return nil
	}
	if len(data) < 4 {
		return nil
	}

	var sel registry.Selector
	copy(sel[:], data[:4])
	desc, ok := d.registry.ResolveFunction(sel)
	if !ok {
		return nil
	}

	call, err := decodeCall(desc, data[4:])
	if err != nil {
		d.logger.Debug("call data not decoded",
			zap.String("selector", sel.Hex()),
			zap.String("function", desc.Name),
			zap.Error(err),
		)
		return nil
	}
	return call
}

func decodeCall(desc registry.Descriptor, body []byte) (*model.DecodedCall, error) {
	args := make(abi.Arguments, 0, len(desc.Inputs))
	for _, param := range desc.Inputs {
		typ, err := param.ABIType()
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{Name: param.Name, Type: typ})
	}

	values, err := args.Unpack(body)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", desc.Name, err)
	}
	if len(values) != len(args) {
		return nil, fmt.Errorf("unexpected %s values: %d", desc.Name, len(values))
	}

	params := make([]model.Param, 0, len(desc.Inputs))
	for i, param := range desc.Inputs {
		value, err := normalizeValue(param, args[i].Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", desc.Name, param.Name, err)
		}
		params = append(params, model.Param{Name: param.Name, Type: param.Type, Value: value})
	}
	return &model.DecodedCall{Name: desc.Name, Params: params}, nil
}
