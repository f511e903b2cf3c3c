package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	TypeFunction = "function"
	TypeEvent    = "event"
)

// Selector is the truncated 4-byte hash identifying a function.
type Selector [4]byte

// Hex returns the 0x-prefixed selector.
func (s Selector) Hex() string {
	return fmt.Sprintf("0x%x", s[:])
}

// Descriptor is a named function or event from an ABI document.
type Descriptor struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Anonymous bool        `json:"anonymous,omitempty"`
	Inputs    []Parameter `json:"inputs"`
}

// Parameter is a typed descriptor input. Tuple parameters carry Components.
type Parameter struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	InternalType string      `json:"internalType,omitempty"`
	Indexed      bool        `json:"indexed,omitempty"`
	Components   []Parameter `json:"components,omitempty"`
}

// IsEvent reports whether the descriptor describes an event.
func (d Descriptor) IsEvent() bool {
	return d.Type == TypeEvent
}

// IsTuple reports whether the parameter is a tuple or an array of tuples.
func (p Parameter) IsTuple() bool {
	return strings.HasPrefix(p.Type, "tuple")
}

// TypeString renders the canonical type of a parameter. Tuples render
// recursively as (c1,c2,...) and keep any array suffix.
func TypeString(p Parameter) (string, error) {
	if !p.IsTuple() {
		return p.Type, nil
	}
	if len(p.Components) == 0 {
		return "", fmt.Errorf("%w: tuple parameter %q has no components", ErrInvalidInput, p.Name)
	}
	parts := make([]string, 0, len(p.Components))
	for _, component := range p.Components {
		part, err := TypeString(component)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, ",") + ")" + strings.TrimPrefix(p.Type, "tuple"), nil
}

// Signature renders name(t1,t2,...).
func Signature(d Descriptor) (string, error) {
	parts := make([]string, 0, len(d.Inputs))
	for _, input := range d.Inputs {
		part, err := TypeString(input)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return d.Name + "(" + strings.Join(parts, ",") + ")", nil
}

// EventTopic returns the full keccak256 hash of the canonical signature.
func EventTopic(d Descriptor) (common.Hash, error) {
	sig, err := Signature(d)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte(sig)), nil
}

// FunctionSelector returns the first 4 bytes of the canonical signature hash.
func FunctionSelector(d Descriptor) (Selector, error) {
	topic, err := EventTopic(d)
	if err != nil {
		return Selector{}, err
	}
	var sel Selector
	copy(sel[:], topic[:4])
	return sel, nil
}

// Marshaling converts the parameter into its go-ethereum ABI form. Bare int
// and uint are widened to their 256-bit forms.
func (p Parameter) Marshaling() abi.ArgumentMarshaling {
	out := abi.ArgumentMarshaling{
		Name:         p.Name,
		Type:         widenInteger(p.Type),
		InternalType: p.InternalType,
		Indexed:      p.Indexed,
	}
	if len(p.Components) > 0 {
		out.Components = make([]abi.ArgumentMarshaling, 0, len(p.Components))
		for _, component := range p.Components {
			out.Components = append(out.Components, component.Marshaling())
		}
	}
	return out
}

// widenInteger rewrites int and uint, with any array suffix, to int256 and
// uint256. Sized integers pass through.
func widenInteger(typ string) string {
	base, suffix := typ, ""
	if i := strings.IndexByte(typ, '['); i >= 0 {
		base, suffix = typ[:i], typ[i:]
	}
	switch base {
	case "int", "uint":
		return base + "256" + suffix
	default:
		return typ
	}
}

// ABIType builds the go-ethereum type for the parameter.
func (p Parameter) ABIType() (abi.Type, error) {
	m := p.Marshaling()
	typ, err := abi.NewType(m.Type, m.InternalType, m.Components)
	if err != nil {
		return abi.Type{}, fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	return typ, nil
}

func (d Descriptor) clone() Descriptor {
	out := d
	out.Inputs = cloneParameters(d.Inputs)
	return out
}

func cloneParameters(params []Parameter) []Parameter {
	if params == nil {
		return nil
	}
	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = p
		out[i].Components = cloneParameters(p.Components)
	}
	return out
}
