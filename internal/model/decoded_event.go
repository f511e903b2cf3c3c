package model

// Param is one decoded parameter. Value holds a decimal string for integers,
// a lower-case hex string for addresses and bytes, a bool, a string, a slice
// of values for arrays, or []Param for tuples.
type Param struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// DecodedEvent is a log reassembled against its event descriptor. Events are
// in declaration order.
type DecodedEvent struct {
	Name             string  `json:"name"`
	Events           []Param `json:"events"`
	Address          string  `json:"address"`
	TransactionHash  string  `json:"transactionHash"`
	BlockNumber      string  `json:"blockNumber,omitempty"`
	BlockHash        string  `json:"blockHash"`
	LogIndex         string  `json:"logIndex,omitempty"`
	TransactionIndex string  `json:"transactionIndex,omitempty"`
	TimeStamp        string  `json:"timeStamp,omitempty"`
	GasPrice         string  `json:"gasPrice,omitempty"`
	GasUsed          string  `json:"gasUsed,omitempty"`
}

// Param returns the named parameter.
func (e *DecodedEvent) Param(name string) (Param, bool) {
	for _, p := range e.Events {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// DecodedCall is call data decoded against a function descriptor.
type DecodedCall struct {
	Name   string  `json:"name"`
	Params []Param `json:"params"`
}
