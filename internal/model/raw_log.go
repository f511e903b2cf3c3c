package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// RawLog is a chain log as returned by receipts or explorer APIs. Numeric
// metadata is hex-encoded and optional.
type RawLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	TransactionHash  string   `json:"transactionHash"`
	BlockNumber      string   `json:"blockNumber"`
	BlockHash        string   `json:"blockHash"`
	LogIndex         string   `json:"logIndex,omitempty"`
	TransactionIndex string   `json:"transactionIndex,omitempty"`
	TimeStamp        string   `json:"timeStamp,omitempty"`
	GasPrice         string   `json:"gasPrice,omitempty"`
	GasUsed          string   `json:"gasUsed,omitempty"`
}

// UnmarshalJSON decodes a RawLog, accepting null topics.
func (l *RawLog) UnmarshalJSON(data []byte) error {
	type Alias RawLog
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Topics == nil {
		a.Topics = []string{}
	}
	*l = RawLog(a)
	return nil
}

// RawLogFromTypes converts a go-ethereum log into a RawLog.
func RawLogFromTypes(log types.Log) RawLog {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return RawLog{
		Address:          log.Address.Hex(),
		Topics:           topics,
		Data:             hexutil.Encode(log.Data),
		TransactionHash:  log.TxHash.Hex(),
		BlockNumber:      hexutil.EncodeUint64(log.BlockNumber),
		BlockHash:        log.BlockHash.Hex(),
		LogIndex:         hexutil.EncodeUint64(uint64(log.Index)),
		TransactionIndex: hexutil.EncodeUint64(uint64(log.TxIndex)),
	}
}
