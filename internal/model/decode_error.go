package model

// DecodeError records a log that produced no decoded event.
type DecodeError struct {
	Line            int    `json:"line"`
	BlockNumber     string `json:"blockNumber,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	LogIndex        string `json:"logIndex,omitempty"`
	Address         string `json:"address,omitempty"`
	Topic0          string `json:"topic0,omitempty"`
	Error           string `json:"error"`
}

// DecodeErrorFromLog builds a DecodeError describing an undecoded log.
func DecodeErrorFromLog(line int, log RawLog, reason string) DecodeError {
	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0]
	}
	return DecodeError{
		Line:            line,
		BlockNumber:     log.BlockNumber,
		TransactionHash: log.TransactionHash,
		LogIndex:        log.LogIndex,
		Address:         log.Address,
		Topic0:          topic0,
		Error:           reason,
	}
}
