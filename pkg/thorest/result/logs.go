package result

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Range units.
const (
	RangeBlock = "block"
	RangeTime  = "time"
)

// Log orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Range limits log filtering by block numbers or timestamps.
type Range struct {
	Unit string `json:"unit"`
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// FilterOptions paginate log filtering.
type FilterOptions struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EventCriteria matches events by emitter and topics, nil fields match
// anything.
type EventCriteria struct {
	Address *common.Address `json:"address,omitempty"`
	Topic0  *common.Hash    `json:"topic0,omitempty"`
	Topic1  *common.Hash    `json:"topic1,omitempty"`
	Topic2  *common.Hash    `json:"topic2,omitempty"`
	Topic3  *common.Hash    `json:"topic3,omitempty"`
	Topic4  *common.Hash    `json:"topic4,omitempty"`
}

// EventFilter is an event logs request.
type EventFilter struct {
	Range       *Range          `json:"range,omitempty"`
	Options     *FilterOptions  `json:"options,omitempty"`
	CriteriaSet []EventCriteria `json:"criteriaSet,omitempty"`
	Order       string          `json:"order,omitempty"`
}

// LogMeta is the location of a log.
type LogMeta struct {
	BlockID        common.Hash    `json:"blockID"`
	BlockNumber    uint32         `json:"blockNumber"`
	BlockTimestamp uint64         `json:"blockTimestamp"`
	TxID           common.Hash    `json:"txID"`
	TxOrigin       common.Address `json:"txOrigin"`
	ClauseIndex    uint32         `json:"clauseIndex"`
}

// EventLog is a filtered event.
type EventLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
	Meta    LogMeta        `json:"meta"`
}

// TransferCriteria matches VET transfers, nil fields match anything.
type TransferCriteria struct {
	TxOrigin  *common.Address `json:"txOrigin,omitempty"`
	Sender    *common.Address `json:"sender,omitempty"`
	Recipient *common.Address `json:"recipient,omitempty"`
}

// TransferFilter is a transfer logs request.
type TransferFilter struct {
	Range       *Range             `json:"range,omitempty"`
	Options     *FilterOptions     `json:"options,omitempty"`
	CriteriaSet []TransferCriteria `json:"criteriaSet,omitempty"`
	Order       string             `json:"order,omitempty"`
}

// TransferLog is a filtered VET transfer.
type TransferLog struct {
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount    *hexutil.Big   `json:"amount"`
	Meta      LogMeta        `json:"meta"`
}
