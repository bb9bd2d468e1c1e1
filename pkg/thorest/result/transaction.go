package result

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
)

// TxMeta is the inclusion info of a transaction, nil for pending ones.
type TxMeta struct {
	BlockID        common.Hash `json:"blockID"`
	BlockNumber    uint32      `json:"blockNumber"`
	BlockTimestamp uint64      `json:"blockTimestamp"`
}

// TransactionDetail is a transaction returned by the node. Raw is set
// instead of the decoded fields if raw transaction was requested.
type TransactionDetail struct {
	ID           common.Hash          `json:"id"`
	ChainTag     uint8                `json:"chainTag"`
	BlockRef     transaction.BlockRef `json:"blockRef"`
	Expiration   uint32               `json:"expiration"`
	Clauses      []transaction.Clause `json:"clauses"`
	GasPriceCoef uint8                `json:"gasPriceCoef"`
	Gas          uint64               `json:"gas"`
	Origin       common.Address       `json:"origin"`
	Delegator    *common.Address      `json:"delegator"`
	Nonce        hexutil.Uint64       `json:"nonce"`
	DependsOn    *common.Hash         `json:"dependsOn"`
	Size         uint32               `json:"size"`
	Raw          hexutil.Bytes        `json:"raw,omitempty"`
	Meta         *TxMeta              `json:"meta"`
}

// ReceiptMeta is the inclusion info of a receipt.
type ReceiptMeta struct {
	BlockID        common.Hash    `json:"blockID"`
	BlockNumber    uint32         `json:"blockNumber"`
	BlockTimestamp uint64         `json:"blockTimestamp"`
	TxID           common.Hash    `json:"txID"`
	TxOrigin       common.Address `json:"txOrigin"`
}

// Event is a contract event emitted by a clause.
type Event struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// Transfer is a VET transfer made by a clause.
type Transfer struct {
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount    *hexutil.Big   `json:"amount"`
}

// Output is the execution output of a single clause.
type Output struct {
	ContractAddress *common.Address `json:"contractAddress"`
	Events          []Event         `json:"events"`
	Transfers       []Transfer      `json:"transfers"`
}

// Receipt is the execution receipt of a transaction.
type Receipt struct {
	GasUsed  uint64         `json:"gasUsed"`
	GasPayer common.Address `json:"gasPayer"`
	Paid     *hexutil.Big   `json:"paid"`
	Reward   *hexutil.Big   `json:"reward"`
	Reverted bool           `json:"reverted"`
	Meta     ReceiptMeta    `json:"meta"`
	Outputs  []Output       `json:"outputs"`
}

// SendTransaction is the result of transaction submission.
type SendTransaction struct {
	ID common.Hash `json:"id"`
}

// Simulation is the simulated execution result of a single clause.
type Simulation struct {
	Data      hexutil.Bytes `json:"data"`
	Events    []Event       `json:"events"`
	Transfers []Transfer    `json:"transfers"`
	GasUsed   uint64        `json:"gasUsed"`
	Reverted  bool          `json:"reverted"`
	VMError   string        `json:"vmError"`
}
