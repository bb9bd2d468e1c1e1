package result

import (
	"github.com/ethereum/go-ethereum/common"
)

// Block is a compressed block, only transaction IDs are included.
type Block struct {
	Number       uint32         `json:"number"`
	ID           common.Hash    `json:"id"`
	Size         uint32         `json:"size"`
	ParentID     common.Hash    `json:"parentID"`
	Timestamp    uint64         `json:"timestamp"`
	GasLimit     uint64         `json:"gasLimit"`
	Beneficiary  common.Address `json:"beneficiary"`
	GasUsed      uint64         `json:"gasUsed"`
	TotalScore   uint64         `json:"totalScore"`
	TxsRoot      common.Hash    `json:"txsRoot"`
	TxsFeatures  uint32         `json:"txsFeatures"`
	StateRoot    common.Hash    `json:"stateRoot"`
	ReceiptsRoot common.Hash    `json:"receiptsRoot"`
	COM          bool           `json:"com"`
	Signer       common.Address `json:"signer"`
	IsTrunk      bool           `json:"isTrunk"`
	IsFinalized  bool           `json:"isFinalized"`
	Transactions []common.Hash  `json:"transactions"`
}

// ChainTag returns the chain tag derived from the block ID, it's only
// meaningful for the genesis block.
func (b *Block) ChainTag() uint8 {
	return b.ID[common.HashLength-1]
}

// BlockMessage is a block subscription notification.
type BlockMessage struct {
	Block
	Obsolete bool `json:"obsolete"`
}
