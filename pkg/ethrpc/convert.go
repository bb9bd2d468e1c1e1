package ethrpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
)

type (
	// Block is an Ethereum-compatible block representation.
	Block struct {
		Number       hexutil.Uint64 `json:"number"`
		Hash         common.Hash    `json:"hash"`
		ParentHash   common.Hash    `json:"parentHash"`
		Timestamp    hexutil.Uint64 `json:"timestamp"`
		GasLimit     hexutil.Uint64 `json:"gasLimit"`
		GasUsed      hexutil.Uint64 `json:"gasUsed"`
		Miner        common.Address `json:"miner"`
		Size         hexutil.Uint64 `json:"size"`
		StateRoot    common.Hash    `json:"stateRoot"`
		ReceiptsRoot common.Hash    `json:"receiptsRoot"`
		TxsRoot      common.Hash    `json:"transactionsRoot"`
		Difficulty   hexutil.Uint64 `json:"difficulty"`
		Transactions []common.Hash  `json:"transactions"`
		Uncles       []common.Hash  `json:"uncles"`
	}

	// Transaction is an Ethereum-compatible transaction representation,
	// only the first clause is represented.
	Transaction struct {
		Hash             common.Hash     `json:"hash"`
		BlockHash        *common.Hash    `json:"blockHash"`
		BlockNumber      *hexutil.Uint64 `json:"blockNumber"`
		TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
		From             common.Address  `json:"from"`
		To               *common.Address `json:"to"`
		Value            *hexutil.Big    `json:"value"`
		Input            hexutil.Bytes   `json:"input"`
		Gas              hexutil.Uint64  `json:"gas"`
		GasPrice         *hexutil.Big    `json:"gasPrice"`
		Nonce            hexutil.Uint64  `json:"nonce"`
		ChainID          hexutil.Uint64  `json:"chainId"`
		Type             hexutil.Uint64  `json:"type"`
	}

	// Log is an Ethereum-compatible log.
	Log struct {
		Address          common.Address `json:"address"`
		Topics           []common.Hash  `json:"topics"`
		Data             hexutil.Bytes  `json:"data"`
		BlockHash        common.Hash    `json:"blockHash"`
		BlockNumber      hexutil.Uint64 `json:"blockNumber"`
		TransactionHash  common.Hash    `json:"transactionHash"`
		TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
		LogIndex         hexutil.Uint64 `json:"logIndex"`
		Removed          bool           `json:"removed"`
	}

	// Receipt is an Ethereum-compatible receipt.
	Receipt struct {
		TransactionHash   common.Hash     `json:"transactionHash"`
		TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
		BlockHash         common.Hash     `json:"blockHash"`
		BlockNumber       hexutil.Uint64  `json:"blockNumber"`
		From              common.Address  `json:"from"`
		To                *common.Address `json:"to"`
		GasUsed           hexutil.Uint64  `json:"gasUsed"`
		CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
		ContractAddress   *common.Address `json:"contractAddress"`
		Logs              []Log           `json:"logs"`
		Status            hexutil.Uint64  `json:"status"`
		LogsBloom         hexutil.Bytes   `json:"logsBloom"`
		Type              hexutil.Uint64  `json:"type"`
	}
)

func newEthBlock(b *result.Block) *Block {
	txs := b.Transactions
	if txs == nil {
		txs = []common.Hash{}
	}
	return &Block{
		Number:       hexutil.Uint64(b.Number),
		Hash:         b.ID,
		ParentHash:   b.ParentID,
		Timestamp:    hexutil.Uint64(b.Timestamp),
		GasLimit:     hexutil.Uint64(b.GasLimit),
		GasUsed:      hexutil.Uint64(b.GasUsed),
		Miner:        b.Beneficiary,
		Size:         hexutil.Uint64(b.Size),
		StateRoot:    b.StateRoot,
		ReceiptsRoot: b.ReceiptsRoot,
		TxsRoot:      b.TxsRoot,
		Transactions: txs,
		Uncles:       []common.Hash{},
	}
}

func newEthTransaction(tx *result.TransactionDetail) *Transaction {
	res := &Transaction{
		Hash:     tx.ID,
		From:     tx.Origin,
		Gas:      hexutil.Uint64(tx.Gas),
		GasPrice: (*hexutil.Big)(new(big.Int)),
		Nonce:    tx.Nonce,
		ChainID:  hexutil.Uint64(tx.ChainTag),
		Value:    (*hexutil.Big)(new(big.Int)),
		Input:    hexutil.Bytes{},
	}
	if tx.Meta != nil {
		h := tx.Meta.BlockID
		n := hexutil.Uint64(tx.Meta.BlockNumber)
		var idx hexutil.Uint64
		res.BlockHash, res.BlockNumber, res.TransactionIndex = &h, &n, &idx
	}
	if len(tx.Clauses) != 0 {
		cl := tx.Clauses[0]
		res.To = cl.To
		res.Value = (*hexutil.Big)(cl.ValueOrZero())
		if cl.Data != nil {
			res.Input = cl.Data
		}
	}
	return res
}

func newEthReceipt(r *result.Receipt, tx *result.TransactionDetail) *Receipt {
	res := &Receipt{
		TransactionHash:   r.Meta.TxID,
		BlockHash:         r.Meta.BlockID,
		BlockNumber:       hexutil.Uint64(r.Meta.BlockNumber),
		From:              r.Meta.TxOrigin,
		GasUsed:           hexutil.Uint64(r.GasUsed),
		CumulativeGasUsed: hexutil.Uint64(r.GasUsed),
		Logs:              []Log{},
		LogsBloom:         make(hexutil.Bytes, 256),
	}
	if !r.Reverted {
		res.Status = 1
	}
	if tx != nil && len(tx.Clauses) != 0 {
		res.To = tx.Clauses[0].To
	}
	var logIndex uint64
	for _, out := range r.Outputs {
		if out.ContractAddress != nil && res.ContractAddress == nil {
			res.ContractAddress = out.ContractAddress
		}
		for _, ev := range out.Events {
			res.Logs = append(res.Logs, Log{
				Address:         ev.Address,
				Topics:          ev.Topics,
				Data:            ev.Data,
				BlockHash:       r.Meta.BlockID,
				BlockNumber:     hexutil.Uint64(r.Meta.BlockNumber),
				TransactionHash: r.Meta.TxID,
				LogIndex:        hexutil.Uint64(logIndex),
			})
			logIndex++
		}
	}
	return res
}
