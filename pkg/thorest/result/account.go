package result

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Account is the account state: VET balance, VTHO energy and whether the
// account is a contract.
type Account struct {
	Balance *hexutil.Big `json:"balance"`
	Energy  *hexutil.Big `json:"energy"`
	HasCode bool         `json:"hasCode"`
}

// Code is the bytecode of a contract.
type Code struct {
	Code hexutil.Bytes `json:"code"`
}

// Storage is the value of a contract storage slot.
type Storage struct {
	Value hexutil.Bytes `json:"value"`
}
