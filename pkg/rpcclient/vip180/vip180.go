/*
Package vip180 contains RPC wrappers for VIP-180 (ERC-20 compatible)
fungible tokens.

Safe methods are encapsulated into TokenReader structure while Token provides
various methods to perform state-changing calls. The built-in VTHO token is
available at EnergyAddress.
*/
package vip180

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/contract"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
)

// EnergyAddress is the address of the built-in VTHO token contract.
var EnergyAddress = common.HexToAddress("0x0000000000000000000000000000456e65726779")

const tokenABIJSON = `[
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"remaining","type":"uint256"}],"type":"function"},
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"success","type":"bool"}],"type":"function"},
{"constant":false,"inputs":[{"name":"_from","type":"address"},{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"success","type":"bool"}],"type":"function"},
{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"success","type":"bool"}],"type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"_from","type":"address"},{"indexed":true,"name":"_to","type":"address"},{"indexed":false,"name":"_value","type":"uint256"}],"name":"Transfer","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"_owner","type":"address"},{"indexed":true,"name":"_spender","type":"address"},{"indexed":false,"name":"_value","type":"uint256"}],"name":"Approval","type":"event"}
]`

// ABI is the VIP-180 token ABI.
var ABI = func() *abi.ABI {
	a, err := abi.JSON(strings.NewReader(tokenABIJSON))
	if err != nil {
		panic(err)
	}
	return &a
}()

// Invoker is used by TokenReader to call various safe methods.
type Invoker interface {
	contract.Invoker
}

// Actor is used by Token to create and send transactions.
type Actor interface {
	contract.Actor
}

// TokenReader represents safe (read-only) methods of VIP-180 token. It can be
// used to query various data.
type TokenReader struct {
	contract *contract.Contract
}

// Token provides full VIP-180 interface, both safe and state-changing methods.
type Token struct {
	TokenReader

	actor Actor
}

// NewReader creates an instance of TokenReader for contract with the given
// address using the given Invoker. logs is optional, it's only needed for
// Transfers.
func NewReader(invoker Invoker, address common.Address, logs contract.LogFilterer) *TokenReader {
	return &TokenReader{contract.New(address, ABI, invoker, logs)}
}

// New creates an instance of Token for contract with the given address
// using the given Actor.
func New(actor Actor, address common.Address, logs contract.LogFilterer) *Token {
	return &Token{TokenReader{contract.New(address, ABI, actor, logs)}, actor}
}

// NewEnergyReader creates TokenReader for VTHO.
func NewEnergyReader(invoker Invoker, logs contract.LogFilterer) *TokenReader {
	return NewReader(invoker, EnergyAddress, logs)
}

// NewEnergy creates Token for VTHO.
func NewEnergy(actor Actor, logs contract.LogFilterer) *Token {
	return New(actor, EnergyAddress, logs)
}

// Address returns the token contract address.
func (t *TokenReader) Address() common.Address {
	return t.contract.Address()
}

// Name returns the token name.
func (t *TokenReader) Name() (string, error) {
	return readString(t.contract.Read("name"))
}

// Symbol returns a short token identifier (like "VTHO").
func (t *TokenReader) Symbol() (string, error) {
	return readString(t.contract.Read("symbol"))
}

// Decimals returns the number of decimals used by the token.
func (t *TokenReader) Decimals() (int, error) {
	out, err := t.contract.Read("decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}
	return int(d), nil
}

// TotalSupply returns the total token supply currently available.
func (t *TokenReader) TotalSupply() (*big.Int, error) {
	return readBigInt(t.contract.Read("totalSupply"))
}

// BalanceOf returns the token balance of the given account.
func (t *TokenReader) BalanceOf(account common.Address) (*big.Int, error) {
	return readBigInt(t.contract.Read("balanceOf", account))
}

// Allowance returns the amount spender is allowed to transfer from owner.
func (t *TokenReader) Allowance(owner, spender common.Address) (*big.Int, error) {
	return readBigInt(t.contract.Read("allowance", owner, spender))
}

// Transfers returns token transfers matching the given sender and recipient
// (nil matches any) within the given range (nil means everything).
func (t *TokenReader) Transfers(from, to *common.Address, rng *result.Range) ([]contract.Event, error) {
	var indexed []any
	if from != nil {
		indexed = append(indexed, *from)
	} else {
		indexed = append(indexed, nil)
	}
	if to != nil {
		indexed = append(indexed, *to)
	}
	return t.contract.FilterLogs("Transfer", rng, nil, indexed...)
}

// TransferClause creates a clause transferring amount of tokens to the
// given account from the transaction origin.
func (t *TokenReader) TransferClause(to common.Address, amount *big.Int) (transaction.Clause, error) {
	return t.contract.Clause("transfer", nil, to, amount)
}

// TransferFromClause creates a clause transferring previously approved
// amount of tokens from one account to another.
func (t *TokenReader) TransferFromClause(from, to common.Address, amount *big.Int) (transaction.Clause, error) {
	return t.contract.Clause("transferFrom", nil, from, to, amount)
}

// ApproveClause creates a clause allowing spender to transfer up to amount
// of tokens from the transaction origin.
func (t *TokenReader) ApproveClause(spender common.Address, amount *big.Int) (transaction.Clause, error) {
	return t.contract.Clause("approve", nil, spender, amount)
}

// Transfer sends a transaction transferring amount of tokens to the given
// account and returns its ID.
func (t *Token) Transfer(to common.Address, amount *big.Int) (common.Hash, error) {
	return t.sendWrapper(t.TransferClause(to, amount))
}

// MultiTransfer sends a single transaction with a transfer clause per
// recipient. recipients and amounts must have the same length.
func (t *Token) MultiTransfer(recipients []common.Address, amounts []*big.Int) (common.Hash, error) {
	if len(recipients) != len(amounts) || len(recipients) == 0 {
		return common.Hash{}, fmt.Errorf("bad transfer parameters: %d recipients, %d amounts", len(recipients), len(amounts))
	}
	clauses := make([]transaction.Clause, len(recipients))
	for i := range recipients {
		cl, err := t.TransferClause(recipients[i], amounts[i])
		if err != nil {
			return common.Hash{}, err
		}
		clauses[i] = cl
	}
	return t.actor.SendClauses(clauses...)
}

// TransferFrom sends a transaction transferring previously approved amount
// of tokens and returns its ID.
func (t *Token) TransferFrom(from, to common.Address, amount *big.Int) (common.Hash, error) {
	return t.sendWrapper(t.TransferFromClause(from, to, amount))
}

// Approve sends a transaction allowing spender to transfer up to amount of
// tokens and returns its ID.
func (t *Token) Approve(spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.sendWrapper(t.ApproveClause(spender, amount))
}

func (t *Token) sendWrapper(cl transaction.Clause, err error) (common.Hash, error) {
	if err != nil {
		return common.Hash{}, err
	}
	return t.actor.SendClauses(cl)
}

func readBigInt(out []any, err error) (*big.Int, error) {
	if err != nil {
		return nil, err
	}
	i, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", out[0])
	}
	return i, nil
}

func readString(out []any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type %T", out[0])
	}
	return s, nil
}
