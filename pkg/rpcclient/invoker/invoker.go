package invoker

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
)

// ClauseGasOverhead is added to the simulated gas by EstimateGas when any
// gas is used by clauses execution.
const ClauseGasOverhead = 15000

// ParamsAddress is the address of the built-in Params contract holding
// governance parameters.
var ParamsAddress = common.HexToAddress("0x0000000000000000000000000000506172616d73")

// ErrReverted is returned by Call when the execution is reverted.
var ErrReverted = errors.New("execution reverted")

// RPCSimulate is a set of RPC methods needed to simulate things.
type RPCSimulate interface {
	SimulateTransaction(clauses []transaction.Clause, opts *thorest.SimulateOptions) ([]result.Simulation, error)
}

// Invoker allows to simulate transactions using RPC client. Its API
// simplifies reusing the same caller and revision for a series of
// simulations. Invoker does not produce any transactions and does not
// change the state of the chain.
type Invoker struct {
	client   RPCSimulate
	caller   *common.Address
	revision *string
}

// GasEstimate is the result of EstimateGas.
type GasEstimate struct {
	// TotalGas is the gas limit to be used for the transaction.
	TotalGas uint64
	// Reverted is true if any clause is reverted.
	Reverted bool
	// RevertReasons contain decoded revert reasons of reverted clauses
	// (empty strings for ones that can't be decoded).
	RevertReasons []string
	// VMErrors contain VM errors of reverted clauses.
	VMErrors []string
}

// New creates an Invoker to simulate things on top of the best block. caller
// is optional.
func New(client RPCSimulate, caller *common.Address) *Invoker {
	return &Invoker{client: client, caller: caller}
}

// NewHistoric creates an Invoker to simulate things on top of the given
// revision (block number, block ID, best, justified or finalized).
func NewHistoric(revision string, client RPCSimulate, caller *common.Address) (*Invoker, error) {
	if err := assertRevision("invoker.NewHistoric", &revision); err != nil {
		return nil, err
	}
	return &Invoker{client: client, caller: caller, revision: &revision}, nil
}

func assertRevision(method string, rev *string) error {
	if rev != nil && !thorest.IsValidRevision(*rev) {
		return thorerr.New(method, thorerr.InvalidDataType,
			"invalid revision, it must be a block number, a block ID, 'best', 'finalized' or 'justified'",
			map[string]any{"revision": *rev})
	}
	return nil
}

// Caller returns the caller used for simulations, nil if not set.
func (v *Invoker) Caller() *common.Address {
	return v.caller
}

// SimulateTransaction simulates the clauses. Invoker caller and revision
// are used unless opts specify other ones. The revision is validated before
// any request is made. One result per clause is returned.
func (v *Invoker) SimulateTransaction(clauses []transaction.Clause, opts *thorest.SimulateOptions) ([]result.Simulation, error) {
	var o thorest.SimulateOptions
	if opts != nil {
		o = *opts
	}
	if o.Revision == nil {
		o.Revision = v.revision
	}
	if o.Caller == nil {
		o.Caller = v.caller
	}
	if err := assertRevision("invoker.SimulateTransaction", o.Revision); err != nil {
		return nil, err
	}
	res, err := v.client.SimulateTransaction(clauses, &o)
	if err != nil {
		return nil, err
	}
	if len(res) != len(clauses) {
		return nil, fmt.Errorf("simulation returned %d results for %d clauses", len(res), len(clauses))
	}
	return res, nil
}

// Run simulates the given clauses with Invoker-specific caller and revision.
func (v *Invoker) Run(clauses ...transaction.Clause) ([]result.Simulation, error) {
	return v.SimulateTransaction(clauses, nil)
}

// CallRaw simulates a contract call with the given ABI-encoded data and
// returns the simulation result as is.
func (v *Invoker) CallRaw(contract common.Address, data []byte) (*result.Simulation, error) {
	res, err := v.Run(transaction.NewClause(contract, nil, data))
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

// Call invokes a method of the contract with the given parameters and
// returns unpacked outputs. Reverted executions fail with ErrReverted
// carrying the decoded revert reason.
func (v *Invoker) Call(contract common.Address, a *abi.ABI, method string, args ...any) ([]any, error) {
	m, ok := a.Methods[method]
	if !ok {
		return nil, thorerr.New("invoker.Call", thorerr.InvalidAbiItem, "method not found in the ABI",
			map[string]any{"method": method})
	}
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s arguments: %w", method, err)
	}
	res, err := v.CallRaw(contract, data)
	if err != nil {
		return nil, err
	}
	if err := CheckReverted(res); err != nil {
		return nil, err
	}
	return m.Outputs.Unpack(res.Data)
}

// CheckReverted returns ErrReverted with the revert reason (or VM error) if
// the simulation is reverted.
func CheckReverted(res *result.Simulation) error {
	if !res.Reverted {
		return nil
	}
	if reason := RevertReason(res.Data); reason != "" {
		return fmt.Errorf("%w: %s", ErrReverted, reason)
	}
	if res.VMError != "" {
		return fmt.Errorf("%w: %s", ErrReverted, res.VMError)
	}
	return ErrReverted
}

// RevertReason decodes Error(string) and Panic(uint256) revert data, it
// returns an empty string for anything else.
func RevertReason(data []byte) string {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return ""
	}
	return reason
}

// EstimateGas simulates the clauses from the given caller (Invoker caller if
// nil) and returns the gas to be used for the transaction: intrinsic gas
// plus simulated gas plus ClauseGasOverhead if any gas is used by the
// clauses.
func (v *Invoker) EstimateGas(clauses []transaction.Clause, caller *common.Address) (*GasEstimate, error) {
	res, err := v.SimulateTransaction(clauses, &thorest.SimulateOptions{Caller: caller})
	if err != nil {
		return nil, err
	}
	var (
		simulated uint64
		est       = &GasEstimate{
			RevertReasons: []string{},
			VMErrors:      []string{},
		}
	)
	for i := range res {
		simulated += res[i].GasUsed
		if res[i].Reverted {
			est.Reverted = true
			est.RevertReasons = append(est.RevertReasons, RevertReason(res[i].Data))
			est.VMErrors = append(est.VMErrors, res[i].VMError)
		}
	}
	est.TotalGas = transaction.IntrinsicGas(clauses...)
	if simulated != 0 {
		est.TotalGas += simulated + ClauseGasOverhead
	}
	return est, nil
}

// BaseGasPrice returns the base gas price from the Params contract.
func (v *Invoker) BaseGasPrice() (*big.Int, error) {
	var key [32]byte
	copy(key[:], "base-gas-price")
	out, err := v.Call(ParamsAddress, &paramsABI, "get", key)
	if err != nil {
		return nil, err
	}
	p, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected base gas price type %T", out[0])
	}
	return p, nil
}
