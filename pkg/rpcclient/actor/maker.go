package actor

import (
	"fmt"
	"strings"

	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/invoker"
)

// TransactionModifier is a callback that receives the transaction before
// it's signed from a method that creates signed transactions. It can check
// gas and other fields of the transaction and return an error if there is
// anything wrong there which will abort the creation process. It also can
// modify any fields taking full responsibility on the effects of these
// modifications (too low gas or a bad BlockRef can render transaction
// invalid). Mostly it's useful for increasing gas price coefficient.
type TransactionModifier func(t *transaction.Transaction) error

// DefaultModifier is the default modifier, it does nothing.
func DefaultModifier(t *transaction.Transaction) error {
	return nil
}

// MakeTransaction creates a signed transaction with the given clauses. Gas
// is estimated with a simulation performed on behalf of Actor account, the
// transaction isn't created if any clause is reverted. The resulting
// transaction uses Actor-configured body options and modifier. If you need
// to override them use MakeTuned.
func (a *Actor) MakeTransaction(clauses ...transaction.Clause) (*transaction.Transaction, error) {
	return a.MakeTuned(0, nil, nil, clauses...)
}

// MakeTuned creates a signed transaction with the given clauses and gas
// (estimated if zero). opts (if not nil) override Actor-configured body
// options and txHook (if not nil) is used instead of Actor modifier.
func (a *Actor) MakeTuned(gas uint64, opts *BodyOptions, txHook TransactionModifier, clauses ...transaction.Clause) (*transaction.Transaction, error) {
	if gas == 0 {
		var err error
		gas, err = a.estimate(clauses)
		if err != nil {
			return nil, err
		}
	}
	tx, err := a.MakeUnsignedTuned(gas, opts, clauses...)
	if err != nil {
		return nil, err
	}
	if txHook == nil {
		txHook = a.opts.Modifier
	}
	if err := txHook(tx); err != nil {
		return nil, err
	}
	if err := a.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// MakeUnsigned creates an unsigned transaction with the given clauses and
// gas using Actor-configured body options. It can be signed with Sign later
// (or by another party).
func (a *Actor) MakeUnsigned(gas uint64, clauses ...transaction.Clause) (*transaction.Transaction, error) {
	return a.MakeUnsignedTuned(gas, nil, clauses...)
}

// MakeUnsignedTuned is the same as MakeUnsigned, but allows to override
// Actor body options.
func (a *Actor) MakeUnsignedTuned(gas uint64, opts *BodyOptions, clauses ...transaction.Clause) (*transaction.Transaction, error) {
	b, err := BuildTransactionBody(a.client, clauses, gas, a.opts.Body.merge(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return transaction.New(b), nil
}

func (a *Actor) estimate(clauses []transaction.Clause) (uint64, error) {
	est, err := a.EstimateGas(clauses, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	if est.Reverted {
		reasons := make([]string, 0, len(est.VMErrors))
		for i := range est.VMErrors {
			if est.RevertReasons[i] != "" {
				reasons = append(reasons, est.RevertReasons[i])
			} else {
				reasons = append(reasons, est.VMErrors[i])
			}
		}
		return 0, fmt.Errorf("%w: %s", invoker.ErrReverted, strings.Join(reasons, "; "))
	}
	return est.TotalGas, nil
}
