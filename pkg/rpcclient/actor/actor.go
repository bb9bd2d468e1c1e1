/*
Package actor provides a way to change chain state via RPC client.

This layer builds on top of the basic RPC client and [invoker] package, it
simplifies creating, signing and sending transactions to the network (since
that's the only way chain state is changed). It's generic enough to be used for
any contract that you may want to invoke and contract-specific functions can
build on top of it.
*/
package actor

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/waiter"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"github.com/nspcc-dev/thor-go/pkg/wallet"
)

// RPCActor is an interface required from the RPC client to successfully
// create and send transactions.
type RPCActor interface {
	invoker.RPCSimulate
	waiter.RPCPollingBased

	GetBestBlockRef() (*transaction.BlockRef, error)
	SendTransaction(tx *transaction.Transaction) (common.Hash, error)
}

// Actor keeps a connection to the RPC endpoint and allows to perform
// state-changing actions (via transactions that can also be created without
// sending them to the network) on behalf of an account. It also provides
// an Invoker interface to perform simulations with the same caller.
//
// Actor-specific APIs use prefixes to denote the action to be performed,
// "Make" prefix is used for methods that create transactions, while "Send"
// prefix is used by methods that directly transmit created transactions to
// the RPC server.
//
// Actor also provides a Waiter interface to wait until transaction will be
// included into a block. Depending on the underlying RPCActor functionality,
// awaiting can be performed via websocket block subscription with
// waiter.EventBased, via regular REST requests with waiter.PollingBased.
// Waiter uses context of the underlying RPCActor and interrupts awaiting
// process if the context is done.
type Actor struct {
	invoker.Invoker
	waiter.Waiter

	client  RPCActor
	account *wallet.Account
	opts    Options
}

// Options are used to create Actor with non-default transaction parameters.
type Options struct {
	// Delegator pays for transactions created by Actor (VIP-191), they're
	// marked as delegated if it's set.
	Delegator *wallet.Account
	// Body contains defaults for every transaction body created by Actor,
	// they can be overridden per call by MakeTuned*.
	Body BodyOptions
	// Modifier is applied to every transaction before it's signed.
	Modifier TransactionModifier
	// Waiter configures awaiting.
	Waiter waiter.Config
	// Wait is used by Wait method.
	Wait waiter.WaitOptions
}

// New creates an Actor instance using the specified RPC interface and the
// account. Every transaction created by this Actor will have this account as
// origin and all communication will be performed via this RPC. The account
// doesn't have to be unlocked to create unsigned transactions, but signing
// needs it.
func New(ra RPCActor, account *wallet.Account, opts Options) (*Actor, error) {
	if account == nil {
		return nil, thorerr.New("actor.New", thorerr.MissingPrivateKey, "account is required", nil)
	}
	if opts.Modifier == nil {
		opts.Modifier = DefaultModifier
	}
	if opts.Delegator != nil {
		opts.Body.IsDelegated = true
	}
	addr := account.Address
	return &Actor{
		Invoker: *invoker.New(ra, &addr),
		Waiter:  waiter.New(ra, opts.Waiter),
		client:  ra,
		account: account,
		opts:    opts,
	}, nil
}

// Sender returns the origin address of transactions created by Actor.
func (a *Actor) Sender() common.Address {
	return a.account.Address
}

// Delegator returns the gas payer account if any.
func (a *Actor) Delegator() *wallet.Account {
	return a.opts.Delegator
}

// Send allows to send arbitrary prepared transaction to the network. It
// returns transaction ID.
func (a *Actor) Send(tx *transaction.Transaction) (common.Hash, error) {
	return a.client.SendTransaction(tx)
}

// Sign signs the transaction by Actor account and, for delegated
// transactions, by Actor delegator. Both must be unlocked. tx is not
// modified if any of the signatures can't be made.
func (a *Actor) Sign(tx *transaction.Transaction) error {
	var delegatorSig []byte
	if tx.IsDelegated() {
		if a.opts.Delegator == nil {
			return thorerr.New("actor.Sign", thorerr.MissingPrivateKey,
				"delegated transaction needs a delegator account",
				map[string]any{"origin": a.account.Address.Hex()})
		}
		var err error
		delegatorSig, err = a.opts.Delegator.SignAsDelegator(&tx.Body, a.account.Address)
		if err != nil {
			return fmt.Errorf("failed to sign by delegator %s: %w", a.opts.Delegator.Address.Hex(), err)
		}
	}
	if err := a.account.SignTx(tx); err != nil {
		return fmt.Errorf("failed to sign by %s: %w", a.account.Address.Hex(), err)
	}
	if delegatorSig == nil {
		return nil
	}
	if err := tx.AddDelegatorSignature(delegatorSig); err != nil {
		tx.Signature = nil
		return err
	}
	return nil
}

// SignAndSend signs arbitrary transaction (see also Sign) and sends it to the
// network.
func (a *Actor) SignAndSend(tx *transaction.Transaction) (common.Hash, error) {
	return a.sendWrapper(tx, a.Sign(tx))
}

// sendWrapper simplifies wrapping methods that create transactions.
func (a *Actor) sendWrapper(tx *transaction.Transaction, err error) (common.Hash, error) {
	if err != nil {
		return common.Hash{}, err
	}
	return a.Send(tx)
}

// SendClauses creates a transaction with the given clauses (see also
// MakeTransaction) and sends it to the network.
func (a *Actor) SendClauses(clauses ...transaction.Clause) (common.Hash, error) {
	tx, err := a.MakeTransaction(clauses...)
	return a.sendWrapper(tx, err)
}

// SendTuned creates a transaction with the given gas, body options and hook
// (see also MakeTuned) and sends it to the network.
func (a *Actor) SendTuned(gas uint64, opts *BodyOptions, txHook TransactionModifier, clauses ...transaction.Clause) (common.Hash, error) {
	tx, err := a.MakeTuned(gas, opts, txHook, clauses...)
	return a.sendWrapper(tx, err)
}

// Wait waits for the receipt of the transaction with the given ID using
// Actor wait options. It accepts the results of Send* methods directly, so
// the error given to it is returned as is without awaiting. Nil receipt is
// returned with nil error if the timeout has elapsed.
func (a *Actor) Wait(id common.Hash, err error) (*result.Receipt, error) {
	if err != nil {
		return nil, err
	}
	return a.WaitForReceipt(a.client.Context(), id.Hex(), &a.opts.Wait)
}

// WaitContext is the same as Wait, but allows to interrupt awaiting with the
// given context.
func (a *Actor) WaitContext(ctx context.Context, id common.Hash, err error) (*result.Receipt, error) {
	if err != nil {
		return nil, err
	}
	return a.WaitForReceipt(ctx, id.Hex(), &a.opts.Wait)
}
