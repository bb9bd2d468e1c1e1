/*
Package contract provides a generic ABI-based contract binding.

Methods and events of the ABI are resolved once into descriptor tables when
the binding is created, so every call only looks up a descriptor by name
(or full signature like "transfer(address,uint256)") and packs arguments
with it. Read-only methods are available with just an invoker, while
Transact needs an actor.
*/
package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
)

// Invoker is used by Contract to simulate method calls.
type Invoker interface {
	CallRaw(contract common.Address, data []byte) (*result.Simulation, error)
}

// Actor is used by Contract to create and send transactions.
type Actor interface {
	Invoker

	MakeTransaction(clauses ...transaction.Clause) (*transaction.Transaction, error)
	SendClauses(clauses ...transaction.Clause) (common.Hash, error)
}

// LogFilterer is used by Contract to retrieve events.
type LogFilterer interface {
	FilterEventLogs(f *result.EventFilter) ([]result.EventLog, error)
}

// ErrNoFilterer is returned by FilterLogs when Contract is created without
// LogFilterer.
var ErrNoFilterer = fmt.Errorf("%w: no log filterer", errors.ErrUnsupported)

// Contract is a binding of the contract deployed at the given address.
type Contract struct {
	address common.Address
	abi     *abi.ABI
	methods map[string]*abi.Method
	events  map[string]*abi.Event

	invoker Invoker
	actor   Actor
	logs    LogFilterer
}

// Event is a decoded event log.
type Event struct {
	result.EventLog
	// Name is the event name.
	Name string
	// Values contain event parameters by name, both indexed and not.
	Values map[string]any
}

// New creates a Contract for the given address and ABI. inv is used for
// simulations, if it also implements Actor then the binding is able to send
// transactions. logs is optional and only needed by FilterLogs.
func New(address common.Address, a *abi.ABI, inv Invoker, logs LogFilterer) *Contract {
	c := &Contract{
		address: address,
		abi:     a,
		methods: make(map[string]*abi.Method, 2*len(a.Methods)),
		events:  make(map[string]*abi.Event, 2*len(a.Events)),
		invoker: inv,
		logs:    logs,
	}
	for name := range a.Methods {
		m := a.Methods[name]
		c.methods[name] = &m
		c.methods[m.Sig] = &m
	}
	for name := range a.Events {
		e := a.Events[name]
		c.events[name] = &e
		c.events[e.Sig] = &e
	}
	if act, ok := inv.(Actor); ok {
		c.actor = act
	}
	return c
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// ABI returns the contract ABI.
func (c *Contract) ABI() *abi.ABI {
	return c.abi
}

// Method returns the descriptor of the method with the given name or
// signature.
func (c *Contract) Method(name string) (*abi.Method, error) {
	m, ok := c.methods[name]
	if !ok {
		return nil, thorerr.New("contract.Method", thorerr.InvalidAbiItem, "method not found in the ABI",
			map[string]any{"contract": c.address.Hex(), "method": name})
	}
	return m, nil
}

// Event returns the descriptor of the event with the given name or
// signature.
func (c *Contract) Event(name string) (*abi.Event, error) {
	e, ok := c.events[name]
	if !ok {
		return nil, thorerr.New("contract.Event", thorerr.InvalidAbiItem, "event not found in the ABI",
			map[string]any{"contract": c.address.Hex(), "event": name})
	}
	return e, nil
}

func (c *Contract) pack(method string, args []any) (*abi.Method, []byte, error) {
	m, err := c.Method(method)
	if err != nil {
		return nil, nil, err
	}
	packed, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, nil, thorerr.Wrap("contract.pack", thorerr.InvalidDataType, "invalid method arguments",
			map[string]any{"method": m.Sig}, err)
	}
	return m, append(append([]byte{}, m.ID...), packed...), nil
}

// Read simulates a call of the given method and returns unpacked outputs.
// Reverted calls fail with invoker.ErrReverted.
func (c *Contract) Read(method string, args ...any) ([]any, error) {
	m, data, err := c.pack(method, args)
	if err != nil {
		return nil, err
	}
	res, err := c.invoker.CallRaw(c.address, data)
	if err != nil {
		return nil, err
	}
	if err := invoker.CheckReverted(res); err != nil {
		return nil, err
	}
	return m.Outputs.Unpack(res.Data)
}

// Clause creates a clause calling the given method with the given VET
// value (can be nil).
func (c *Contract) Clause(method string, value *big.Int, args ...any) (transaction.Clause, error) {
	_, data, err := c.pack(method, args)
	if err != nil {
		return transaction.Clause{}, err
	}
	return transaction.NewClause(c.address, value, data), nil
}

// Transact sends a transaction calling the given method with the given VET
// value (can be nil) and returns its ID.
func (c *Contract) Transact(method string, value *big.Int, args ...any) (common.Hash, error) {
	if c.actor == nil {
		return common.Hash{}, thorerr.New("contract.Transact", thorerr.MissingPrivateKey,
			"contract is bound without an actor", map[string]any{"contract": c.address.Hex(), "method": method})
	}
	cl, err := c.Clause(method, value, args...)
	if err != nil {
		return common.Hash{}, err
	}
	return c.actor.SendClauses(cl)
}

// Filter creates event criteria matching the given event emitted by the
// contract. indexed are values of indexed event parameters in order, nil
// matches any value, missing trailing ones too.
func (c *Contract) Filter(event string, indexed ...any) (*result.EventCriteria, error) {
	e, err := c.Event(event)
	if err != nil {
		return nil, err
	}
	var params abi.Arguments
	for _, in := range e.Inputs {
		if in.Indexed {
			params = append(params, in)
		}
	}
	if len(indexed) > len(params) {
		return nil, thorerr.New("contract.Filter", thorerr.InvalidDataType, "too many indexed values",
			map[string]any{"event": e.Sig, "indexed": len(params), "given": len(indexed)})
	}
	addr := c.address
	crit := &result.EventCriteria{Address: &addr}
	topics := []**common.Hash{&crit.Topic1, &crit.Topic2, &crit.Topic3}
	if e.Anonymous {
		topics = []**common.Hash{&crit.Topic0, &crit.Topic1, &crit.Topic2, &crit.Topic3}
	} else {
		id := e.ID
		crit.Topic0 = &id
	}
	for i, v := range indexed {
		if v == nil {
			continue
		}
		if i >= len(topics) {
			return nil, thorerr.New("contract.Filter", thorerr.InvalidDataType, "too many indexed values",
				map[string]any{"event": e.Sig})
		}
		t, err := abi.MakeTopics([]any{v})
		if err != nil {
			return nil, thorerr.Wrap("contract.Filter", thorerr.InvalidDataType, "invalid indexed value",
				map[string]any{"event": e.Sig, "index": i}, err)
		}
		h := t[0][0]
		*topics[i] = &h
	}
	return crit, nil
}

// FilterLogs returns decoded events of the given kind emitted by the
// contract matching indexed values (see Filter). rng and opts can be nil.
func (c *Contract) FilterLogs(event string, rng *result.Range, opts *result.FilterOptions, indexed ...any) ([]Event, error) {
	if c.logs == nil {
		return nil, ErrNoFilterer
	}
	crit, err := c.Filter(event, indexed...)
	if err != nil {
		return nil, err
	}
	logs, err := c.logs.FilterEventLogs(&result.EventFilter{
		Range:       rng,
		Options:     opts,
		CriteriaSet: []result.EventCriteria{*crit},
		Order:       result.OrderAsc,
	})
	if err != nil {
		return nil, err
	}
	e := c.events[event]
	res := make([]Event, 0, len(logs))
	for i := range logs {
		ev, err := c.decode(e, &logs[i])
		if err != nil {
			return nil, fmt.Errorf("log #%d: %w", i, err)
		}
		res = append(res, *ev)
	}
	return res, nil
}

// DecodeEvent decodes the log using the event with the given name or
// signature.
func (c *Contract) DecodeEvent(event string, log *result.EventLog) (*Event, error) {
	e, err := c.Event(event)
	if err != nil {
		return nil, err
	}
	return c.decode(e, log)
}

func (c *Contract) decode(e *abi.Event, log *result.EventLog) (*Event, error) {
	topics := log.Topics
	if !e.Anonymous {
		if len(topics) == 0 || topics[0] != e.ID {
			return nil, fmt.Errorf("not a %s event", e.Sig)
		}
		topics = topics[1:]
	}
	values := make(map[string]any)
	if err := e.Inputs.UnpackIntoMap(values, log.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack %s data: %w", e.Name, err)
	}
	var indexed abi.Arguments
	for _, in := range e.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
		return nil, fmt.Errorf("failed to parse %s topics: %w", e.Name, err)
	}
	return &Event{EventLog: *log, Name: e.Name, Values: values}, nil
}
