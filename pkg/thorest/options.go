package thorest

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
)

// GetTransactionOptions are optional parameters of transaction requests.
type GetTransactionOptions struct {
	// Raw requests the RLP-encoded transaction instead of the decoded one.
	Raw *bool
	// Head is the ID of the block to use as the best one.
	Head *string
	// Pending allows to find transactions in the pool.
	Pending *bool
}

// GetReceiptOptions are optional parameters of receipt requests.
type GetReceiptOptions struct {
	// Head is the ID of the block to use as the best one.
	Head *string
}

// Query returns request query parameters.
func (o *GetTransactionOptions) Query() *Query {
	q := NewQuery()
	if o != nil {
		q.Bool("raw", o.Raw).String("head", o.Head).Bool("pending", o.Pending)
	}
	return q
}

// Query returns request query parameters.
func (o *GetReceiptOptions) Query() *Query {
	q := NewQuery()
	if o != nil {
		q.String("head", o.Head)
	}
	return q
}

// SimulateOptions are optional parameters of transaction simulation.
type SimulateOptions struct {
	// Revision is the block the simulation is performed on top of, best by
	// default.
	Revision   *string
	Caller     *common.Address
	GasPrice   *string
	GasPayer   *common.Address
	Gas        *uint64
	BlockRef   *string
	Expiration *uint32
	ProvedWork *string
}

// SimulateRequest is the body of a simulation request.
type SimulateRequest struct {
	Clauses    []transaction.Clause `json:"clauses"`
	Gas        *uint64              `json:"gas,omitempty"`
	GasPrice   *string              `json:"gasPrice,omitempty"`
	Caller     *common.Address      `json:"caller,omitempty"`
	ProvedWork *string              `json:"provedWork,omitempty"`
	GasPayer   *common.Address      `json:"gasPayer,omitempty"`
	Expiration *uint32              `json:"expiration,omitempty"`
	BlockRef   *string              `json:"blockRef,omitempty"`
}

// NewSimulateRequest creates a request body from clauses and options.
func NewSimulateRequest(clauses []transaction.Clause, o *SimulateOptions) *SimulateRequest {
	if clauses == nil {
		clauses = []transaction.Clause{}
	}
	r := &SimulateRequest{Clauses: clauses}
	if o != nil {
		r.Gas = o.Gas
		r.GasPrice = o.GasPrice
		r.Caller = o.Caller
		r.ProvedWork = o.ProvedWork
		r.GasPayer = o.GasPayer
		r.Expiration = o.Expiration
		r.BlockRef = o.BlockRef
	}
	return r
}

// Query returns request query parameters.
func (o *SimulateOptions) Query() *Query {
	q := NewQuery()
	if o != nil {
		q.String("revision", o.Revision)
	}
	return q
}

// RawTransaction is the body of a transaction submission request.
type RawTransaction struct {
	Raw string `json:"raw"`
}
