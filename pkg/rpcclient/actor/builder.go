package actor

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
)

// BodyProvider is the part of RPC client needed to build transaction bodies.
type BodyProvider interface {
	GetBlock(revision string) (*result.Block, error)
	GetBestBlockRef() (*transaction.BlockRef, error)
}

// BodyOptions override transaction body fields, nil means "use the
// default value".
type BodyOptions struct {
	// ChainTag defaults to the last byte of the genesis block ID.
	ChainTag *uint8
	// BlockRef defaults to the reference of the best block.
	BlockRef *transaction.BlockRef
	// Expiration defaults to transaction.DefaultExpiration.
	Expiration   *uint32
	GasPriceCoef *uint8
	DependsOn    *common.Hash
	// Nonce defaults to a random value.
	Nonce *uint64
	// IsDelegated makes the body use fee delegation.
	IsDelegated bool
}

// merge returns options with fields of o taking precedence over b.
func (b BodyOptions) merge(o *BodyOptions) *BodyOptions {
	if o == nil {
		return &b
	}
	res := *o
	if res.ChainTag == nil {
		res.ChainTag = b.ChainTag
	}
	if res.BlockRef == nil {
		res.BlockRef = b.BlockRef
	}
	if res.Expiration == nil {
		res.Expiration = b.Expiration
	}
	if res.GasPriceCoef == nil {
		res.GasPriceCoef = b.GasPriceCoef
	}
	if res.DependsOn == nil {
		res.DependsOn = b.DependsOn
	}
	if res.Nonce == nil {
		res.Nonce = b.Nonce
	}
	res.IsDelegated = res.IsDelegated || b.IsDelegated
	return &res
}

// BuildTransactionBody creates a transaction body with the given clauses and
// gas using the current chain state for the fields not set in opts. Chain
// data retrieval errors and missing genesis or best block are reported with
// thorerr.TransactionBuild, the original error (if any) is its cause.
func BuildTransactionBody(p BodyProvider, clauses []transaction.Clause, gas uint64, opts *BodyOptions) (*transaction.Body, error) {
	if opts == nil {
		opts = new(BodyOptions)
	}
	data := map[string]any{"clauses": len(clauses), "gas": gas, "options": opts}
	genesis, err := p.GetBlock("0")
	if err != nil {
		return nil, thorerr.Wrap("actor.BuildTransactionBody", thorerr.TransactionBuild,
			"can't get genesis block", data, err)
	}
	if genesis == nil {
		return nil, thorerr.New("actor.BuildTransactionBody", thorerr.TransactionBuild,
			"can't get genesis block", data)
	}

	ref := opts.BlockRef
	if ref == nil {
		ref, err = p.GetBestBlockRef()
		if err != nil {
			return nil, thorerr.Wrap("actor.BuildTransactionBody", thorerr.TransactionBuild,
				"can't get best block", data, err)
		}
		if ref == nil {
			return nil, thorerr.New("actor.BuildTransactionBody", thorerr.TransactionBuild,
				"can't get best block", data)
		}
	}

	b := &transaction.Body{
		ChainTag:   genesis.ChainTag(),
		BlockRef:   *ref,
		Expiration: transaction.DefaultExpiration,
		Clauses:    clauses,
		Gas:        gas,
		DependsOn:  opts.DependsOn,
	}
	if opts.ChainTag != nil {
		b.ChainTag = *opts.ChainTag
	}
	if opts.Expiration != nil {
		b.Expiration = *opts.Expiration
	}
	if opts.GasPriceCoef != nil {
		b.GasPriceCoef = *opts.GasPriceCoef
	}
	if opts.Nonce != nil {
		b.Nonce = *opts.Nonce
	} else {
		b.Nonce, err = randomNonce()
		if err != nil {
			return nil, err
		}
	}
	if opts.IsDelegated {
		b.Reserved = &transaction.Reserved{Features: transaction.DelegationFeature}
	}
	return b, nil
}

func randomNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
