package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nspcc-dev/thor-go/pkg/crypto/hash"
	"github.com/nspcc-dev/thor-go/pkg/crypto/keys"
)

// DefaultExpiration is the number of blocks a transaction stays valid for
// after its BlockRef when no expiration is given.
const DefaultExpiration = 32

// Body is the signable part of a transaction.
type Body struct {
	ChainTag     uint8
	BlockRef     BlockRef
	Expiration   uint32
	Clauses      []Clause
	GasPriceCoef uint8
	Gas          uint64
	DependsOn    *common.Hash
	Nonce        uint64
	// Reserved is nil when absent.
	Reserved *Reserved
}

// Transaction is a transaction body with an optional signature. A
// delegated transaction carries two concatenated signatures: the origin's
// and the gas payer's.
type Transaction struct {
	Body
	Signature []byte
}

// Various decoding and validation errors.
var (
	ErrNotSigned              = errors.New("transaction is not signed")
	ErrNotDelegated           = errors.New("transaction is not delegated")
	ErrInvalidSignatureLen    = errors.New("invalid signature length")
	ErrInvalidAddressLen      = errors.New("invalid clause address length")
	ErrInvalidDependsOnLen    = errors.New("invalid dependsOn length")
	ErrMissingDelegatorKey    = errors.New("delegator key is required for delegated transaction")
	ErrUnexpectedDelegatorKey = errors.New("delegator key given for non-delegated transaction")
)

type rlpClause struct {
	To    []byte
	Value *big.Int
	Data  []byte
}

type rlpBody struct {
	ChainTag     uint8
	BlockRef     uint64
	Expiration   uint32
	Clauses      []rlpClause
	GasPriceCoef uint8
	Gas          uint64
	DependsOn    []byte
	Nonce        uint64
	Reserved     [][]byte
}

type rlpSigned struct {
	ChainTag     uint8
	BlockRef     uint64
	Expiration   uint32
	Clauses      []rlpClause
	GasPriceCoef uint8
	Gas          uint64
	DependsOn    []byte
	Nonce        uint64
	Reserved     [][]byte
	Signature    []byte
}

// bodyAux is used for JSON marshaling.
type bodyAux struct {
	ChainTag     uint8          `json:"chainTag"`
	BlockRef     BlockRef       `json:"blockRef"`
	Expiration   uint32         `json:"expiration"`
	Clauses      []Clause       `json:"clauses"`
	GasPriceCoef uint8          `json:"gasPriceCoef"`
	Gas          uint64         `json:"gas"`
	DependsOn    *common.Hash   `json:"dependsOn"`
	Nonce        hexutil.Uint64 `json:"nonce"`
	Reserved     *Reserved      `json:"reserved,omitempty"`
}

// IsDelegated returns true if the delegation feature is enabled.
func (b *Body) IsDelegated() bool {
	return b.Reserved != nil && b.Reserved.Features.IsDelegated()
}

// Copy returns a deep copy of the body.
func (b *Body) Copy() *Body {
	var c = *b
	c.Clauses = make([]Clause, len(b.Clauses))
	for i, cl := range b.Clauses {
		c.Clauses[i] = Clause{Data: append([]byte(nil), cl.Data...)}
		if cl.To != nil {
			to := *cl.To
			c.Clauses[i].To = &to
		}
		if cl.Value != nil {
			c.Clauses[i].Value = new(big.Int).Set(cl.Value)
		}
	}
	if b.DependsOn != nil {
		d := *b.DependsOn
		c.DependsOn = &d
	}
	if b.Reserved != nil {
		r := *b.Reserved
		r.Unused = append([][]byte(nil), b.Reserved.Unused...)
		c.Reserved = &r
	}
	return &c
}

// IntrinsicGas returns the intrinsic gas of the body clauses.
func (b *Body) IntrinsicGas() uint64 {
	return IntrinsicGas(b.Clauses...)
}

func (b *Body) toRLP() rlpBody {
	var r = rlpBody{
		ChainTag:     b.ChainTag,
		BlockRef:     b.BlockRef.Uint64(),
		Expiration:   b.Expiration,
		Clauses:      make([]rlpClause, len(b.Clauses)),
		GasPriceCoef: b.GasPriceCoef,
		Gas:          b.Gas,
		DependsOn:    []byte{},
		Nonce:        b.Nonce,
		Reserved:     b.Reserved.encode(),
	}
	for i := range b.Clauses {
		c := &b.Clauses[i]
		r.Clauses[i] = rlpClause{To: []byte{}, Value: c.ValueOrZero(), Data: c.Data}
		if c.To != nil {
			r.Clauses[i].To = c.To.Bytes()
		}
		if r.Clauses[i].Data == nil {
			r.Clauses[i].Data = []byte{}
		}
	}
	if b.DependsOn != nil {
		r.DependsOn = b.DependsOn.Bytes()
	}
	return r
}

func bodyFromRLP(r *rlpBody) (*Body, error) {
	var b = &Body{
		ChainTag:     r.ChainTag,
		BlockRef:     blockRefFromUint64(r.BlockRef),
		Expiration:   r.Expiration,
		Clauses:      make([]Clause, len(r.Clauses)),
		GasPriceCoef: r.GasPriceCoef,
		Gas:          r.Gas,
		Nonce:        r.Nonce,
	}
	for i, c := range r.Clauses {
		switch len(c.To) {
		case 0:
		case common.AddressLength:
			to := common.BytesToAddress(c.To)
			b.Clauses[i].To = &to
		default:
			return nil, fmt.Errorf("clause %d: %w", i, ErrInvalidAddressLen)
		}
		b.Clauses[i].Value = c.Value
		if b.Clauses[i].Value == nil {
			b.Clauses[i].Value = new(big.Int)
		}
		b.Clauses[i].Data = c.Data
	}
	switch len(r.DependsOn) {
	case 0:
	case common.HashLength:
		h := common.BytesToHash(r.DependsOn)
		b.DependsOn = &h
	default:
		return nil, ErrInvalidDependsOnLen
	}
	res, err := decodeReserved(r.Reserved)
	if err != nil {
		return nil, err
	}
	b.Reserved = res
	return b, nil
}

// EncodeUnsigned returns the RLP encoding of the body without signature.
func (b *Body) EncodeUnsigned() ([]byte, error) {
	return rlp.EncodeToBytes(b.toRLP())
}

// SigningHash returns the hash signed by the transaction origin.
func (b *Body) SigningHash() (common.Hash, error) {
	enc, err := b.EncodeUnsigned()
	if err != nil {
		return common.Hash{}, err
	}
	return hash.Blake2b256(enc), nil
}

// DelegatorSigningHash returns the hash signed by the gas payer of a
// delegated transaction sent by origin.
func (b *Body) DelegatorSigningHash(origin common.Address) (common.Hash, error) {
	h, err := b.SigningHash()
	if err != nil {
		return common.Hash{}, err
	}
	return hash.Blake2b256(h[:], origin[:]), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (b Body) MarshalJSON() ([]byte, error) {
	clauses := b.Clauses
	if clauses == nil {
		clauses = []Clause{}
	}
	return json.Marshal(bodyAux{
		ChainTag:     b.ChainTag,
		BlockRef:     b.BlockRef,
		Expiration:   b.Expiration,
		Clauses:      clauses,
		GasPriceCoef: b.GasPriceCoef,
		Gas:          b.Gas,
		DependsOn:    b.DependsOn,
		Nonce:        hexutil.Uint64(b.Nonce),
		Reserved:     b.Reserved,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *Body) UnmarshalJSON(data []byte) error {
	aux := new(bodyAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	*b = Body{
		ChainTag:     aux.ChainTag,
		BlockRef:     aux.BlockRef,
		Expiration:   aux.Expiration,
		Clauses:      aux.Clauses,
		GasPriceCoef: aux.GasPriceCoef,
		Gas:          aux.Gas,
		DependsOn:    aux.DependsOn,
		Nonce:        uint64(aux.Nonce),
		Reserved:     aux.Reserved,
	}
	return nil
}

// New creates an unsigned transaction from the body.
func New(b *Body) *Transaction {
	return &Transaction{Body: *b}
}

// IsSigned returns true if the transaction carries a signature.
func (t *Transaction) IsSigned() bool {
	return len(t.Signature) != 0
}

// Encode returns the RLP encoding of the transaction, the signature is
// included if present.
func (t *Transaction) Encode() ([]byte, error) {
	if !t.IsSigned() {
		return t.EncodeUnsigned()
	}
	r := t.toRLP()
	return rlp.EncodeToBytes(rlpSigned{
		ChainTag:     r.ChainTag,
		BlockRef:     r.BlockRef,
		Expiration:   r.Expiration,
		Clauses:      r.Clauses,
		GasPriceCoef: r.GasPriceCoef,
		Gas:          r.Gas,
		DependsOn:    r.DependsOn,
		Nonce:        r.Nonce,
		Reserved:     r.Reserved,
		Signature:    t.Signature,
	})
}

// Bytes is like Encode, but panics on error.
func (t *Transaction) Bytes() []byte {
	b, err := t.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

// Decode decodes a raw transaction. When signed is true the encoding must
// include a signature of the length matching the delegation feature,
// otherwise it must not have one.
func Decode(raw []byte, signed bool) (*Transaction, error) {
	if !signed {
		var r rlpBody
		if err := rlp.DecodeBytes(raw, &r); err != nil {
			return nil, err
		}
		b, err := bodyFromRLP(&r)
		if err != nil {
			return nil, err
		}
		return &Transaction{Body: *b}, nil
	}
	var r rlpSigned
	if err := rlp.DecodeBytes(raw, &r); err != nil {
		return nil, err
	}
	b, err := bodyFromRLP(&rlpBody{
		ChainTag:     r.ChainTag,
		BlockRef:     r.BlockRef,
		Expiration:   r.Expiration,
		Clauses:      r.Clauses,
		GasPriceCoef: r.GasPriceCoef,
		Gas:          r.Gas,
		DependsOn:    r.DependsOn,
		Nonce:        r.Nonce,
		Reserved:     r.Reserved,
	})
	if err != nil {
		return nil, err
	}
	t := &Transaction{Body: *b, Signature: r.Signature}
	if err := t.checkSignatureLen(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transaction) checkSignatureLen() error {
	want := keys.SignatureLen
	if t.IsDelegated() {
		want *= 2
	}
	if len(t.Signature) != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidSignatureLen, want, len(t.Signature))
	}
	return nil
}

// Origin recovers the address of the transaction signer.
func (t *Transaction) Origin() (common.Address, error) {
	if !t.IsSigned() {
		return common.Address{}, ErrNotSigned
	}
	// A delegated transaction signed by its origin only is accepted here.
	if len(t.Signature) != keys.SignatureLen {
		if err := t.checkSignatureLen(); err != nil {
			return common.Address{}, err
		}
	}
	h, err := t.SigningHash()
	if err != nil {
		return common.Address{}, err
	}
	return keys.RecoverAddress(h, t.Signature[:keys.SignatureLen])
}

// Delegator recovers the address of the gas payer of a delegated
// transaction.
func (t *Transaction) Delegator() (common.Address, error) {
	if !t.IsDelegated() {
		return common.Address{}, ErrNotDelegated
	}
	if err := t.checkSignatureLen(); err != nil {
		return common.Address{}, err
	}
	origin, err := t.Origin()
	if err != nil {
		return common.Address{}, err
	}
	h, err := t.DelegatorSigningHash(origin)
	if err != nil {
		return common.Address{}, err
	}
	return keys.RecoverAddress(h, t.Signature[keys.SignatureLen:])
}

// ID returns the transaction ID, blake2b-256(signingHash ‖ origin).
func (t *Transaction) ID() (common.Hash, error) {
	origin, err := t.Origin()
	if err != nil {
		return common.Hash{}, err
	}
	h, err := t.SigningHash()
	if err != nil {
		return common.Hash{}, err
	}
	return hash.Blake2b256(h[:], origin[:]), nil
}

// Sign signs the body with the given key. A delegated body needs a
// delegator key too and is signed by both, for a non-delegated one
// delegator must be nil.
func Sign(b *Body, signer *keys.PrivateKey, delegator *keys.PrivateKey) (*Transaction, error) {
	if b.IsDelegated() && delegator == nil {
		return nil, ErrMissingDelegatorKey
	}
	if !b.IsDelegated() && delegator != nil {
		return nil, ErrUnexpectedDelegatorKey
	}
	h, err := b.SigningHash()
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignHash(h)
	if err != nil {
		return nil, err
	}
	t := &Transaction{Body: *b.Copy(), Signature: sig}
	if delegator == nil {
		return t, nil
	}
	dh, err := b.DelegatorSigningHash(signer.Address())
	if err != nil {
		return nil, err
	}
	dsig, err := delegator.SignHash(dh)
	if err != nil {
		return nil, err
	}
	t.Signature = append(t.Signature, dsig...)
	return t, nil
}

// AddDelegatorSignature appends the gas payer signature to a delegated
// transaction already signed by its origin.
func (t *Transaction) AddDelegatorSignature(sig []byte) error {
	if !t.IsDelegated() {
		return ErrNotDelegated
	}
	if len(t.Signature) != keys.SignatureLen || len(sig) != keys.SignatureLen {
		return ErrInvalidSignatureLen
	}
	t.Signature = append(append([]byte(nil), t.Signature...), sig...)
	return nil
}
