package transaction

import (
	"errors"
	"math/big"
)

// Features is a bitset of optional transaction features.
type Features uint32

// DelegationFeature marks a transaction whose gas is paid by a delegator
// (VIP-191).
const DelegationFeature Features = 1

// IsDelegated returns true if the delegation bit is set.
func (f Features) IsDelegated() bool {
	return f&DelegationFeature == DelegationFeature
}

// SetDelegated sets or clears the delegation bit.
func (f *Features) SetDelegated(flag bool) {
	if flag {
		*f |= DelegationFeature
	} else {
		*f &^= DelegationFeature
	}
}

// Reserved is the forward-compatible tail of a transaction body.
type Reserved struct {
	Features Features `json:"features"`
	Unused   [][]byte `json:"-"`
}

// ErrNonCanonicalReserved is returned on decoding of reserved fields that
// have trailing empty elements or a features value with leading zeros.
var ErrNonCanonicalReserved = errors.New("reserved fields not trimmed or features not canonical")

// encode returns the RLP list items of reserved fields, trailing empty
// items are trimmed.
func (r *Reserved) encode() [][]byte {
	if r == nil {
		return [][]byte{}
	}
	var res = make([][]byte, 0, 1+len(r.Unused))
	res = append(res, new(big.Int).SetUint64(uint64(r.Features)).Bytes())
	res = append(res, r.Unused...)
	for len(res) > 0 && len(res[len(res)-1]) == 0 {
		res = res[:len(res)-1]
	}
	return res
}

// decodeReserved is the strict inverse of encode. An empty list yields nil.
func decodeReserved(items [][]byte) (*Reserved, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items[len(items)-1]) == 0 {
		return nil, ErrNonCanonicalReserved
	}
	f := items[0]
	if len(f) > 4 || (len(f) > 0 && f[0] == 0) {
		return nil, ErrNonCanonicalReserved
	}
	var r = new(Reserved)
	r.Features = Features(new(big.Int).SetBytes(f).Uint64())
	if len(items) > 1 {
		r.Unused = items[1:]
	}
	return r, nil
}
