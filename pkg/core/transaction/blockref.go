package transaction

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockRef is the reference to a block a transaction is built against: the
// first 8 bytes of the block ID (4 bytes of block number and 4 bytes of the
// block hash).
type BlockRef [8]byte

// NewBlockRef creates a BlockRef pointing at the given block number.
func NewBlockRef(number uint32) BlockRef {
	var r BlockRef
	binary.BigEndian.PutUint32(r[:], number)
	return r
}

// NewBlockRefFromID creates a BlockRef from a block ID.
func NewBlockRefFromID(id common.Hash) BlockRef {
	var r BlockRef
	copy(r[:], id[:8])
	return r
}

// BlockRefFromString decodes a 0x-prefixed 16-digit hex BlockRef. A full
// 0x-prefixed block ID is also accepted and truncated.
func BlockRefFromString(s string) (BlockRef, error) {
	var r BlockRef
	b, err := hexutil.Decode(s)
	if err != nil {
		return r, fmt.Errorf("invalid block ref %q: %w", s, err)
	}
	if len(b) != len(r) && len(b) != common.HashLength {
		return r, fmt.Errorf("invalid block ref length %d", len(b))
	}
	copy(r[:], b)
	return r, nil
}

// Number returns the block number encoded in the reference.
func (r BlockRef) Number() uint32 {
	return binary.BigEndian.Uint32(r[:])
}

// Uint64 returns the reference as a big-endian integer (its RLP
// representation).
func (r BlockRef) Uint64() uint64 {
	return binary.BigEndian.Uint64(r[:])
}

// String implements the Stringer interface.
func (r BlockRef) String() string {
	return hexutil.Encode(r[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (r BlockRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *BlockRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ref, err := BlockRefFromString(s)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

func blockRefFromUint64(u uint64) BlockRef {
	var r BlockRef
	binary.BigEndian.PutUint64(r[:], u)
	return r
}
