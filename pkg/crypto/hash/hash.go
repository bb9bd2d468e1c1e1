package hash

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Blake2b256 hashes the concatenation of the given byte slices using
// blake2b-256, the hash function of Thor block and transaction IDs.
func Blake2b256(data ...[]byte) common.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible with a key longer than 64 bytes.
		panic(err)
	}
	for _, d := range data {
		_, _ = h.Write(d)
	}
	var res common.Hash
	h.Sum(res[:0])
	return res
}

// Keccak256 hashes the concatenation of the given byte slices using legacy
// keccak-256 (the Ethereum flavour, used for addresses, keystore MACs and
// ABI selectors).
func Keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		_, _ = h.Write(d)
	}
	var res common.Hash
	h.Sum(res[:0])
	return res
}

// Checksum returns the first 4 bytes of Blake2b256(data).
func Checksum(data []byte) []byte {
	h := Blake2b256(data)
	return h[:4]
}
