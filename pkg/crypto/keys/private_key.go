package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeyLen is the length of a serialized secp256k1 private key.
const PrivateKeyLen = 32

// SignatureLen is the length of a recoverable secp256k1 signature
// (r ‖ s ‖ v, v being 0 or 1).
const SignatureLen = 65

// PrivateKey represents a secp256k1 private key and provides a high level
// API around ecdsa.PrivateKey.
type PrivateKey struct {
	ecdsa.PrivateKey
}

// NewPrivateKey creates a new random secp256k1 private key.
func NewPrivateKey() (*PrivateKey, error) {
	k, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{*k}, nil
}

// NewPrivateKeyFromHex returns a PrivateKey created from the given hex
// string, an optional 0x prefix is accepted.
func NewPrivateKeyFromHex(str string) (*PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return nil, err
	}
	return NewPrivateKeyFromBytes(b)
}

// NewPrivateKeyFromBytes returns a PrivateKey from the given byte slice. The
// slice must be exactly 32 bytes long and hold a valid secp256k1 scalar.
func NewPrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeyLen {
		return nil, fmt.Errorf(
			"invalid byte length: expected %d bytes got %d", PrivateKeyLen, len(b),
		)
	}
	k, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{*k}, nil
}

// PublicKey derives the public key from the private key.
func (p *PrivateKey) PublicKey() *PublicKey {
	result := PublicKey(p.PrivateKey.PublicKey)
	return &result
}

// Address derives the account address that is coupled with the private key.
func (p *PrivateKey) Address() common.Address {
	return crypto.PubkeyToAddress(p.PrivateKey.PublicKey)
}

// SignHash signs the given 32-byte digest returning a 65-byte recoverable
// signature.
func (p *PrivateKey) SignHash(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest[:], &p.PrivateKey)
}

// String implements the stringer interface.
func (p *PrivateKey) String() string {
	return hex.EncodeToString(p.Bytes())
}

// Bytes returns the underlying bytes of the PrivateKey.
func (p *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(&p.PrivateKey)
}

// Destroy wipes the scalar of the key. The key must not be used after this
// call.
func (p *PrivateKey) Destroy() {
	if p.D != nil {
		p.D.SetInt64(0)
	}
}
