package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKey represents a secp256k1 public key.
type PublicKey ecdsa.PublicKey

// NewPublicKeyFromBytes decodes an uncompressed (65 bytes) or compressed
// (33 bytes) public key.
func NewPublicKeyFromBytes(b []byte) (*PublicKey, error) {
	var (
		pk  *ecdsa.PublicKey
		err error
	)
	switch len(b) {
	case 33:
		pk, err = crypto.DecompressPubkey(b)
	case 65:
		pk, err = crypto.UnmarshalPubkey(b)
	default:
		return nil, fmt.Errorf("invalid public key length %d", len(b))
	}
	if err != nil {
		return nil, err
	}
	return (*PublicKey)(pk), nil
}

// RecoverPublicKey recovers the public key of the signer of the digest
// from a 65-byte recoverable signature.
func RecoverPublicKey(digest common.Hash, sig []byte) (*PublicKey, error) {
	if len(sig) != SignatureLen {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
	pk, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return nil, err
	}
	return (*PublicKey)(pk), nil
}

// RecoverAddress is like RecoverPublicKey, but returns the signer address.
func RecoverAddress(digest common.Hash, sig []byte) (common.Address, error) {
	pk, err := RecoverPublicKey(digest, sig)
	if err != nil {
		return common.Address{}, err
	}
	return pk.Address(), nil
}

// Address returns the account address of the key.
func (p *PublicKey) Address() common.Address {
	return crypto.PubkeyToAddress(ecdsa.PublicKey(*p))
}

// Bytes returns the uncompressed 65-byte encoding of the key.
func (p *PublicKey) Bytes() []byte {
	return crypto.FromECDSAPub((*ecdsa.PublicKey)(p))
}

// Compressed returns the 33-byte compressed encoding of the key.
func (p *PublicKey) Compressed() []byte {
	return crypto.CompressPubkey((*ecdsa.PublicKey)(p))
}

// Verify checks the 65-byte (or 64-byte, without v) signature of the digest.
func (p *PublicKey) Verify(digest common.Hash, sig []byte) bool {
	if len(sig) == SignatureLen {
		sig = sig[:64]
	}
	return crypto.VerifySignature(p.Bytes(), digest[:], sig)
}

// Equal returns true in case public keys are equal.
func (p *PublicKey) Equal(key *PublicKey) bool {
	return p.X.Cmp(key.X) == 0 && p.Y.Cmp(key.Y) == 0
}

// String implements the Stringer interface.
func (p *PublicKey) String() string {
	return hex.EncodeToString(p.Compressed())
}
