/*
Package keystore implements Ethereum keystore v3 records used by VeChain
wallets to store encrypted secp256k1 private keys.

A record is produced by Encrypt and is never modified afterwards,
re-encryption with another password or KDF parameters creates a new record.
*/
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/nspcc-dev/thor-go/pkg/crypto/hash"
	"github.com/nspcc-dev/thor-go/pkg/crypto/keys"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Version is the only supported record version.
const Version = 3

// Supported algorithms.
const (
	CipherAES128CTR = "aes-128-ctr"
	KDFScrypt       = "scrypt"
	KDFPBKDF2       = "pbkdf2"
	PRFHMACSHA256   = "hmac-sha256"
)

const (
	dkLen   = 32
	saltLen = 32
	ivLen   = aes.BlockSize
	macLen  = 32
)

// ScryptParams is a set of scrypt KDF cost parameters.
type ScryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// StandardScryptParams returns the parameters used by geth and most wallets.
func StandardScryptParams() ScryptParams {
	return ScryptParams{N: 1 << 17, R: 8, P: 1}
}

// LightScryptParams returns cheaper parameters suitable for interactive
// use on weak devices.
func LightScryptParams() ScryptParams {
	return ScryptParams{N: 1 << 12, R: 8, P: 6}
}

// Record is a keystore v3 JSON record.
type Record struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	// Address is lowercase hex without 0x prefix.
	Address string `json:"address"`
	Crypto  Crypto `json:"crypto"`
}

// Crypto is the encrypted part of a Record.
type Crypto struct {
	Cipher       string         `json:"cipher"`
	CipherText   string         `json:"ciphertext"`
	CipherParams CipherParams   `json:"cipherparams"`
	KDF          string         `json:"kdf"`
	KDFParams    map[string]any `json:"kdfparams"`
	MAC          string         `json:"mac"`
}

// CipherParams holds the cipher IV.
type CipherParams struct {
	IV string `json:"iv"`
}

// Encrypt encrypts a 32-byte secp256k1 private key with the given password
// using scrypt with params for key derivation.
func Encrypt(privateKey []byte, password string, params ScryptParams) (*Record, error) {
	const method = "keystore.Encrypt"

	k, err := keys.NewPrivateKeyFromBytes(privateKey)
	if err != nil {
		return nil, thorerr.Wrap(method, thorerr.EncryptionFailed,
			"invalid private key", nil, err)
	}
	defer k.Destroy()

	salt := make([]byte, saltLen)
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, thorerr.Wrap(method, thorerr.EncryptionFailed, "can't generate salt", nil, err)
	}
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, thorerr.Wrap(method, thorerr.EncryptionFailed, "can't generate IV", nil, err)
	}

	dk, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, dkLen)
	if err != nil {
		return nil, thorerr.Wrap(method, thorerr.EncryptionFailed, "key derivation failed",
			map[string]any{"n": params.N, "r": params.R, "p": params.P}, err)
	}
	defer wipe(dk)

	cipherText, err := aesCTR(dk[:16], iv, privateKey)
	if err != nil {
		return nil, thorerr.Wrap(method, thorerr.EncryptionFailed, "encryption failed", nil, err)
	}
	mac := hash.Keccak256(dk[16:32], cipherText)

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, thorerr.Wrap(method, thorerr.EncryptionFailed, "can't generate record ID", nil, err)
	}

	return &Record{
		Version: Version,
		ID:      id.String(),
		Address: hex.EncodeToString(k.Address().Bytes()),
		Crypto: Crypto{
			Cipher:       CipherAES128CTR,
			CipherText:   hex.EncodeToString(cipherText),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			KDF:          KDFScrypt,
			KDFParams: map[string]any{
				"n":     params.N,
				"r":     params.R,
				"p":     params.P,
				"dklen": dkLen,
				"salt":  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac[:]),
		},
	}, nil
}

// Decrypt recovers the private key stored in the record. The MAC is
// verified before decryption, a mismatch is reported as
// thorerr.InvalidPassword.
func Decrypt(rec *Record, password string) ([]byte, error) {
	const method = "keystore.Decrypt"

	if err := check(rec); err != nil {
		return nil, thorerr.Wrap(method, thorerr.InvalidKeystore, "invalid keystore", nil, err)
	}
	cipherText, _ := hex.DecodeString(rec.Crypto.CipherText)
	iv, _ := hex.DecodeString(rec.Crypto.CipherParams.IV)
	mac, _ := hex.DecodeString(rec.Crypto.MAC)

	dk, err := deriveKey(&rec.Crypto, password)
	if err != nil {
		return nil, thorerr.Wrap(method, thorerr.InvalidKeystore, "key derivation failed", nil, err)
	}
	defer wipe(dk)

	calculated := hash.Keccak256(dk[16:32], cipherText)
	if subtle.ConstantTimeCompare(calculated[:], mac) != 1 {
		return nil, thorerr.New(method, thorerr.InvalidPassword,
			"decryption failed, invalid password", nil)
	}

	priv, err := aesCTR(dk[:16], iv, cipherText)
	if err != nil {
		return nil, thorerr.Wrap(method, thorerr.InvalidKeystore, "decryption failed", nil, err)
	}
	k, err := keys.NewPrivateKeyFromBytes(priv)
	if err != nil {
		wipe(priv)
		return nil, thorerr.Wrap(method, thorerr.InvalidKeystore, "decrypted key is invalid", nil, err)
	}
	defer k.Destroy()
	addr := hex.EncodeToString(k.Address().Bytes())
	if addr != normalizeAddress(rec.Address) {
		wipe(priv)
		return nil, thorerr.New(method, thorerr.InvalidKeystore,
			"decrypted key doesn't match keystore address",
			map[string]any{"address": rec.Address})
	}
	return priv, nil
}

// IsValid checks the shape of the record without any cryptographic
// verification.
func IsValid(rec *Record) bool {
	return check(rec) == nil
}

func check(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	if rec.Version != Version {
		return fmt.Errorf("unsupported version %d", rec.Version)
	}
	if rec.Crypto.Cipher != CipherAES128CTR {
		return fmt.Errorf("unsupported cipher %q", rec.Crypto.Cipher)
	}
	if rec.Crypto.KDF != KDFScrypt && rec.Crypto.KDF != KDFPBKDF2 {
		return fmt.Errorf("unsupported kdf %q", rec.Crypto.KDF)
	}
	if a, err := hex.DecodeString(normalizeAddress(rec.Address)); err != nil || len(a) != 20 {
		return fmt.Errorf("invalid address %q", rec.Address)
	}
	if ct, err := hex.DecodeString(rec.Crypto.CipherText); err != nil || len(ct) != keys.PrivateKeyLen {
		return fmt.Errorf("invalid ciphertext")
	}
	if iv, err := hex.DecodeString(rec.Crypto.CipherParams.IV); err != nil || len(iv) != ivLen {
		return fmt.Errorf("invalid iv")
	}
	if mac, err := hex.DecodeString(rec.Crypto.MAC); err != nil || len(mac) != macLen {
		return fmt.Errorf("invalid mac")
	}
	salt, ok := rec.Crypto.KDFParams["salt"].(string)
	if !ok {
		return fmt.Errorf("missing salt")
	}
	if _, err := hex.DecodeString(salt); err != nil {
		return fmt.Errorf("invalid salt: %w", err)
	}
	if l, err := intParam(rec.Crypto.KDFParams, "dklen"); err != nil || l != dkLen {
		return fmt.Errorf("invalid dklen")
	}
	return nil
}

func deriveKey(c *Crypto, password string) ([]byte, error) {
	salt, _ := hex.DecodeString(c.KDFParams["salt"].(string))
	switch c.KDF {
	case KDFScrypt:
		n, err := intParam(c.KDFParams, "n")
		if err != nil {
			return nil, err
		}
		r, err := intParam(c.KDFParams, "r")
		if err != nil {
			return nil, err
		}
		p, err := intParam(c.KDFParams, "p")
		if err != nil {
			return nil, err
		}
		return scrypt.Key([]byte(password), salt, n, r, p, dkLen)
	case KDFPBKDF2:
		if prf, _ := c.KDFParams["prf"].(string); prf != PRFHMACSHA256 {
			return nil, fmt.Errorf("unsupported prf %q", prf)
		}
		iter, err := intParam(c.KDFParams, "c")
		if err != nil {
			return nil, err
		}
		return pbkdf2.Key([]byte(password), salt, iter, dkLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("unsupported kdf %q", c.KDF)
	}
}

// intParam extracts a positive integer KDF parameter, JSON numbers are
// decoded as float64.
func intParam(params map[string]any, name string) (int, error) {
	var v int
	switch n := params[name].(type) {
	case float64:
		v = int(n)
		if float64(v) != n {
			return 0, fmt.Errorf("non-integer %s", name)
		}
	case int:
		v = n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		v = int(i)
	default:
		return 0, fmt.Errorf("missing %s", name)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s %d", name, v)
	}
	return v, nil
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

func normalizeAddress(a string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(a, "0x"), "0X"))
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ReadFile reads a record from the JSON file.
func ReadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec := new(Record)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, thorerr.Wrap("keystore.ReadFile", thorerr.InvalidKeystore,
			"can't parse keystore", map[string]any{"path": path}, err)
	}
	return rec, nil
}

// WriteFile writes the record as JSON into the file readable by the owner
// only.
func WriteFile(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
