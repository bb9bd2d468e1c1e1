package wallet

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/crypto/keys"
	"github.com/nspcc-dev/thor-go/pkg/keystore"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
)

// Account represents a VeChain account. It holds the address, the encrypted
// key and, once unlocked, the private key.
type Account struct {
	// Private key, nil while the account is locked.
	privateKey *keys.PrivateKey

	// Account address.
	Address common.Address `json:"address"`

	// Label is a label the user had made for this account.
	Label string `json:"label"`

	// Keystore holds the encrypted private key, it can be nil for
	// watch-only accounts.
	Keystore *keystore.Record `json:"keystore"`

	// Indicates whether the account is the default one.
	Default bool `json:"isDefault"`
}

// ErrLocked is returned when the private key of the account is not
// available.
var ErrLocked = errors.New("account is locked")

// NewAccount creates a new Account with a random generated PrivateKey.
func NewAccount() (*Account, error) {
	priv, err := keys.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return NewAccountFromPrivateKey(priv), nil
}

// NewAccountFromPrivateKey creates an unlocked account from the given key.
func NewAccountFromPrivateKey(p *keys.PrivateKey) *Account {
	return &Account{
		privateKey: p,
		Address:    p.Address(),
	}
}

// NewAccountFromKeystore creates a locked account from a keystore record.
func NewAccountFromKeystore(rec *keystore.Record) (*Account, error) {
	if !keystore.IsValid(rec) {
		return nil, thorerr.New("wallet.NewAccountFromKeystore", thorerr.InvalidKeystore,
			"invalid keystore", nil)
	}
	return &Account{
		Address:  common.HexToAddress(rec.Address),
		Keystore: rec,
	}, nil
}

// NewWatchOnlyAccount creates an account that can't sign anything.
func NewWatchOnlyAccount(addr common.Address) *Account {
	return &Account{Address: addr}
}

// Decrypt decrypts the keystore with the given password, unlocking the
// account.
func (a *Account) Decrypt(password string) error {
	if a.Keystore == nil {
		return thorerr.New("wallet.Decrypt", thorerr.MissingPrivateKey,
			"no keystore in the account", map[string]any{"address": a.Address.Hex()})
	}
	b, err := keystore.Decrypt(a.Keystore, password)
	if err != nil {
		return err
	}
	p, err := keys.NewPrivateKeyFromBytes(b)
	if err != nil {
		return thorerr.Wrap("wallet.Decrypt", thorerr.InvalidKeystore, "invalid key", nil, err)
	}
	a.privateKey = p
	return nil
}

// Encrypt encrypts the private key of the unlocked account replacing its
// keystore record.
func (a *Account) Encrypt(password string, params keystore.ScryptParams) error {
	if a.privateKey == nil {
		return thorerr.New("wallet.Encrypt", thorerr.MissingPrivateKey,
			"account is locked", map[string]any{"address": a.Address.Hex()})
	}
	rec, err := keystore.Encrypt(a.privateKey.Bytes(), password, params)
	if err != nil {
		return err
	}
	a.Keystore = rec
	return nil
}

// PrivateKey returns private key corresponding to the account, nil when
// the account is locked.
func (a *Account) PrivateKey() *keys.PrivateKey {
	return a.privateKey
}

// CanSign returns true when the account is unlocked.
func (a *Account) CanSign() bool {
	return a.privateKey != nil
}

// Close wipes the private key, locking the account.
func (a *Account) Close() {
	if a.privateKey == nil {
		return
	}
	a.privateKey.Destroy()
	a.privateKey = nil
}

func (a *Account) assertUnlocked(method string) error {
	if !a.CanSign() {
		return thorerr.Wrap(method, thorerr.MissingPrivateKey,
			"private key is required to sign", map[string]any{"address": a.Address.Hex()}, ErrLocked)
	}
	return nil
}

// SignTx signs the transaction as its origin. For delegated transactions
// only the origin part of the signature is set, the gas payer adds its
// signature with SignAsDelegator.
func (a *Account) SignTx(tx *transaction.Transaction) error {
	if err := a.assertUnlocked("wallet.SignTx"); err != nil {
		return err
	}
	h, err := tx.SigningHash()
	if err != nil {
		return err
	}
	sig, err := a.privateKey.SignHash(h)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// SignAsDelegator returns the gas payer signature of the delegated
// transaction body for the given origin.
func (a *Account) SignAsDelegator(b *transaction.Body, origin common.Address) ([]byte, error) {
	if err := a.assertUnlocked("wallet.SignAsDelegator"); err != nil {
		return nil, err
	}
	if !b.IsDelegated() {
		return nil, transaction.ErrNotDelegated
	}
	h, err := b.DelegatorSigningHash(origin)
	if err != nil {
		return nil, err
	}
	return a.privateKey.SignHash(h)
}
