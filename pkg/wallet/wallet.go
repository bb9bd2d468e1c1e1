package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/keystore"
)

const (
	// The current version of thor-go wallet implementations.
	walletVersion = "1.0"
)

// Wallet is a set of accounts stored in a single JSON file.
type Wallet struct {
	// Version of the wallet, used for later upgrades.
	Version string `json:"version"`

	// A list of accounts which describes the details of each account
	// in the wallet.
	Accounts []*Account `json:"accounts"`

	// Scrypt parameters used for new accounts.
	Scrypt keystore.ScryptParams `json:"scrypt"`

	// Path where the wallet file is located.
	path string
}

// ErrPathIsEmpty appears if wallet was created without linking to file system path,
// for instance with NewInMemoryWallet or NewWalletFromBytes.
// Despite this, there was an attempt to save it via Save or SavePretty without path.
var ErrPathIsEmpty = errors.New("path is empty")

// NewWallet creates a new wallet in the given location.
func NewWallet(location string) (*Wallet, error) {
	file, err := os.Create(location)
	if err != nil {
		return nil, err
	}
	w := NewInMemoryWallet()
	w.path = file.Name()
	return w, file.Close()
}

// NewInMemoryWallet creates a new wallet not linked to any file.
func NewInMemoryWallet() *Wallet {
	return &Wallet{
		Version:  walletVersion,
		Accounts: []*Account{},
		Scrypt:   keystore.StandardScryptParams(),
	}
}

// NewWalletFromFile creates a Wallet from the given wallet file path.
func NewWalletFromFile(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read wallet file: %w", err)
	}
	w, err := NewWalletFromBytes(data)
	if err != nil {
		return nil, err
	}
	w.path = path
	return w, nil
}

// NewWalletFromBytes creates a Wallet from the given JSON data.
func NewWalletFromBytes(data []byte) (*Wallet, error) {
	w := new(Wallet)
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("unmarshal wallet: %w", err)
	}
	for _, a := range w.Accounts {
		if a.Keystore != nil && !keystore.IsValid(a.Keystore) {
			return nil, fmt.Errorf("account %s: invalid keystore", a.Address.Hex())
		}
	}
	return w, nil
}

// CreateAccount generates a new account, encrypts it with the wallet
// scrypt parameters and adds it to the wallet.
func (w *Wallet) CreateAccount(label, password string) (*Account, error) {
	acc, err := NewAccount()
	if err != nil {
		return nil, err
	}
	acc.Label = label
	if err := acc.Encrypt(password, w.Scrypt); err != nil {
		return nil, err
	}
	w.AddAccount(acc)
	return acc, w.Save()
}

// AddAccount adds an existing Account to the wallet.
func (w *Wallet) AddAccount(acc *Account) {
	w.Accounts = append(w.Accounts, acc)
}

// RemoveAccount removes an Account with the specified address
// from the wallet.
func (w *Wallet) RemoveAccount(addr common.Address) error {
	for i, acc := range w.Accounts {
		if acc.Address == addr {
			copy(w.Accounts[i:], w.Accounts[i+1:])
			w.Accounts = w.Accounts[:len(w.Accounts)-1]
			return nil
		}
	}
	return errors.New("account wasn't found")
}

// GetAccount returns an account corresponding to the provided address.
func (w *Wallet) GetAccount(addr common.Address) *Account {
	for _, acc := range w.Accounts {
		if acc.Address == addr {
			return acc
		}
	}
	return nil
}

// GetDefaultAccount returns the default account or the first one.
func (w *Wallet) GetDefaultAccount() *Account {
	for _, acc := range w.Accounts {
		if acc.Default {
			return acc
		}
	}
	if len(w.Accounts) > 0 {
		return w.Accounts[0]
	}
	return nil
}

// Path returns the location of the wallet on the filesystem.
func (w *Wallet) Path() string {
	return w.path
}

// Save saves the wallet data to the file located at the path that was either provided
// via NewWalletFromFile/NewWallet or set later. It's a no-op for in-memory
// wallets.
func (w *Wallet) Save() error {
	if w.path == "" {
		return nil
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return w.writeRaw(data)
}

// SavePretty saves the wallet in a beautiful JSON.
func (w *Wallet) SavePretty() error {
	if w.path == "" {
		return ErrPathIsEmpty
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}
	return w.writeRaw(data)
}

func (w *Wallet) writeRaw(data []byte) error {
	return os.WriteFile(w.path, data, 0644)
}

// Close closes all Wallet accounts making them incapable of signing anything
// (unless they're decrypted again). It's not doing anything to the
// underlying wallet file.
func (w *Wallet) Close() {
	for _, acc := range w.Accounts {
		acc.Close()
	}
}
