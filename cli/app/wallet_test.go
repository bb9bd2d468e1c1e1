package app_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/thor-go/cli/options"
	"github.com/nspcc-dev/thor-go/pkg/crypto/keys"
	"github.com/nspcc-dev/thor-go/pkg/keystore"
	"github.com/stretchr/testify/require"
)

func testKeyAddress(t *testing.T) string {
	k, err := keys.NewPrivateKeyFromHex(testKey)
	require.NoError(t, err)
	return k.Address().Hex()
}

// newKeystore creates a light keystore with testKey protected by testPass.
func newKeystore(t *testing.T, e *executor) string {
	path := filepath.Join(t.TempDir(), "key.json")
	e.In.WriteString(testPass + "\r" + testPass + "\r")
	e.Run(t, "thor-go", "wallet", "keystore", "create", "-k", path, "--light", "--key", testKey)
	e.checkNextLine(t, "^"+testKeyAddress(t)+"$")
	e.checkEOF(t)
	return path
}

func TestWalletKeystoreCreate(t *testing.T) {
	e := newExecutor(t, false)

	t.Run("missing path", func(t *testing.T) {
		e.RunWithErrorCheck(t, "keystore file path is mandatory", "thor-go", "wallet", "keystore", "create")
	})
	t.Run("bad key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.json")
		e.RunWithErrorCheck(t, "invalid private key", "thor-go", "wallet", "keystore", "create",
			"-k", path, "--key", "0xzz")
	})
	t.Run("passwords mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.json")
		e.In.WriteString("one\rtwo\r")
		e.RunWithErrorCheck(t, "do not match", "thor-go", "wallet", "keystore", "create", "-k", path, "--light")
		_, err := os.Stat(path)
		require.True(t, os.IsNotExist(err))
	})
	t.Run("imported key", func(t *testing.T) {
		path := newKeystore(t, e)
		rec, err := keystore.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, keystore.Version, rec.Version)
		require.True(t, keystore.IsValid(rec))

		priv, err := keystore.Decrypt(rec, testPass)
		require.NoError(t, err)
		k, err := keys.NewPrivateKeyFromHex(testKey)
		require.NoError(t, err)
		require.Equal(t, k.Bytes(), priv)

		t.Run("exists", func(t *testing.T) {
			e.RunWithErrorCheck(t, "already exists", "thor-go", "wallet", "keystore", "create",
				"-k", path, "--light")
		})
		t.Run("force", func(t *testing.T) {
			t.Setenv(options.PasswordEnv, "other")
			e.Run(t, "thor-go", "wallet", "keystore", "create", "-k", path, "--light", "--force")
			addr := e.getNextLine(t)
			e.checkEOF(t)
			require.NotEqual(t, testKeyAddress(t), addr)

			rec, err := keystore.ReadFile(path)
			require.NoError(t, err)
			_, err = keystore.Decrypt(rec, "other")
			require.NoError(t, err)
		})
	})
	t.Run("generated key", func(t *testing.T) {
		t.Setenv(options.PasswordEnv, testPass)
		path := filepath.Join(t.TempDir(), "key.json")
		e.Run(t, "thor-go", "wallet", "keystore", "create", "-k", path, "--light")
		e.checkNextLine(t, "^0x[0-9a-fA-F]{40}$")
		e.checkEOF(t)
	})
}

func TestWalletKeystoreDecrypt(t *testing.T) {
	e := newExecutor(t, false)
	path := newKeystore(t, e)

	t.Run("missing file", func(t *testing.T) {
		e.RunWithError(t, "thor-go", "wallet", "keystore", "decrypt",
			"-k", filepath.Join(t.TempDir(), "nope.json"))
	})
	t.Run("wrong password", func(t *testing.T) {
		e.In.WriteString("two\r")
		e.RunWithError(t, "thor-go", "wallet", "keystore", "decrypt", "-k", path)
	})
	t.Run("address", func(t *testing.T) {
		e.In.WriteString(testPass + "\r")
		e.Run(t, "thor-go", "wallet", "keystore", "decrypt", "-k", path)
		e.checkNextLine(t, "^"+testKeyAddress(t)+"$")
		e.checkEOF(t)
	})
	t.Run("show key", func(t *testing.T) {
		t.Setenv(options.PasswordEnv, testPass)
		e.Run(t, "thor-go", "wallet", "keystore", "decrypt", "-k", path, "--show-key")
		e.checkNextLine(t, "^"+testKeyAddress(t)+"$")
		e.checkNextLine(t, "^"+testKey+"$")
		e.checkEOF(t)
	})
}

func TestWalletKeystoreCheck(t *testing.T) {
	e := newExecutor(t, false)
	path := newKeystore(t, e)

	e.Run(t, "thor-go", "wallet", "keystore", "check", "-k", path)
	e.checkNextLine(t, "^"+testKeyAddress(t)+": valid keystore v3$")
	e.checkEOF(t)

	t.Run("not a keystore", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"version":1}`), 0o600))
		e.RunWithError(t, "thor-go", "wallet", "keystore", "check", "-k", bad)
	})
	t.Run("missing path", func(t *testing.T) {
		e.RunWithErrorCheck(t, "keystore file path is mandatory", "thor-go", "wallet", "keystore", "check")
	})
}
