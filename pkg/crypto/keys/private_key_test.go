package keys

import (
	"strings"
	"testing"

	"github.com/nspcc-dev/thor-go/pkg/crypto/hash"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex  = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
	testAddress = "0x970e8128ab834e8eac17ab8e3812f010678cf791"
)

func TestPrivateKey(t *testing.T) {
	k, err := NewPrivateKeyFromHex(testKeyHex)
	require.NoError(t, err)
	require.Equal(t, testAddress, strings.ToLower(k.Address().Hex()))
	require.Equal(t, testKeyHex, k.String())
	require.Equal(t, k.Address(), k.PublicKey().Address())

	k2, err := NewPrivateKeyFromHex("0x" + testKeyHex)
	require.NoError(t, err)
	require.Equal(t, k.Bytes(), k2.Bytes())
}

func TestPrivateKeyInvalid(t *testing.T) {
	_, err := NewPrivateKeyFromHex("zz")
	require.Error(t, err)

	_, err = NewPrivateKeyFromBytes(make([]byte, 31))
	require.Error(t, err)

	// Zero is not a valid scalar.
	_, err = NewPrivateKeyFromBytes(make([]byte, 32))
	require.Error(t, err)
}

func TestSignRecover(t *testing.T) {
	k, err := NewPrivateKey()
	require.NoError(t, err)

	digest := hash.Blake2b256([]byte("message"))
	sig, err := k.SignHash(digest)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLen)

	addr, err := RecoverAddress(digest, sig)
	require.NoError(t, err)
	require.Equal(t, k.Address(), addr)

	pub, err := RecoverPublicKey(digest, sig)
	require.NoError(t, err)
	require.True(t, pub.Equal(k.PublicKey()))
	require.True(t, pub.Verify(digest, sig))

	other := hash.Blake2b256([]byte("other"))
	require.False(t, pub.Verify(other, sig))

	_, err = RecoverAddress(digest, sig[:64])
	require.Error(t, err)
}

func TestPublicKeyEncoding(t *testing.T) {
	k, err := NewPrivateKeyFromHex(testKeyHex)
	require.NoError(t, err)
	pub := k.PublicKey()

	fromFull, err := NewPublicKeyFromBytes(pub.Bytes())
	require.NoError(t, err)
	require.True(t, pub.Equal(fromFull))

	fromCompressed, err := NewPublicKeyFromBytes(pub.Compressed())
	require.NoError(t, err)
	require.True(t, pub.Equal(fromCompressed))

	_, err = NewPublicKeyFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}
