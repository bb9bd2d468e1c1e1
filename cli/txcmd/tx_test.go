package txcmd

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseClause(t *testing.T) {
	to := common.HexToAddress("0x435933c8064b4ae76be665428e0307ef2ccfbd68")

	t.Run("transfer", func(t *testing.T) {
		cl, err := parseClause(to.Hex() + ":1000")
		require.NoError(t, err)
		require.Equal(t, to, *cl.To)
		require.Zero(t, big.NewInt(1000).Cmp(cl.Value))
		require.Empty(t, cl.Data)
	})
	t.Run("hex value and data", func(t *testing.T) {
		cl, err := parseClause(to.Hex() + ":0x10:0xa9059cbb")
		require.NoError(t, err)
		require.Zero(t, big.NewInt(16).Cmp(cl.Value))
		require.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, cl.Data)
	})
	t.Run("call without value", func(t *testing.T) {
		cl, err := parseClause(to.Hex() + "::0x01")
		require.NoError(t, err)
		require.Nil(t, cl.Value)
		require.Equal(t, []byte{1}, cl.Data)
	})
	t.Run("recipient only", func(t *testing.T) {
		cl, err := parseClause(to.Hex())
		require.NoError(t, err)
		require.Equal(t, to, *cl.To)
		require.Nil(t, cl.Value)
	})
	t.Run("deployment", func(t *testing.T) {
		cl, err := parseClause("::0x6060")
		require.NoError(t, err)
		require.Nil(t, cl.To)
		require.Equal(t, []byte{0x60, 0x60}, cl.Data)
	})

	for name, s := range map[string]string{
		"too many parts":    to.Hex() + ":1:0x:1",
		"bad recipient":     "0x1234:1",
		"bad value":         to.Hex() + ":ten",
		"negative value":    to.Hex() + ":-1",
		"bad data":          to.Hex() + ":1:zz",
		"nothing to do":     ":1",
		"empty":             "",
		"odd hex data":      to.Hex() + ":1:0x123",
		"deploy with value": ":5",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseClause(s)
			require.Error(t, err)
		})
	}
}
