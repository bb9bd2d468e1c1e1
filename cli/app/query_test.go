package app_test

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/stretchr/testify/require"
)

func TestQueryTx(t *testing.T) {
	e := newExecutor(t, true)
	args := []string{"thor-go", "query", "tx", "-r", e.Node.URL}

	t.Run("no ID", func(t *testing.T) {
		e.RunWithErrorCheck(t, "transaction ID is missing", args...)
	})
	t.Run("too many IDs", func(t *testing.T) {
		e.RunWithErrorCheck(t, "only one transaction ID", append(args, txID, txID)...)
	})
	t.Run("invalid ID", func(t *testing.T) {
		e.RunWithError(t, append(args, "0x1234")...)
	})
	t.Run("unknown", func(t *testing.T) {
		e.RunWithErrorCheck(t, "not found", append(args, unknownID)...)
	})
	t.Run("short", func(t *testing.T) {
		e.Run(t, append(args, txID)...)
		e.checkNextLine(t, `ID:\s+`+txID)
		e.checkNextLine(t, `OnChain:\s+true`)
		e.checkNextLine(t, `BlockID:\s+`+bestID)
		e.checkNextLine(t, `BlockNumber:\s+42`)
		e.checkNextLine(t, `Success:\s+true`)
		e.checkEOF(t)
	})
	t.Run("verbose", func(t *testing.T) {
		e.Run(t, append(args, "--verbose", txID)...)
		e.checkNextLine(t, `ID:\s+`+txID)
		e.checkNextLine(t, `OnChain:\s+true`)
		e.checkNextLine(t, `BlockID:\s+`+bestID)
		e.checkNextLine(t, `BlockNumber:\s+42`)
		e.checkNextLine(t, `Success:\s+true`)
		e.checkNextLine(t, `Origin:\s+(?i)0xf077b491b355e64048ce21e3a6fc4751eeea77fa`)
		e.checkNextLine(t, `Gas:\s+21000`)
		e.checkNextLine(t, `GasPriceCoef:\s+0`)
		e.checkNextLine(t, `Clause #0:\s+(?i)`+testAddr+` 1 VET, 0 bytes of data`)
		e.checkNextLine(t, `GasUsed:\s+21000`)
		e.checkNextLine(t, `GasPayer:\s+(?i)0xf077b491b355e64048ce21e3a6fc4751eeea77fa`)
		e.checkNextLine(t, `Paid:\s+21000000000000000000`)
		e.checkEOF(t)
	})
}

func TestQueryReceipt(t *testing.T) {
	e := newExecutor(t, true)
	args := []string{"thor-go", "query", "receipt", "-r", e.Node.URL}

	t.Run("unknown", func(t *testing.T) {
		e.RunWithErrorCheck(t, "not found", append(args, unknownID)...)
	})
	t.Run("good", func(t *testing.T) {
		e.Run(t, append(args, txID)...)
		var res result.Receipt
		require.NoError(t, json.Unmarshal(e.Out.Bytes(), &res))
		require.False(t, res.Reverted)
		require.Equal(t, uint64(21000), res.GasUsed)
		require.Equal(t, common.HexToHash(txID), res.Meta.TxID)
	})
}

func TestQueryAccount(t *testing.T) {
	e := newExecutor(t, true)
	args := []string{"thor-go", "query", "account", "-r", e.Node.URL}

	t.Run("no address", func(t *testing.T) {
		e.RunWithErrorCheck(t, "exactly one address", args...)
	})
	t.Run("bad address", func(t *testing.T) {
		e.RunWithErrorCheck(t, "invalid address", append(args, "0x1234")...)
	})
	t.Run("bad revision", func(t *testing.T) {
		e.RunWithError(t, append(args, "--revision", "next", testAddr)...)
	})
	t.Run("good", func(t *testing.T) {
		e.Run(t, append(args, "--revision", "best", testAddr)...)
		e.checkNextLine(t, `Address:\s+`+common.HexToAddress(testAddr).Hex())
		e.checkNextLine(t, `Balance:\s+83006399998987997070`)
		e.checkNextLine(t, `Energy:\s+933973647710294936`)
		e.checkNextLine(t, `Contract:\s+false`)
		e.checkEOF(t)
	})
}

func TestQueryBlock(t *testing.T) {
	e := newExecutor(t, true)
	args := []string{"thor-go", "query", "block", "-r", e.Node.URL}

	t.Run("best", func(t *testing.T) {
		e.Run(t, args...)
		var b result.Block
		require.NoError(t, json.Unmarshal(e.Out.Bytes(), &b))
		require.Equal(t, uint32(42), b.Number)
		require.Equal(t, common.HexToHash(bestID), b.ID)
	})
	t.Run("genesis", func(t *testing.T) {
		e.Run(t, append(args, "0")...)
		var b result.Block
		require.NoError(t, json.Unmarshal(e.Out.Bytes(), &b))
		require.Equal(t, uint32(0), b.Number)
		require.Equal(t, uint8(246), b.ChainTag())
	})
	t.Run("missing", func(t *testing.T) {
		e.RunWithErrorCheck(t, "not found", append(args, "100")...)
	})
	t.Run("too many", func(t *testing.T) {
		e.RunWithErrorCheck(t, "only one revision", append(args, "0", "1")...)
	})
	t.Run("no node", func(t *testing.T) {
		e.RunWithError(t, "thor-go", "query", "block", "-r", "http://127.0.0.1:1", "-s", "1s")
	})
}
