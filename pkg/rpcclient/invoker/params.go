package invoker

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const paramsABIJSON = `[{"constant":true,"inputs":[{"name":"_key","type":"bytes32"}],"name":"get","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var paramsABI = mustParseABI(paramsABIJSON)

func mustParseABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}
