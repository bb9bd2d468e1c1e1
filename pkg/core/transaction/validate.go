package transaction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
)

// IsValidID checks that id is a 0x-prefixed 32-byte hex string.
func IsValidID(id string) bool {
	if len(id) != 2+2*common.HashLength {
		return false
	}
	_, err := hexutil.Decode(id)
	return err == nil
}

// AssertValidID fails with thorerr.InvalidDataType unless id is a valid
// transaction ID. method is the name of the calling operation.
func AssertValidID(method string, id string) error {
	if !IsValidID(id) {
		return thorerr.New(method, thorerr.InvalidDataType,
			"invalid transaction ID given as input, it must be a 0x-prefixed 64 digits hex string",
			map[string]any{"id": id})
	}
	return nil
}

// AssertValidHead fails with thorerr.InvalidDataType unless head is nil or
// a valid block ID.
func AssertValidHead(method string, head *string) error {
	if head != nil && !IsValidID(*head) {
		return thorerr.New(method, thorerr.InvalidDataType,
			"invalid head given as input, it must be a 0x-prefixed 64 digits hex string (block ID)",
			map[string]any{"head": *head})
	}
	return nil
}

// AssertSigned fails with thorerr.NotSigned unless tx carries a signature.
// The error data holds the unsigned encoding of tx if it can be produced.
func AssertSigned(method string, tx *Transaction) error {
	if tx != nil && tx.IsSigned() {
		return nil
	}
	data := map[string]any{"tx": nil}
	if tx != nil {
		if b, err := tx.EncodeUnsigned(); err == nil {
			data["tx"] = hexutil.Encode(b)
		}
	}
	return thorerr.New(method, thorerr.NotSigned, "transaction must be signed", data)
}
