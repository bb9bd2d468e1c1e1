package thorest

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Named revisions.
const (
	RevisionBest      = "best"
	RevisionFinalized = "finalized"
	RevisionJustified = "justified"
)

// IsValidRevision checks that rev is a decimal block number, a 0x-prefixed
// 32-byte block ID or one of the named revisions.
func IsValidRevision(rev string) bool {
	switch rev {
	case RevisionBest, RevisionFinalized, RevisionJustified:
		return true
	}
	return isBlockNumber(rev) || isBlockID(rev)
}

func isBlockNumber(rev string) bool {
	if rev == "" || (len(rev) > 1 && rev[0] == '0') {
		return false
	}
	_, err := strconv.ParseUint(rev, 10, 32)
	return err == nil
}

func isBlockID(rev string) bool {
	if len(rev) != 2+2*common.HashLength {
		return false
	}
	_, err := hexutil.Decode(rev)
	return err == nil
}
