/*
Package thorest contains the routes, query and request shapes of the Thor
REST API along with the validation helpers shared by its clients.
*/
package thorest

import (
	"github.com/ethereum/go-ethereum/common"
)

// Static routes.
const (
	SimulateTransaction = "/accounts/*"
	Transactions        = "/transactions"
	EventLogs           = "/logs/event"
	TransferLogs        = "/logs/transfer"
	Peers               = "/node/network/peers"
	BlockSubscription   = "/subscriptions/block"
)

// Account returns the account details route.
func Account(addr common.Address) string {
	return "/accounts/" + addrHex(addr)
}

// AccountCode returns the contract bytecode route.
func AccountCode(addr common.Address) string {
	return Account(addr) + "/code"
}

// AccountStorage returns the contract storage slot route.
func AccountStorage(addr common.Address, key common.Hash) string {
	return Account(addr) + "/storage/" + key.Hex()
}

// Block returns the route of a block by revision (number, ID or one of the
// named revisions).
func Block(revision string) string {
	return "/blocks/" + revision
}

// Transaction returns the transaction route.
func Transaction(id string) string {
	return "/transactions/" + id
}

// TransactionReceipt returns the transaction receipt route.
func TransactionReceipt(id string) string {
	return Transaction(id) + "/receipt"
}

// addrHex returns the lowercase hex form of the address, the node accepts
// both, but lowercase keeps routes stable.
func addrHex(addr common.Address) string {
	return "0x" + common.Bytes2Hex(addr.Bytes())
}
