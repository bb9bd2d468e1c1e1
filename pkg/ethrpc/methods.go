package ethrpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
)

// ClientVersion is returned by web3_clientVersion.
const ClientVersion = "thor"

// Backend is the set of REST client methods used by Mapper.
type Backend interface {
	invoker.RPCSimulate

	GetBlock(revision string) (*result.Block, error)
	GetGenesisBlock() (*result.Block, error)
	GetAccount(addr common.Address, revision *string) (*result.Account, error)
	GetBytecode(addr common.Address, revision *string) ([]byte, error)
	GetStorageAt(addr common.Address, key common.Hash, revision *string) (common.Hash, error)
	SendRawTransaction(raw string) (common.Hash, error)
	GetTransaction(id string, opts *thorest.GetTransactionOptions) (*result.TransactionDetail, error)
	GetTransactionReceipt(id string, opts *thorest.GetReceiptOptions) (*result.Receipt, error)
	GetPeers() ([]result.Peer, error)
}

// Handler is a JSON-RPC method implementation.
type Handler func(m *Mapper, params []json.RawMessage) (any, error)

// Mapper translates Ethereum JSON-RPC calls into Thor REST requests.
type Mapper struct {
	client   Backend
	accounts []common.Address
	// now is replaced in tests.
	now func() time.Time
}

// syncThreshold is the best block age after which the node is considered
// to be syncing.
const syncThreshold = 11 * 10 * time.Second

// Methods is the map of all known methods.
var Methods = map[string]Handler{
	"web3_clientVersion":        (*Mapper).clientVersion,
	"net_version":               (*Mapper).chainID,
	"net_listening":             (*Mapper).listening,
	"net_peerCount":             (*Mapper).peerCount,
	"eth_chainId":               (*Mapper).chainID,
	"eth_blockNumber":           (*Mapper).blockNumber,
	"eth_syncing":               (*Mapper).syncing,
	"eth_accounts":              (*Mapper).accountsList,
	"eth_requestAccounts":       (*Mapper).accountsList,
	"eth_gasPrice":              (*Mapper).gasPrice,
	"eth_getBalance":            (*Mapper).getBalance,
	"eth_getCode":               (*Mapper).getCode,
	"eth_getStorageAt":          (*Mapper).getStorageAt,
	"eth_getBlockByNumber":      (*Mapper).getBlockByNumber,
	"eth_getBlockByHash":        (*Mapper).getBlockByHash,
	"eth_call":                  (*Mapper).call,
	"eth_estimateGas":           (*Mapper).estimateGas,
	"eth_sendRawTransaction":    (*Mapper).sendRawTransaction,
	"eth_getTransactionReceipt": (*Mapper).getTransactionReceipt,
	"eth_getTransactionByHash":  (*Mapper).getTransactionByHash,

	"eth_coinbase":                            notImplemented("eth_coinbase"),
	"eth_createAccessList":                    notImplemented("eth_createAccessList"),
	"eth_feeHistory":                          notImplemented("eth_feeHistory"),
	"eth_getBlockTransactionCountByHash":      notImplemented("eth_getBlockTransactionCountByHash"),
	"eth_getBlockTransactionCountByNumber":    notImplemented("eth_getBlockTransactionCountByNumber"),
	"eth_getFilterChanges":                    notImplemented("eth_getFilterChanges"),
	"eth_getFilterLogs":                       notImplemented("eth_getFilterLogs"),
	"eth_getLogs":                             notImplemented("eth_getLogs"),
	"eth_getProof":                            notImplemented("eth_getProof"),
	"eth_getTransactionByBlockHashAndIndex":   notImplemented("eth_getTransactionByBlockHashAndIndex"),
	"eth_getTransactionByBlockNumberAndIndex": notImplemented("eth_getTransactionByBlockNumberAndIndex"),
	"eth_getTransactionCount":                 notImplemented("eth_getTransactionCount"),
	"eth_getUncleByBlockHashAndIndex":         notImplemented("eth_getUncleByBlockHashAndIndex"),
	"eth_getUncleByBlockNumberAndIndex":       notImplemented("eth_getUncleByBlockNumberAndIndex"),
	"eth_getUncleCountByBlockHash":            notImplemented("eth_getUncleCountByBlockHash"),
	"eth_getUncleCountByBlockNumber":          notImplemented("eth_getUncleCountByBlockNumber"),
	"eth_getWork":                             notImplemented("eth_getWork"),
	"eth_hashrate":                            notImplemented("eth_hashrate"),
	"eth_maxPriorityFeePerGas":                notImplemented("eth_maxPriorityFeePerGas"),
	"eth_mining":                              notImplemented("eth_mining"),
	"eth_newBlockFilter":                      notImplemented("eth_newBlockFilter"),
	"eth_newFilter":                           notImplemented("eth_newFilter"),
	"eth_newPendingTransactionFilter":         notImplemented("eth_newPendingTransactionFilter"),
	"eth_protocolVersion":                     notImplemented("eth_protocolVersion"),
	"eth_sendTransaction":                     notImplemented("eth_sendTransaction"),
	"eth_sign":                                notImplemented("eth_sign"),
	"eth_signTransaction":                     notImplemented("eth_signTransaction"),
	"eth_submitHashrate":                      notImplemented("eth_submitHashrate"),
	"eth_submitWork":                          notImplemented("eth_submitWork"),
	"eth_subscribe":                           notImplemented("eth_subscribe"),
	"eth_uninstallFilter":                     notImplemented("eth_uninstallFilter"),
	"eth_unsubscribe":                         notImplemented("eth_unsubscribe"),
	"debug_traceCall":                         notImplemented("debug_traceCall"),
	"debug_traceTransaction":                  notImplemented("debug_traceTransaction"),
	"engine_exchangeCapabilities":             notImplemented("engine_exchangeCapabilities"),
	"engine_forkchoiceUpdatedV1":              notImplemented("engine_forkchoiceUpdatedV1"),
	"engine_forkchoiceUpdatedV2":              notImplemented("engine_forkchoiceUpdatedV2"),
	"engine_getPayloadV1":                     notImplemented("engine_getPayloadV1"),
	"engine_newPayloadV1":                     notImplemented("engine_newPayloadV1"),
	"txpool_content":                          notImplemented("txpool_content"),
	"txpool_status":                           notImplemented("txpool_status"),
	"web3_sha3":                               notImplemented("web3_sha3"),
}

func notImplemented(method string) Handler {
	return func(_ *Mapper, params []json.RawMessage) (any, error) {
		return nil, thorerr.New(method, thorerr.NotImplemented,
			fmt.Sprintf("method %q has not been implemented yet", method),
			map[string]any{"params": len(params)})
	}
}

// NewMapper creates a Mapper using the given client. accounts are returned
// by eth_accounts, they can be nil.
func NewMapper(client Backend, accounts []common.Address) *Mapper {
	return &Mapper{client: client, accounts: accounts, now: time.Now}
}

// Call runs the given method with the given parameters.
func (m *Mapper) Call(method string, params []json.RawMessage) (any, *Error) {
	h, ok := Methods[method]
	if !ok {
		return nil, NewMethodNotFoundError(fmt.Sprintf("method %q is not supported", method))
	}
	res, err := h(m, params)
	if err != nil {
		return nil, toRPCError(err)
	}
	return res, nil
}

// Handle processes a single request.
func (m *Mapper) Handle(req *Request) *Response {
	if req.JSONRPC != JSONRPCVersion {
		return NewResponse(req, nil, NewInvalidRequestError(
			fmt.Sprintf("invalid version, expected %s got '%s'", JSONRPCVersion, req.JSONRPC)))
	}
	res, err := m.Call(req.Method, req.Params)
	return NewResponse(req, res, err)
}

// revision converts Ethereum block tag or number to Thor revision.
func revision(ps []json.RawMessage, i int) (*string, error) {
	var tag string
	if err := param(ps, i, false, &tag); err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	var rev string
	switch tag {
	case "", "latest", "pending":
		rev = "best"
	case "earliest":
		rev = "0"
	case "safe":
		rev = "justified"
	case "finalized":
		rev = "finalized"
	default:
		if len(tag) == 2+2*common.HashLength {
			rev = strings.ToLower(tag)
			break
		}
		n, err := hexutil.DecodeUint64(tag)
		if err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("invalid block tag %q", tag))
		}
		rev = strconv.FormatUint(n, 10)
	}
	return &rev, nil
}

func address(ps []json.RawMessage, i int) (common.Address, error) {
	var a common.Address
	if err := param(ps, i, true, &a); err != nil {
		return a, NewInvalidParamsError(err.Error())
	}
	return a, nil
}

func hashParam(ps []json.RawMessage, i int) (common.Hash, error) {
	var h common.Hash
	if err := param(ps, i, true, &h); err != nil {
		return h, NewInvalidParamsError(err.Error())
	}
	return h, nil
}

func (m *Mapper) clientVersion(_ []json.RawMessage) (any, error) {
	return ClientVersion, nil
}

// chainID returns the genesis block ID, Thor has no numeric chain ID.
func (m *Mapper) chainID(_ []json.RawMessage) (any, error) {
	g, err := m.client.GetGenesisBlock()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, NewInternalServerError("no genesis block")
	}
	return g.ID, nil
}

func (m *Mapper) listening(_ []json.RawMessage) (any, error) {
	return true, nil
}

func (m *Mapper) peerCount(_ []json.RawMessage) (any, error) {
	peers, err := m.client.GetPeers()
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(len(peers)), nil
}

func (m *Mapper) bestBlock() (*result.Block, error) {
	b, err := m.client.GetBlock("best")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, NewInternalServerError("no best block")
	}
	return b, nil
}

func (m *Mapper) blockNumber(_ []json.RawMessage) (any, error) {
	b, err := m.bestBlock()
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(b.Number), nil
}

// syncStatus is returned by eth_syncing when the node is behind.
type syncStatus struct {
	StartingBlock hexutil.Uint64 `json:"startingBlock"`
	CurrentBlock  hexutil.Uint64 `json:"currentBlock"`
	HighestBlock  hexutil.Uint64 `json:"highestBlock"`
}

func (m *Mapper) syncing(_ []json.RawMessage) (any, error) {
	b, err := m.bestBlock()
	if err != nil {
		return nil, err
	}
	age := m.now().Sub(time.Unix(int64(b.Timestamp), 0))
	if age < syncThreshold {
		return false, nil
	}
	g, err := m.client.GetGenesisBlock()
	if err != nil {
		return nil, err
	}
	var highest = uint64(b.Number)
	if g != nil && m.now().Unix() > int64(g.Timestamp) {
		// One block per 10 seconds since genesis.
		highest = uint64(m.now().Unix()-int64(g.Timestamp)) / 10
	}
	return &syncStatus{
		CurrentBlock: hexutil.Uint64(b.Number),
		HighestBlock: hexutil.Uint64(highest),
	}, nil
}

func (m *Mapper) accountsList(_ []json.RawMessage) (any, error) {
	res := make([]common.Address, len(m.accounts))
	copy(res, m.accounts)
	return res, nil
}

func (m *Mapper) gasPrice(_ []json.RawMessage) (any, error) {
	p, err := invoker.New(m.client, nil).BaseGasPrice()
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(p), nil
}

func (m *Mapper) getBalance(ps []json.RawMessage) (any, error) {
	addr, err := address(ps, 0)
	if err != nil {
		return nil, err
	}
	rev, err := revision(ps, 1)
	if err != nil {
		return nil, err
	}
	acc, err := m.client.GetAccount(addr, rev)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Balance == nil {
		return (*hexutil.Big)(new(big.Int)), nil
	}
	return acc.Balance, nil
}

func (m *Mapper) getCode(ps []json.RawMessage) (any, error) {
	addr, err := address(ps, 0)
	if err != nil {
		return nil, err
	}
	rev, err := revision(ps, 1)
	if err != nil {
		return nil, err
	}
	code, err := m.client.GetBytecode(addr, rev)
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(code), nil
}

func (m *Mapper) getStorageAt(ps []json.RawMessage) (any, error) {
	addr, err := address(ps, 0)
	if err != nil {
		return nil, err
	}
	var slot string
	if err := param(ps, 1, true, &slot); err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	key, err := hexutil.DecodeBig(slot)
	if err != nil {
		// Accept zero-padded 32-byte keys as well.
		b, derr := hexutil.Decode(slot)
		if derr != nil || len(b) > common.HashLength {
			return nil, NewInvalidParamsError(fmt.Sprintf("invalid storage slot %q", slot))
		}
		key = new(big.Int).SetBytes(b)
	}
	rev, err := revision(ps, 2)
	if err != nil {
		return nil, err
	}
	return m.client.GetStorageAt(addr, common.BigToHash(key), rev)
}

func (m *Mapper) block(rev string) (any, error) {
	b, err := m.client.GetBlock(rev)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	return newEthBlock(b), nil
}

func (m *Mapper) getBlockByNumber(ps []json.RawMessage) (any, error) {
	rev, err := revision(ps, 0)
	if err != nil {
		return nil, err
	}
	return m.block(*rev)
}

func (m *Mapper) getBlockByHash(ps []json.RawMessage) (any, error) {
	h, err := hashParam(ps, 0)
	if err != nil {
		return nil, err
	}
	return m.block(h.Hex())
}

// callArgs are eth_call and eth_estimateGas transaction parameters.
type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a *callArgs) clause() transaction.Clause {
	var data []byte
	switch {
	case a.Input != nil:
		data = *a.Input
	case a.Data != nil:
		data = *a.Data
	}
	cl := transaction.Clause{To: a.To, Data: data}
	if a.Value != nil {
		cl.Value = a.Value.ToInt()
	}
	return cl
}

func callParams(ps []json.RawMessage) (*callArgs, *string, error) {
	var args callArgs
	if err := param(ps, 0, true, &args); err != nil {
		return nil, nil, NewInvalidParamsError(err.Error())
	}
	rev, err := revision(ps, 1)
	if err != nil {
		return nil, nil, err
	}
	return &args, rev, nil
}

func (m *Mapper) call(ps []json.RawMessage) (any, error) {
	args, rev, err := callParams(ps)
	if err != nil {
		return nil, err
	}
	opts := &thorest.SimulateOptions{Revision: rev, Caller: args.From}
	if args.Gas != nil {
		g := uint64(*args.Gas)
		opts.Gas = &g
	}
	res, err := invoker.New(m.client, nil).SimulateTransaction([]transaction.Clause{args.clause()}, opts)
	if err != nil {
		return nil, err
	}
	if err := invoker.CheckReverted(&res[0]); err != nil {
		return nil, NewError(ExecutionErrorCode, err.Error(), hexutil.Encode(res[0].Data))
	}
	return res[0].Data, nil
}

func (m *Mapper) estimateGas(ps []json.RawMessage) (any, error) {
	args, rev, err := callParams(ps)
	if err != nil {
		return nil, err
	}
	inv, err := invoker.NewHistoric(*rev, m.client, nil)
	if err != nil {
		return nil, err
	}
	est, err := inv.EstimateGas([]transaction.Clause{args.clause()}, args.From)
	if err != nil {
		return nil, err
	}
	if est.Reverted {
		reason := est.RevertReasons[0]
		if reason == "" {
			reason = est.VMErrors[0]
		}
		return nil, NewError(ExecutionErrorCode, "execution reverted", reason)
	}
	return hexutil.Uint64(est.TotalGas), nil
}

func (m *Mapper) sendRawTransaction(ps []json.RawMessage) (any, error) {
	var raw string
	if err := param(ps, 0, true, &raw); err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	return m.client.SendRawTransaction(raw)
}

func (m *Mapper) getTransactionReceipt(ps []json.RawMessage) (any, error) {
	h, err := hashParam(ps, 0)
	if err != nil {
		return nil, err
	}
	r, err := m.client.GetTransactionReceipt(h.Hex(), nil)
	if err != nil || r == nil {
		return nil, err
	}
	tx, err := m.client.GetTransaction(h.Hex(), nil)
	if err != nil {
		return nil, err
	}
	return newEthReceipt(r, tx), nil
}

func (m *Mapper) getTransactionByHash(ps []json.RawMessage) (any, error) {
	h, err := hashParam(ps, 0)
	if err != nil {
		return nil, err
	}
	tx, err := m.client.GetTransaction(h.Hex(), nil)
	if err != nil || tx == nil {
		return nil, err
	}
	return newEthTransaction(tx), nil
}
