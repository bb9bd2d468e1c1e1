package rpcclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/waiter"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
)

func assertRevision(method string, rev *string) error {
	if rev != nil && !thorest.IsValidRevision(*rev) {
		return thorerr.New(method, thorerr.InvalidDataType,
			"invalid revision, it must be a block number, a block ID, 'best', 'finalized' or 'justified'",
			map[string]any{"revision": *rev})
	}
	return nil
}

func revisionQuery(rev *string) *thorest.Query {
	return thorest.NewQuery().String("revision", rev)
}

// GetAccount returns the balance, energy and code presence of the account at
// the given revision (best if nil).
func (c *Client) GetAccount(addr common.Address, revision *string) (*result.Account, error) {
	if err := assertRevision("GetAccount", revision); err != nil {
		return nil, err
	}
	var resp = new(result.Account)
	if err := c.performRequest(http.MethodGet, thorest.Account(addr), revisionQuery(revision), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBytecode returns the contract code deployed at the given address, it's
// empty for regular accounts.
func (c *Client) GetBytecode(addr common.Address, revision *string) ([]byte, error) {
	if err := assertRevision("GetBytecode", revision); err != nil {
		return nil, err
	}
	var resp = new(result.Code)
	if err := c.performRequest(http.MethodGet, thorest.AccountCode(addr), revisionQuery(revision), nil, resp); err != nil {
		return nil, err
	}
	return resp.Code, nil
}

// GetStorageAt returns the value of the contract storage slot.
func (c *Client) GetStorageAt(addr common.Address, key common.Hash, revision *string) (common.Hash, error) {
	if err := assertRevision("GetStorageAt", revision); err != nil {
		return common.Hash{}, err
	}
	var resp = new(result.Storage)
	if err := c.performRequest(http.MethodGet, thorest.AccountStorage(addr, key), revisionQuery(revision), nil, resp); err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(resp.Value), nil
}

// SimulateTransaction executes the clauses on top of the given revision
// without changing the state. It returns one result per clause in the same
// order. The revision is validated before the request is made.
func (c *Client) SimulateTransaction(clauses []transaction.Clause, opts *thorest.SimulateOptions) ([]result.Simulation, error) {
	var rev *string
	if opts != nil {
		rev = opts.Revision
	}
	if err := assertRevision("SimulateTransaction", rev); err != nil {
		return nil, err
	}
	var (
		body = thorest.NewSimulateRequest(clauses, opts)
		resp []result.Simulation
	)
	if err := c.performRequest(http.MethodPost, thorest.SimulateTransaction, opts.Query(), body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBlock returns the block by its revision: a number, an ID or one of the
// named revisions. It returns (nil, nil) if there is no such block.
// Finalized blocks are cached, they must not be modified.
func (c *Client) GetBlock(revision string) (*result.Block, error) {
	if err := assertRevision("GetBlock", &revision); err != nil {
		return nil, err
	}
	if b := c.cachedBlock(revision); b != nil {
		return b, nil
	}
	var resp = new(result.Block)
	if err := c.performRequest(http.MethodGet, thorest.Block(revision), nil, nil, &resp); err != nil {
		return nil, err
	}
	c.cacheBlock(resp)
	return resp, nil
}

// GetBestBlock returns the best (latest) block.
func (c *Client) GetBestBlock() (*result.Block, error) {
	return c.GetBlock(thorest.RevisionBest)
}

// GetFinalizedBlock returns the latest finalized block.
func (c *Client) GetFinalizedBlock() (*result.Block, error) {
	return c.GetBlock(thorest.RevisionFinalized)
}

// GetGenesisBlock returns the genesis block, it's served from the cache
// after Init.
func (c *Client) GetGenesisBlock() (*result.Block, error) {
	if g := c.genesis(); g != nil {
		return g, nil
	}
	return c.GetBlock("0")
}

// GetBestBlockRef returns the reference of the best block, nil if the node
// has no best block.
func (c *Client) GetBestBlockRef() (*transaction.BlockRef, error) {
	b, err := c.GetBestBlock()
	if err != nil || b == nil {
		return nil, err
	}
	ref := transaction.NewBlockRefFromID(b.ID)
	return &ref, nil
}

// ChainTag returns the tag of the chain the client is connected to, it's the
// last byte of the genesis block ID.
func (c *Client) ChainTag() (uint8, error) {
	g, err := c.GetGenesisBlock()
	if err != nil {
		return 0, err
	}
	if g == nil {
		return 0, thorerr.New("ChainTag", thorerr.TransactionBuild, "node returned no genesis block", nil)
	}
	return g.ChainTag(), nil
}

// GetTransaction returns the transaction by its ID, (nil, nil) if it's not
// known to the node.
func (c *Client) GetTransaction(id string, opts *thorest.GetTransactionOptions) (*result.TransactionDetail, error) {
	if err := transaction.AssertValidID("GetTransaction", id); err != nil {
		return nil, err
	}
	if opts != nil {
		if err := transaction.AssertValidHead("GetTransaction", opts.Head); err != nil {
			return nil, err
		}
	}
	var resp = new(result.TransactionDetail)
	if err := c.performRequest(http.MethodGet, thorest.Transaction(id), opts.Query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTransactionReceipt returns the receipt of the transaction, (nil, nil)
// if the transaction is not included into a block yet.
func (c *Client) GetTransactionReceipt(id string, opts *thorest.GetReceiptOptions) (*result.Receipt, error) {
	if err := transaction.AssertValidID("GetTransactionReceipt", id); err != nil {
		return nil, err
	}
	if opts != nil {
		if err := transaction.AssertValidHead("GetTransactionReceipt", opts.Head); err != nil {
			return nil, err
		}
	}
	var resp = new(result.Receipt)
	if err := c.performRequest(http.MethodGet, thorest.TransactionReceipt(id), opts.Query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendRawTransaction broadcasts the 0x-prefixed hex RLP of a signed
// transaction. The transaction is fully decoded before sending, malformed
// ones never reach the node.
func (c *Client) SendRawTransaction(raw string) (common.Hash, error) {
	const method = "SendRawTransaction"
	data := map[string]any{"raw": raw}
	if !strings.HasPrefix(raw, "0x") {
		return common.Hash{}, thorerr.New(method, thorerr.InvalidDataType,
			"raw transaction must be a 0x-prefixed hex string", data)
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		return common.Hash{}, thorerr.Wrap(method, thorerr.InvalidDataType,
			"raw transaction must be a 0x-prefixed hex string", data, err)
	}
	if _, err := transaction.Decode(b, true); err != nil {
		return common.Hash{}, thorerr.Wrap(method, thorerr.InvalidDataType,
			"invalid raw transaction", data, err)
	}
	var (
		body = &thorest.RawTransaction{Raw: raw}
		resp = new(result.SendTransaction)
	)
	if err := c.performRequest(http.MethodPost, thorest.Transactions, nil, body, resp); err != nil {
		return common.Hash{}, err
	}
	return resp.ID, nil
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(tx *transaction.Transaction) (common.Hash, error) {
	if err := transaction.AssertSigned("SendTransaction", tx); err != nil {
		return common.Hash{}, err
	}
	b, err := tx.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return c.SendRawTransaction(hexutil.Encode(b))
}

// FilterEventLogs returns event logs matching the filter.
func (c *Client) FilterEventLogs(f *result.EventFilter) ([]result.EventLog, error) {
	if f == nil {
		f = new(result.EventFilter)
	}
	var resp []result.EventLog
	if err := c.performRequest(http.MethodPost, thorest.EventLogs, nil, f, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FilterTransferLogs returns VET transfer logs matching the filter.
func (c *Client) FilterTransferLogs(f *result.TransferFilter) ([]result.TransferLog, error) {
	if f == nil {
		f = new(result.TransferFilter)
	}
	var resp []result.TransferLog
	if err := c.performRequest(http.MethodPost, thorest.TransferLogs, nil, f, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPeers returns the list of peers the node is connected to.
func (c *Client) GetPeers() ([]result.Peer, error) {
	var resp []result.Peer
	if err := c.performRequest(http.MethodGet, thorest.Peers, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// WaitForTransaction polls the receipt of the transaction until it's found
// or the timeout given in opts elapses, (nil, nil) is returned in the latter
// case. The ID is validated before any request is made.
func (c *Client) WaitForTransaction(ctx context.Context, id string, opts *waiter.WaitOptions) (*result.Receipt, error) {
	if err := transaction.AssertValidID("WaitForTransaction", id); err != nil {
		return nil, err
	}
	return c.poller().WaitForReceipt(ctx, id, opts)
}

// WaitForBlock polls the block with the given number until it's available
// or the timeout given in opts elapses.
func (c *Client) WaitForBlock(ctx context.Context, number uint32, opts *waiter.WaitOptions) (*result.Block, error) {
	return c.poller().WaitForBlock(ctx, number, opts)
}

func (c *Client) poller() *waiter.PollingBased {
	return waiter.NewPollingBased(c, waiter.PollConfig{
		PollInterval: c.opts.PollInterval,
		RetryCount:   c.opts.RetryCount,
		Logger:       c.log,
	})
}
