package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/crypto/keys"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type rpcClientTestCase struct {
	name           string
	invoke         func(c *Client) (any, error)
	fails          bool
	status         int
	serverResponse string
	result         func(c *Client) any
	check          func(t *testing.T, c *Client, result any)
}

const (
	genesisID = "0x00000000c05a20fbca2bf6ae3affba6af4a74b800b585bf7a4988aba7aea69f6"
	bestID    = "0x0000002a0e3f4d5b2a7be9e1b4ad7a1a3e0a9c9a8f2b1c4d5e6f708192a3b4c5"
	txID      = "0x9140e36f05000508465fd55d70947b99a78c84b3afa5e068b955e366b560935f"

	genesisBlock = `{"number":0,"id":"` + genesisID + `","size":170,"parentID":"0xffffffff00000000000000000000000000000000000000000000000000000000","timestamp":1526400000,"gasLimit":10000000,"beneficiary":"0x0000000000000000000000000000000000000000","gasUsed":0,"totalScore":0,"txsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","txsFeatures":0,"stateRoot":"0x93de0ffb1f33bc0af053abc2a87c4af44594f5dcb1cb879dd823686a15d68550","receiptsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","com":false,"signer":"0x0000000000000000000000000000000000000000","isTrunk":true,"isFinalized":true,"transactions":[]}`
	bestBlock    = `{"number":42,"id":"` + bestID + `","size":361,"parentID":"` + genesisID + `","timestamp":1526400420,"gasLimit":10000000,"beneficiary":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","gasUsed":21000,"totalScore":42,"txsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","txsFeatures":1,"stateRoot":"0x93de0ffb1f33bc0af053abc2a87c4af44594f5dcb1cb879dd823686a15d68550","receiptsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","com":true,"signer":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","isTrunk":true,"isFinalized":false,"transactions":["` + txID + `"]}`
	receipt      = `{"gasUsed":21000,"gasPayer":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","paid":"0x1236efcbcbb340000","reward":"0x576e189f04f60000","reverted":false,"meta":{"blockID":"` + bestID + `","blockNumber":42,"blockTimestamp":1526400420,"txID":"` + txID + `","txOrigin":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa"},"outputs":[{"contractAddress":null,"events":[],"transfers":[{"sender":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","recipient":"0x435933c8064b4ae76be665428e0307ef2ccfbd68","amount":"0x1"}]}]}`
)

var testAddr = common.HexToAddress("0x435933c8064b4ae76be665428e0307ef2ccfbd68")

func ptr[T any](v T) *T { return &v }

// signedTx returns a signed solo network transaction and its hex RLP.
func signedTx(t *testing.T) (*transaction.Transaction, string) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	b := &transaction.Body{
		ChainTag:   246,
		BlockRef:   transaction.NewBlockRef(42),
		Expiration: 32,
		Clauses:    []transaction.Clause{transaction.NewClause(testAddr, big.NewInt(1), nil)},
		Gas:        21000,
		Nonce:      12345,
	}
	tx, err := transaction.Sign(b, priv, nil)
	require.NoError(t, err)
	raw, err := tx.Encode()
	require.NoError(t, err)
	return tx, hexutil.Encode(raw)
}

var rpcClientTestCases = map[string][]rpcClientTestCase{
	"getAccount": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetAccount(testAddr, nil)
			},
			serverResponse: `{"balance":"0x47ff1f90327aa0f8e","energy":"0xcf624158d591398","hasCode":false}`,
			result: func(c *Client) any {
				b, _ := new(big.Int).SetString("47ff1f90327aa0f8e", 16)
				e, _ := new(big.Int).SetString("cf624158d591398", 16)
				return &result.Account{Balance: (*hexutil.Big)(b), Energy: (*hexutil.Big)(e)}
			},
		},
		{
			name: "invalid revision",
			invoke: func(c *Client) (any, error) {
				return c.GetAccount(testAddr, ptr("next"))
			},
			fails: true,
		},
		{
			name: "not found",
			invoke: func(c *Client) (any, error) {
				return c.GetAccount(testAddr, ptr("best"))
			},
			status:         http.StatusBadRequest,
			serverResponse: "revision: not found",
			fails:          true,
		},
	},
	"getBytecode": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetBytecode(testAddr, ptr("finalized"))
			},
			serverResponse: `{"code":"0x6060604052"}`,
			result: func(c *Client) any {
				return []byte{0x60, 0x60, 0x60, 0x40, 0x52}
			},
		},
	},
	"getStorageAt": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetStorageAt(testAddr, common.Hash{}, nil)
			},
			serverResponse: `{"value":"0x0000000000000000000000000000000000000000000000000000000000000001"}`,
			result: func(c *Client) any {
				return common.BigToHash(big.NewInt(1))
			},
		},
	},
	"simulateTransaction": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.SimulateTransaction([]transaction.Clause{transaction.NewClause(testAddr, big.NewInt(10), nil)},
					&thorest.SimulateOptions{Revision: ptr("best")})
			},
			serverResponse: `[{"data":"0x","events":[],"transfers":[],"gasUsed":0,"reverted":false,"vmError":""}]`,
			result: func(c *Client) any {
				return []result.Simulation{{Data: hexutil.Bytes{}, Events: []result.Event{}, Transfers: []result.Transfer{}}}
			},
		},
		{
			name: "invalid revision",
			invoke: func(c *Client) (any, error) {
				return c.SimulateTransaction(nil, &thorest.SimulateOptions{Revision: ptr("0x1")})
			},
			fails: true,
		},
	},
	"getBlock": {
		{
			name: "best",
			invoke: func(c *Client) (any, error) {
				return c.GetBestBlock()
			},
			serverResponse: bestBlock,
			check: func(t *testing.T, c *Client, res any) {
				b := res.(*result.Block)
				require.Equal(t, uint32(42), b.Number)
				require.Equal(t, common.HexToHash(bestID), b.ID)
				require.Equal(t, []common.Hash{common.HexToHash(txID)}, b.Transactions)
			},
		},
		{
			name: "null",
			invoke: func(c *Client) (any, error) {
				return c.GetBlock("100500")
			},
			serverResponse: `null`,
			result: func(c *Client) any {
				return (*result.Block)(nil)
			},
		},
		{
			name: "invalid revision",
			invoke: func(c *Client) (any, error) {
				return c.GetBlock("latest")
			},
			fails: true,
		},
		{
			name: "server error",
			invoke: func(c *Client) (any, error) {
				return c.GetFinalizedBlock()
			},
			status: http.StatusInternalServerError,
			fails:  true,
		},
	},
	"getBestBlockRef": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetBestBlockRef()
			},
			serverResponse: bestBlock,
			result: func(c *Client) any {
				ref := transaction.NewBlockRefFromID(common.HexToHash(bestID))
				return &ref
			},
		},
		{
			name: "no best block",
			invoke: func(c *Client) (any, error) {
				return c.GetBestBlockRef()
			},
			serverResponse: `null`,
			result: func(c *Client) any {
				return (*transaction.BlockRef)(nil)
			},
		},
	},
	"chainTag": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.ChainTag()
			},
			result: func(c *Client) any {
				return uint8(246)
			},
		},
	},
	"getTransaction": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetTransaction(txID, &thorest.GetTransactionOptions{Pending: ptr(true)})
			},
			serverResponse: `{"id":"` + txID + `","chainTag":246,"blockRef":"0x0000002a0e3f4d5b","expiration":32,"clauses":[{"to":"0x435933c8064b4ae76be665428e0307ef2ccfbd68","value":"0x1","data":"0x"}],"gasPriceCoef":0,"gas":21000,"origin":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","delegator":null,"nonce":"0x3039","dependsOn":null,"size":130,"meta":null}`,
			check: func(t *testing.T, c *Client, res any) {
				tx := res.(*result.TransactionDetail)
				require.Equal(t, common.HexToHash(txID), tx.ID)
				require.Equal(t, uint32(42), tx.BlockRef.Number())
				require.Equal(t, hexutil.Uint64(12345), tx.Nonce)
				require.Len(t, tx.Clauses, 1)
				require.Equal(t, big.NewInt(1), tx.Clauses[0].Value)
				require.Nil(t, tx.Meta)
				require.Nil(t, tx.Delegator)
			},
		},
		{
			name: "unknown",
			invoke: func(c *Client) (any, error) {
				return c.GetTransaction(txID, nil)
			},
			serverResponse: `null`,
			result: func(c *Client) any {
				return (*result.TransactionDetail)(nil)
			},
		},
		{
			name: "invalid ID",
			invoke: func(c *Client) (any, error) {
				return c.GetTransaction("0x1234", nil)
			},
			fails: true,
		},
		{
			name: "invalid head",
			invoke: func(c *Client) (any, error) {
				return c.GetTransaction(txID, &thorest.GetTransactionOptions{Head: ptr("best")})
			},
			fails: true,
		},
	},
	"getTransactionReceipt": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetTransactionReceipt(txID, nil)
			},
			serverResponse: receipt,
			check: func(t *testing.T, c *Client, res any) {
				r := res.(*result.Receipt)
				require.Equal(t, uint64(21000), r.GasUsed)
				require.Equal(t, common.HexToHash(txID), r.Meta.TxID)
				require.Len(t, r.Outputs, 1)
				require.Equal(t, testAddr, r.Outputs[0].Transfers[0].Recipient)
			},
		},
		{
			name: "pending",
			invoke: func(c *Client) (any, error) {
				return c.GetTransactionReceipt(txID, &thorest.GetReceiptOptions{Head: ptr(bestID)})
			},
			serverResponse: `null`,
			result: func(c *Client) any {
				return (*result.Receipt)(nil)
			},
		},
	},
	"sendRawTransaction": {
		{
			name: "no prefix",
			invoke: func(c *Client) (any, error) {
				return c.SendRawTransaction("f8540184")
			},
			fails: true,
		},
		{
			name: "bad hex",
			invoke: func(c *Client) (any, error) {
				return c.SendRawTransaction("0xzz")
			},
			fails: true,
		},
		{
			name: "unsigned",
			invoke: func(c *Client) (any, error) {
				return c.SendRawTransaction("0xf8540184aabbccdd20f840df947567d83b7b8d80addcb281a71d54fc7b3364ffed82271086000000606060df947567d83b7b8d80addcb281a71d54fc7b3364ffed824e208600000060606081808252088083bc614ec0")
			},
			fails: true,
		},
	},
	"filterEventLogs": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.FilterEventLogs(&result.EventFilter{
					Range: &result.Range{Unit: result.RangeBlock, From: 0, To: 42},
				})
			},
			serverResponse: `[{"address":"0x0000000000000000000000000000456e65726779","topics":["0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"],"data":"0x01","meta":{"blockID":"` + bestID + `","blockNumber":42,"blockTimestamp":1526400420,"txID":"` + txID + `","txOrigin":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","clauseIndex":0}}]`,
			check: func(t *testing.T, c *Client, res any) {
				logs := res.([]result.EventLog)
				require.Len(t, logs, 1)
				require.Equal(t, hexutil.Bytes{1}, logs[0].Data)
				require.Equal(t, uint32(42), logs[0].Meta.BlockNumber)
			},
		},
	},
	"filterTransferLogs": {
		{
			name: "empty",
			invoke: func(c *Client) (any, error) {
				return c.FilterTransferLogs(nil)
			},
			serverResponse: `[]`,
			result: func(c *Client) any {
				return []result.TransferLog{}
			},
		},
	},
	"getPeers": {
		{
			name: "positive",
			invoke: func(c *Client) (any, error) {
				return c.GetPeers()
			},
			serverResponse: `[{"name":"thor/v2.1.0","bestBlockID":"` + bestID + `","totalScore":42,"peerID":"abc","netAddr":"1.2.3.4:11235","inbound":false,"duration":10}]`,
			result: func(c *Client) any {
				return []result.Peer{{
					Name:        "thor/v2.1.0",
					BestBlockID: common.HexToHash(bestID),
					TotalScore:  42,
					PeerID:      "abc",
					NetAddr:     "1.2.3.4:11235",
					Duration:    10,
				}}
			},
		},
	},
}

func TestRPCClient(t *testing.T) {
	for method, testBatch := range rpcClientTestCases {
		t.Run(method, func(t *testing.T) {
			for _, testCase := range testBatch {
				t.Run(testCase.name, func(t *testing.T) {
					srv := initTestServer(t, testCase.status, testCase.serverResponse)

					c, err := New(context.TODO(), srv.URL, Options{})
					require.NoError(t, err)
					require.NoError(t, c.Init())

					actual, err := testCase.invoke(c)
					if testCase.fails {
						assert.Error(t, err)
					} else {
						assert.NoError(t, err)

						if testCase.check == nil {
							assert.Equal(t, testCase.result(c), actual)
						} else {
							testCase.check(t, c, actual)
						}
					}
				})
			}
		})
	}
}

// initTestServer serves the genesis block and the given response for every
// other route.
func initTestServer(t *testing.T, status int, resp string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/blocks/0" {
			_, _ = w.Write([]byte(genesisBlock))
			return
		}
		if status != 0 {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type recorder struct {
	lock sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) requests() []recordedRequest {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.reqs
}

// initRecordingServer records every request except the genesis block one.
func initRecordingServer(t *testing.T, resp string) (*httptest.Server, *recorder) {
	rec := new(recorder)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/blocks/0" {
			_, _ = w.Write([]byte(genesisBlock))
			return
		}
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		rec.lock.Lock()
		rec.reqs = append(rec.reqs, recordedRequest{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.RawQuery,
			Body:   strings.TrimSpace(string(body)),
		})
		rec.lock.Unlock()
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestRequestShapes(t *testing.T) {
	t.Run("simulate", func(t *testing.T) {
		srv, rec := initRecordingServer(t, `[]`)
		c, err := New(context.TODO(), srv.URL, Options{})
		require.NoError(t, err)

		caller := testAddr
		_, err = c.SimulateTransaction([]transaction.Clause{
			transaction.NewClause(testAddr, big.NewInt(1000), []byte{1, 2}),
			transaction.NewDeployClause(nil, []byte{0x60}),
		}, &thorest.SimulateOptions{Revision: ptr("justified"), Caller: &caller, Gas: ptr(uint64(50000))})
		require.NoError(t, err)
		reqs := rec.requests()
		require.Len(t, reqs, 1)
		r := reqs[0]
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/accounts/*", r.Path)
		require.Equal(t, "revision=justified", r.Query)

		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.Body), &body))
		require.Equal(t, float64(50000), body["gas"])
		require.Equal(t, "0x435933c8064b4ae76be665428e0307ef2ccfbd68", strings.ToLower(body["caller"].(string)))
		clauses := body["clauses"].([]any)
		require.Len(t, clauses, 2)
		require.Equal(t, "1000", clauses[0].(map[string]any)["value"])
		require.Equal(t, "0x0102", clauses[0].(map[string]any)["data"])
		require.Nil(t, clauses[1].(map[string]any)["to"])
		require.Equal(t, "0", clauses[1].(map[string]any)["value"])
	})
	t.Run("transaction query", func(t *testing.T) {
		srv, rec := initRecordingServer(t, `null`)
		c, err := New(context.TODO(), srv.URL, Options{})
		require.NoError(t, err)

		_, err = c.GetTransaction(txID, &thorest.GetTransactionOptions{Raw: ptr(true), Head: ptr(bestID), Pending: ptr(false)})
		require.NoError(t, err)
		_, err = c.GetTransactionReceipt(txID, nil)
		require.NoError(t, err)
		require.Equal(t, []recordedRequest{
			{Method: http.MethodGet, Path: "/transactions/" + txID, Query: "head=" + bestID + "&pending=false&raw=true"},
			{Method: http.MethodGet, Path: "/transactions/" + txID + "/receipt"},
		}, rec.requests())
	})
	t.Run("send", func(t *testing.T) {
		tx, raw := signedTx(t)
		id, err := tx.ID()
		require.NoError(t, err)

		srv, rec := initRecordingServer(t, `{"id":"`+id.Hex()+`"}`)
		c, err := New(context.TODO(), srv.URL, Options{})
		require.NoError(t, err)

		actual, err := c.SendTransaction(tx)
		require.NoError(t, err)
		require.Equal(t, id, actual)
		reqs := rec.requests()
		require.Len(t, reqs, 1)
		require.Equal(t, http.MethodPost, reqs[0].Method)
		require.Equal(t, "/transactions", reqs[0].Path)
		require.JSONEq(t, `{"raw":"`+raw+`"}`, reqs[0].Body)
	})
}

func TestPreconditionsMakeNoRequests(t *testing.T) {
	srv, rec := initRecordingServer(t, `null`)
	c, err := New(context.TODO(), srv.URL, Options{})
	require.NoError(t, err)

	_, err = c.GetTransaction("0xabc", nil)
	require.ErrorIs(t, err, thorerr.InvalidDataType)
	_, err = c.GetTransactionReceipt(txID, &thorest.GetReceiptOptions{Head: ptr("0x01")})
	require.ErrorIs(t, err, thorerr.InvalidDataType)
	_, err = c.SimulateTransaction(nil, &thorest.SimulateOptions{Revision: ptr("next")})
	require.ErrorIs(t, err, thorerr.InvalidDataType)
	_, err = c.SendTransaction(transaction.New(&transaction.Body{ChainTag: 246}))
	require.ErrorIs(t, err, thorerr.NotSigned)
	_, err = c.SendTransaction(nil)
	require.ErrorIs(t, err, thorerr.NotSigned)
	_, err = c.SendRawTransaction("0x01")
	require.ErrorIs(t, err, thorerr.InvalidDataType)
	require.Error(t, errors.Unwrap(err))
	var terr *thorerr.Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, map[string]any{"raw": "0x01"}, terr.Data)
	_, err = c.SendRawTransaction("f8540184")
	require.ErrorAs(t, err, &terr)
	require.Equal(t, map[string]any{"raw": "f8540184"}, terr.Data)
	_, err = c.WaitForTransaction(context.Background(), "0x00", nil)
	require.ErrorIs(t, err, thorerr.InvalidDataType)

	require.Empty(t, rec.requests())
	require.Zero(t, c.Requests())
}

func TestHTTPErrors(t *testing.T) {
	srv := initTestServer(t, http.StatusBadRequest, "revision: invalid\n")
	c, err := New(context.TODO(), srv.URL, Options{})
	require.NoError(t, err)

	_, err = c.GetBestBlock()
	var he *thorest.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.StatusCode)
	require.Equal(t, "/blocks/best", he.Path)
	require.Equal(t, "revision: invalid", he.Body)
	require.False(t, he.Temporary())
}

func TestBlockCache(t *testing.T) {
	count := atomic.NewInt32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		count.Inc()
		switch req.URL.Path {
		case "/blocks/0":
			_, _ = w.Write([]byte(genesisBlock))
		default:
			_, _ = w.Write([]byte(bestBlock))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.TODO(), srv.URL, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Init())
	require.Equal(t, int32(1), count.Load())

	// Finalized blocks are served from the cache by number and ID.
	g, err := c.GetGenesisBlock()
	require.NoError(t, err)
	require.Equal(t, uint8(246), g.ChainTag())
	_, err = c.GetBlock("0")
	require.NoError(t, err)
	_, err = c.GetBlock("0x" + strings.ToUpper(genesisID[2:]))
	require.NoError(t, err)
	require.Equal(t, int32(1), count.Load())

	// Non-finalized ones are not.
	_, err = c.GetBlock("42")
	require.NoError(t, err)
	_, err = c.GetBlock("42")
	require.NoError(t, err)
	require.Equal(t, int32(3), count.Load())
}

func TestNewClient(t *testing.T) {
	_, err := New(context.TODO(), "ftp://localhost", Options{})
	require.Error(t, err)

	c, err := New(context.TODO(), "http://localhost:8669/", Options{})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8669", c.Endpoint())
	require.Equal(t, defaultDialTimeout, c.opts.DialTimeout)
	require.Equal(t, defaultRequestTimeout, c.opts.RequestTimeout)
	require.Equal(t, "ws://localhost:8669/subscriptions/block", c.wsEndpoint(thorest.BlockSubscription, nil))

	c, err = New(context.TODO(), "https://node.example.org", Options{})
	require.NoError(t, err)
	pos := common.HexToHash(bestID)
	require.Equal(t, "wss://node.example.org/subscriptions/block?pos="+bestID, c.wsEndpoint(thorest.BlockSubscription, &pos))
}
