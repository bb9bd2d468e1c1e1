package app_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/cli/app"
	"github.com/nspcc-dev/thor-go/cli/input"
	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

const (
	genesisID = "0x00000000c05a20fbca2bf6ae3affba6af4a74b800b585bf7a4988aba7aea69f6"
	bestID    = "0x0000002a0e3f4d5b2a7be9e1b4ad7a1a3e0a9c9a8f2b1c4d5e6f708192a3b4c5"
	txID      = "0x9140e36f05000508465fd55d70947b99a78c84b3afa5e068b955e366b560935f"
	unknownID = "0x1111111111111111111111111111111111111111111111111111111111111111"

	testKey  = "7582be841ca040aa940fff6c05773129e135623e41acce3e0b8ba520dc1ae26a"
	testPass = "one"
	testAddr = "0x435933c8064b4ae76be665428e0307ef2ccfbd68"

	genesisBlock = `{"number":0,"id":"` + genesisID + `","size":170,"parentID":"0xffffffff00000000000000000000000000000000000000000000000000000000","timestamp":1526400000,"gasLimit":10000000,"beneficiary":"0x0000000000000000000000000000000000000000","gasUsed":0,"totalScore":0,"txsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","txsFeatures":0,"stateRoot":"0x93de0ffb1f33bc0af053abc2a87c4af44594f5dcb1cb879dd823686a15d68550","receiptsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","com":false,"signer":"0x0000000000000000000000000000000000000000","isTrunk":true,"isFinalized":true,"transactions":[]}`
	bestBlock    = `{"number":42,"id":"` + bestID + `","size":361,"parentID":"` + genesisID + `","timestamp":1526400420,"gasLimit":10000000,"beneficiary":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","gasUsed":21000,"totalScore":42,"txsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","txsFeatures":1,"stateRoot":"0x93de0ffb1f33bc0af053abc2a87c4af44594f5dcb1cb879dd823686a15d68550","receiptsRoot":"0x45b0cfc220ceec5b7c1c62c4d4193d38e4eba48e8815729ce75f9c0ab0e4c1c0","com":true,"signer":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","isTrunk":true,"isFinalized":false,"transactions":["` + txID + `"]}`
	receipt      = `{"gasUsed":21000,"gasPayer":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","paid":"0x1236efcbcbb340000","reward":"0x576e189f04f60000","reverted":false,"meta":{"blockID":"` + bestID + `","blockNumber":42,"blockTimestamp":1526400420,"txID":"` + txID + `","txOrigin":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa"},"outputs":[{"contractAddress":null,"events":[],"transfers":[{"sender":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","recipient":"` + testAddr + `","amount":"0x1"}]}]}`
	txDetail     = `{"id":"` + txID + `","chainTag":246,"blockRef":"0x0000002a0e3f4d5b","expiration":32,"clauses":[{"to":"` + testAddr + `","value":"0x1","data":"0x"}],"gasPriceCoef":0,"gas":21000,"origin":"0xf077b491b355e64048ce21e3a6fc4751eeea77fa","delegator":null,"nonce":"0x3039","dependsOn":null,"size":130,"meta":{"blockID":"` + bestID + `","blockNumber":42,"blockTimestamp":1526400420}}`
	account      = `{"balance":"0x47ff1f90327aa0f8e","energy":"0xcf624158d591398","hasCode":false}`

	simulationOK = `[{"data":"0x","events":[],"transfers":[],"gasUsed":0,"reverted":false,"vmError":""}]`
	// Error("boom").
	simulationReverted = `[{"data":"0x08c379a000000000000000000000000000000000000000000000000000000000000000200000000000000000000000000000000000000000000000000000000000000004626f6f6d00000000000000000000000000000000000000000000000000000000","events":[],"transfers":[],"gasUsed":500,"reverted":true,"vmError":"execution reverted"}]`
)

// thorNode is a canned VeChainThor REST node.
type thorNode struct {
	*httptest.Server

	lock       sync.Mutex
	simulation string
	sent       []*transaction.Transaction
}

func newThorNode(t *testing.T) *thorNode {
	n := &thorNode{simulation: simulationOK}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

func (n *thorNode) setSimulation(s string) {
	n.lock.Lock()
	n.simulation = s
	n.lock.Unlock()
}

func (n *thorNode) sentTxs() []*transaction.Transaction {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]*transaction.Transaction(nil), n.sent...)
}

// knownTx reports whether the transaction with the given ID is in "chain".
func (n *thorNode) knownTx(id string) bool {
	if strings.EqualFold(id, txID) {
		return true
	}
	n.lock.Lock()
	defer n.lock.Unlock()
	for _, tx := range n.sent {
		h, err := tx.ID()
		if err == nil && strings.EqualFold(h.Hex(), id) {
			return true
		}
	}
	return false
}

func (n *thorNode) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/blocks/0":
		_, _ = io.WriteString(w, genesisBlock)
	case r.Method == http.MethodGet && (path == "/blocks/best" || path == "/blocks/42"):
		_, _ = io.WriteString(w, bestBlock)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/blocks/"):
		_, _ = io.WriteString(w, "null")
	case r.Method == http.MethodPost && path == "/accounts/*":
		n.lock.Lock()
		sim := n.simulation
		n.lock.Unlock()
		_, _ = io.WriteString(w, sim)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/accounts/"):
		_, _ = io.WriteString(w, account)
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/receipt"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/transactions/"), "/receipt")
		if !n.knownTx(id) {
			_, _ = io.WriteString(w, "null")
			return
		}
		_, _ = io.WriteString(w, receipt)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/transactions/"):
		if !n.knownTx(strings.TrimPrefix(path, "/transactions/")) {
			_, _ = io.WriteString(w, "null")
			return
		}
		_, _ = io.WriteString(w, txDetail)
	case r.Method == http.MethodPost && path == "/transactions":
		n.sendTx(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (n *thorNode) sendTx(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Raw string `json:"raw"`
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "body: "+err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := hexutil.Decode(req.Raw)
	if err != nil {
		http.Error(w, "raw: "+err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := transaction.Decode(raw, true)
	if err != nil {
		http.Error(w, "raw: "+err.Error(), http.StatusBadRequest)
		return
	}
	id, err := tx.ID()
	if err != nil {
		http.Error(w, "tx rejected: "+err.Error(), http.StatusForbidden)
		return
	}
	n.lock.Lock()
	n.sent = append(n.sent, tx)
	n.lock.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]common.Hash{"id": id})
}

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// Node is a REST node to query (can be empty).
	Node *thorNode
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
	// In contains command input.
	In *bytes.Buffer
}

func newExecutor(t *testing.T, needNode bool) *executor {
	config.Version = "0.1.0-test"
	e := &executor{
		CLI: app.New(),
		Out: bytes.NewBuffer(nil),
		Err: bytes.NewBuffer(nil),
		In:  bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err
	if needNode {
		e.Node = newThorNode(t)
	}
	t.Cleanup(func() {
		input.Terminal = nil
	})
	return e
}

func (e *executor) getNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func (e *executor) checkNextLine(t *testing.T, expected string) {
	line := e.getNextLine(t)
	e.checkLine(t, line, expected)
}

func (e *executor) checkLine(t *testing.T, line, expected string) {
	require.Regexp(t, expected, line)
}

func (e *executor) checkEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// RunWithErrorCheck runs command and checks that the error message
// contains the given string.
func (e *executor) RunWithErrorCheck(t *testing.T, msg string, args ...string) {
	ch := setExitFunc()
	err := e.run(args...)
	require.Error(t, err)
	require.Contains(t, err.Error(), msg)
	checkExit(t, ch, 1)
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	input.Terminal = term.NewTerminal(input.ReadWriter{
		Reader: e.In,
		Writer: io.Discard,
	}, "")
	err := e.CLI.Run(args)
	input.Terminal = nil
	e.In.Reset()
	return err
}
