package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout    = 4 * time.Second
	defaultRequestTimeout = 4 * time.Second
	// Number of finalized blocks kept in memory.
	defaultBlockCacheSize = 128
	// Response body limit.
	maxResponseSize = 32 * 1024 * 1024
)

// Client represents the middleman for executing REST calls to a remote
// Thor node. Client is thread-safe and can be used from multiple goroutines.
type Client struct {
	cli      *http.Client
	endpoint *url.URL
	ctx      context.Context
	opts     Options
	log      *zap.Logger
	requestF func(*request) (*response, error)

	cacheLock sync.RWMutex
	// cache stores node related information the client is bound to.
	// It's filled in during Init().
	cache cache

	// blocks keeps finalized blocks by ID and by number, they never change.
	blocks *lru.Cache

	requests *atomic.Uint64

	subsLock sync.Mutex
	subs     map[string]*subscription
}

// Options defines options for the REST client.
// All values are optional. If any duration is not specified,
// a default of 4 seconds will be used.
type Options struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// Limit total number of connections per host. No limit by default.
	MaxConnsPerHost int
	// BlockCacheSize is the number of finalized blocks cached, 128 by
	// default.
	BlockCacheSize int
	// PollInterval and RetryCount configure WaitForTransaction and
	// WaitForBlock, see waiter.PollConfig.
	PollInterval time.Duration
	RetryCount   int
	// Logger is used for request tracing, no logging happens if it's nil.
	Logger *zap.Logger
}

// cache stores cache values for the client methods.
type cache struct {
	initDone bool
	genesis  *result.Block
}

// request is a single REST call.
type request struct {
	Method string
	Path   string
	Query  *thorest.Query
	Body   any
}

// response is a raw REST reply.
type response struct {
	StatusCode int
	Body       []byte
}

// New returns a new Client ready to use. You should call Init method to
// cache the genesis block (and chain tag) of the network the client is
// operating on.
func New(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	cl := new(Client)
	err := initClient(ctx, cl, endpoint, opts)
	if err != nil {
		return nil, err
	}
	return cl, nil
}

func initClient(ctx context.Context, cl *Client, endpoint string, opts Options) error {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	if opts.BlockCacheSize <= 0 {
		opts.BlockCacheSize = defaultBlockCacheSize
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: opts.DialTimeout,
			}).DialContext,
			MaxConnsPerHost: opts.MaxConnsPerHost,
		},
		Timeout: opts.RequestTimeout,
	}

	cl.ctx = ctx
	cl.cli = httpClient
	cl.endpoint = u
	cl.opts = opts
	cl.log = opts.Logger
	cl.blocks, _ = lru.New(opts.BlockCacheSize) // Never errors for positive size.
	cl.requests = atomic.NewUint64(0)
	cl.subs = make(map[string]*subscription)
	cl.requestF = cl.makeHTTPRequest
	return nil
}

// Init fetches and caches the genesis block of the network the client is
// connected to. ChainTag and GetGenesisBlock use this cache afterwards.
func (c *Client) Init() error {
	g, err := c.GetBlock("0")
	if err != nil {
		return fmt.Errorf("failed to get genesis block: %w", err)
	}
	if g == nil {
		return errors.New("node returned no genesis block")
	}

	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()

	c.cache.genesis = g
	c.cache.initDone = true
	return nil
}

// Context returns the client context, it's used by waiters to stop awaiting
// when the client is shut down.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Endpoint returns the client endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Requests returns the number of REST requests made by the client.
func (c *Client) Requests() uint64 {
	return c.requests.Load()
}

// Close closes all subscriptions and unused underlying network connections.
func (c *Client) Close() {
	c.subsLock.Lock()
	ids := make([]string, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.subsLock.Unlock()
	for _, id := range ids {
		_ = c.Unsubscribe(id)
	}
	c.cli.CloseIdleConnections()
}

// performRequest makes a REST call and decodes the JSON reply into v. Non-2xx
// replies are returned as *thorest.HTTPError.
func (c *Client) performRequest(method, path string, q *thorest.Query, body any, v any) error {
	var r = request{
		Method: method,
		Path:   path,
		Query:  q,
		Body:   body,
	}

	raw, err := c.requestF(&r)
	if err != nil {
		return err
	}
	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return thorest.NewHTTPError(method, path, raw.StatusCode, raw.Body)
	}
	if v == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw.Body)) == 0 {
		return errors.New("no result returned")
	}
	if err := json.Unmarshal(raw.Body, v); err != nil {
		return fmt.Errorf("JSON decoding: %w", err)
	}
	return nil
}

func (c *Client) makeHTTPRequest(r *request) (*response, error) {
	var body io.Reader
	if r.Body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(r.Body); err != nil {
			return nil, err
		}
		body = buf
	}

	u := *c.endpoint
	u.Path += r.Path
	if r.Query != nil {
		u.RawQuery = r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(c.ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.requests.Inc()
	c.log.Debug("request", zap.String("method", r.Method), zap.String("path", r.Path))
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Ping attempts to create a connection to the endpoint
// and returns an error if there is any.
func (c *Client) Ping() error {
	host := c.endpoint.Host
	if c.endpoint.Port() == "" {
		port := "80"
		if c.endpoint.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(c.endpoint.Hostname(), port)
	}
	conn, err := net.DialTimeout("tcp", host, c.opts.DialTimeout)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

func (c *Client) genesis() *result.Block {
	c.cacheLock.RLock()
	defer c.cacheLock.RUnlock()
	if !c.cache.initDone {
		return nil
	}
	return c.cache.genesis
}

func (c *Client) cachedBlock(rev string) *result.Block {
	v, ok := c.blocks.Get(strings.ToLower(rev))
	if !ok {
		return nil
	}
	return v.(*result.Block)
}

func (c *Client) cacheBlock(b *result.Block) {
	if b == nil || !b.IsFinalized {
		return
	}
	c.blocks.Add(strings.ToLower(b.ID.Hex()), b)
	c.blocks.Add(fmt.Sprint(b.Number), b)
}
