package waiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"go.uber.org/zap"
)

// DefaultPollRetryCount is a threshold for a number of subsequent failed
// attempts to get a receipt or a block from the node for PollingBased. If it
// fails DefaultPollRetryCount times in a row then awaiting attempt is
// considered to be failed and an error is returned.
const DefaultPollRetryCount = 3

// DefaultPollInterval is the time between subsequent polls if nothing else
// is configured.
const DefaultPollInterval = time.Second

var (
	// ErrContextDone is returned when Waiter context has been done in the middle
	// of awaiting process and no result was received yet.
	ErrContextDone = errors.New("waiter context done")
	// ErrAwaitingNotSupported is returned from Wait methods if Waiter instance
	// doesn't support awaiting. It's compatible with [errors.ErrUnsupported].
	ErrAwaitingNotSupported = fmt.Errorf("%w: awaiting", errors.ErrUnsupported)
	// ErrMissedEvent is returned when RPCEventBased closes receiver channel
	// which happens if the subscription connection is broken.
	ErrMissedEvent = errors.New("some event was missed")
)

type (
	// Waiter is an interface providing transaction and block awaiting
	// functionality.
	Waiter interface {
		// WaitForReceipt waits until the receipt of the transaction with
		// the given ID is available. It returns (nil, nil) if the timeout
		// given in opts has elapsed without the receipt being found.
		WaitForReceipt(ctx context.Context, id string, opts *WaitOptions) (*result.Receipt, error)
		// WaitForBlock waits until the block with the given number is
		// available. It returns (nil, nil) on timeout.
		WaitForBlock(ctx context.Context, number uint32, opts *WaitOptions) (*result.Block, error)
	}
	// RPCPollingBased is an interface that enables awaiting functionality
	// based on periodical receipt and block polls.
	RPCPollingBased interface {
		// Context should return the client context to be able to gracefully
		// shut down all running processes (if so).
		Context() context.Context
		GetBlock(revision string) (*result.Block, error)
		GetTransactionReceipt(id string, opts *thorest.GetReceiptOptions) (*result.Receipt, error)
	}
	// RPCEventBased is an interface that enables improved awaiting
	// functionality based on websocket block notifications. RPCEventBased
	// contains RPCPollingBased under the hood and falls back to polling when
	// subscription-based awaiting fails.
	RPCEventBased interface {
		RPCPollingBased

		ReceiveBlocks(pos *common.Hash, rcvr chan<- *result.BlockMessage) (string, error)
		Unsubscribe(id string) error
	}
)

// WaitOptions are per-call awaiting parameters.
type WaitOptions struct {
	// Timeout is the maximum time to wait, zero means no limit (context
	// cancellation is the only way to stop the waiter then).
	Timeout time.Duration
	// Interval overrides PollConfig.PollInterval for this call.
	Interval time.Duration
}

// Config is a unified configuration for [Waiter] implementations that allows to
// customize awaiting behaviour.
type Config struct {
	PollConfig
}

// PollConfig is a configuration for PollingBased waiter.
type PollConfig struct {
	// PollInterval is a time interval between subsequent polls,
	// DefaultPollInterval if not set.
	PollInterval time.Duration
	// RetryCount is the number of consecutive transient failures (transport
	// errors, HTTP 5xx and 429) tolerated before an error is returned.
	RetryCount int
	// Logger logs retried failures, nothing is logged if it's nil.
	Logger *zap.Logger
	// Now and Sleep replace the wall clock, they're mostly useful for tests.
	// Sleep must return an error if ctx is done before d elapses.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Null is a Waiter stub that doesn't support awaiting functionality.
type Null struct{}

// PollingBased is a polling-based Waiter.
type PollingBased struct {
	polling RPCPollingBased
	config  PollConfig
}

// EventBased is a websocket-based Waiter.
type EventBased struct {
	ws      RPCEventBased
	polling *PollingBased
}

// New creates Waiter instance. It can be either websocket-based or
// polling-base, otherwise Waiter stub is returned. As a first argument
// it accepts RPCEventBased implementation, RPCPollingBased implementation
// or not an implementation of these two interfaces. It returns websocket-based
// waiter, polling-based waiter or a stub correspondingly.
func New(base any, config Config) Waiter {
	if eventW, ok := base.(RPCEventBased); ok {
		return NewEventBased(eventW, config)
	}
	if pollW, ok := base.(RPCPollingBased); ok {
		return NewPollingBased(pollW, config.PollConfig)
	}
	return NewNull()
}

// NewNull creates an instance of Waiter stub.
func NewNull() Null {
	return Null{}
}

// WaitForReceipt implements Waiter interface.
func (Null) WaitForReceipt(context.Context, string, *WaitOptions) (*result.Receipt, error) {
	return nil, ErrAwaitingNotSupported
}

// WaitForBlock implements Waiter interface.
func (Null) WaitForBlock(context.Context, uint32, *WaitOptions) (*result.Block, error) {
	return nil, ErrAwaitingNotSupported
}

// NewPollingBased creates an instance of Waiter supporting poll-based
// awaiting. Zero config values are replaced with defaults.
func NewPollingBased(waiter RPCPollingBased, config PollConfig) *PollingBased {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RetryCount <= 0 {
		config.RetryCount = DefaultPollRetryCount
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Sleep == nil {
		config.Sleep = sleep
	}
	return &PollingBased{
		polling: waiter,
		config:  config,
	}
}

// WaitForReceipt implements Waiter interface. The receipt is polled
// sequentially, the last poll never happens later than the timeout.
func (w *PollingBased) WaitForReceipt(ctx context.Context, id string, opts *WaitOptions) (*result.Receipt, error) {
	if err := transaction.AssertValidID("waiter.WaitForReceipt", id); err != nil {
		return nil, err
	}
	return poll(ctx, w, opts, newFailures("receipt", w.config), func() (*result.Receipt, error) {
		return w.polling.GetTransactionReceipt(id, nil)
	})
}

// WaitForBlock implements Waiter interface.
func (w *PollingBased) WaitForBlock(ctx context.Context, number uint32, opts *WaitOptions) (*result.Block, error) {
	rev := strconv.FormatUint(uint64(number), 10)
	return poll(ctx, w, opts, newFailures("block", w.config), func() (*result.Block, error) {
		return w.polling.GetBlock(rev)
	})
}

func (w *PollingBased) interval(opts *WaitOptions) time.Duration {
	if opts != nil && opts.Interval > 0 {
		return opts.Interval
	}
	return w.config.PollInterval
}

// failures counts consecutive transient poll errors of a single wait.
type failures struct {
	what  string
	limit int
	count int
	log   *zap.Logger
}

func newFailures(what string, config PollConfig) *failures {
	return &failures{what: what, limit: config.RetryCount, log: config.Logger}
}

// record registers the outcome of a poll. A nil error resets the counter,
// a non-nil result means awaiting must stop with it.
func (f *failures) record(err error) error {
	if err == nil {
		f.count = 0
		return nil
	}
	if !isTransient(err) {
		return err
	}
	f.count++
	if f.count > f.limit {
		return fmt.Errorf("failed to retrieve %s: %w", f.what, err)
	}
	f.log.Warn("poll failed", zap.String("object", f.what),
		zap.Int("attempt", f.count), zap.Error(err))
	return nil
}

func poll[T any](ctx context.Context, w *PollingBased, opts *WaitOptions, fails *failures, get func() (*T, error)) (*T, error) {
	var (
		start    = w.config.Now()
		interval = w.interval(opts)
		timeout  time.Duration
	)
	if opts != nil {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.polling.Context(), cancel)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextDone, err)
		}
		res, err := get()
		if err = fails.record(err); err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}

		next := interval
		if timeout > 0 {
			elapsed := w.config.Now().Sub(start)
			if elapsed >= timeout {
				return nil, nil
			}
			if remaining := timeout - elapsed; remaining < next {
				next = remaining
			}
		}
		if err := w.config.Sleep(ctx, next); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextDone, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isTransient returns true for errors worth retrying: everything except
// client-side HTTP errors and precondition failures.
func isTransient(err error) bool {
	var he *thorest.HTTPError
	if errors.As(err, &he) {
		return he.Temporary()
	}
	var te *thorerr.Error
	return !errors.As(err, &te)
}

// NewEventBased creates an instance of Waiter supporting websocket
// event-based awaiting. EventBased contains PollingBased under the hood and
// falls back to polling when subscription-based awaiting fails.
func NewEventBased(waiter RPCEventBased, config Config) *EventBased {
	return &EventBased{
		ws:      waiter,
		polling: NewPollingBased(waiter, config.PollConfig),
	}
}

// WaitForReceipt implements Waiter interface. The receipt is checked once
// after subscribing and then on every new block.
func (w *EventBased) WaitForReceipt(ctx context.Context, id string, opts *WaitOptions) (*result.Receipt, error) {
	if err := transaction.AssertValidID("waiter.WaitForReceipt", id); err != nil {
		return nil, err
	}
	get := func() (*result.Receipt, error) {
		return w.ws.GetTransactionReceipt(id, nil)
	}
	fails := newFailures("receipt", w.polling.config)
	res, remaining, err := waitEvents(ctx, w, opts, fails, get)
	if errors.Is(err, ErrMissedEvent) {
		return poll(ctx, w.polling, withTimeout(opts, remaining), fails, get)
	}
	return res, err
}

// WaitForBlock implements Waiter interface.
func (w *EventBased) WaitForBlock(ctx context.Context, number uint32, opts *WaitOptions) (*result.Block, error) {
	rev := strconv.FormatUint(uint64(number), 10)
	get := func() (*result.Block, error) {
		return w.ws.GetBlock(rev)
	}
	fails := newFailures("block", w.polling.config)
	res, remaining, err := waitEvents(ctx, w, opts, fails, get)
	if errors.Is(err, ErrMissedEvent) {
		return poll(ctx, w.polling, withTimeout(opts, remaining), fails, get)
	}
	return res, err
}

// withTimeout returns a copy of opts with the given timeout, zero timeout
// stays unlimited.
func withTimeout(opts *WaitOptions, timeout time.Duration) *WaitOptions {
	var o WaitOptions
	if opts != nil {
		o = *opts
	}
	if o.Timeout > 0 {
		o.Timeout = timeout
	}
	return &o
}

// waitEvents calls get after subscription and on every new block. It returns
// ErrMissedEvent along with the remaining timeout if the subscription can't
// be used, the caller falls back to polling then.
func waitEvents[T any](ctx context.Context, w *EventBased, opts *WaitOptions, fails *failures, get func() (*T, error)) (res *T, remaining time.Duration, waitErr error) {
	var (
		now     = w.polling.config.Now
		start   = now()
		timeout time.Duration
		expired <-chan time.Time
		rcvr    = make(chan *result.BlockMessage, 2)
	)
	if opts != nil {
		timeout = opts.Timeout
	}
	left := func() time.Duration {
		if timeout <= 0 {
			return 0
		}
		r := timeout - now().Sub(start)
		if r <= 0 {
			r = time.Nanosecond
		}
		return r
	}

	id, err := w.ws.ReceiveBlocks(nil, rcvr)
	if err != nil {
		w.polling.config.Logger.Debug("block subscription failed, falling back to polling", zap.Error(err))
		return nil, timeout, fmt.Errorf("%w: failed to subscribe for new blocks: %w", ErrMissedEvent, err)
	}
	defer func() {
		unsubErr := w.ws.Unsubscribe(id)
		if unsubErr != nil && waitErr == nil && res == nil {
			waitErr = fmt.Errorf("unsubscription error (id: %s): %w", id, unsubErr)
		}
	}()

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ws.Context(), cancel)
	defer stop()

	// There is a potential race between subscription and acceptance, so
	// do a polling check once _after_ the subscription.
	check := func() (*T, error) {
		r, err := get()
		if err = fails.record(err); err != nil {
			return nil, err
		}
		return r, nil
	}
	if res, err = check(); res != nil || err != nil {
		return res, 0, err
	}
	for {
		select {
		case _, ok := <-rcvr:
			if !ok {
				// We're toast, retry with polling.
				return nil, left(), ErrMissedEvent
			}
			if res, err = check(); res != nil || err != nil {
				return res, 0, err
			}
		case <-expired:
			return nil, 0, nil
		case <-ctx.Done():
			return nil, 0, fmt.Errorf("%w: %w", ErrContextDone, ctx.Err())
		}
	}
}
