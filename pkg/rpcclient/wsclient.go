package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"go.uber.org/zap"
)

const (
	// Message limit for receiving side.
	wsReadLimit = 10 * 1024 * 1024

	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2
)

// subscription is a single websocket stream of new blocks.
type subscription struct {
	ws       *websocket.Conn
	rcvr     chan<- *result.BlockMessage
	shutdown chan struct{}
	done     chan struct{}
}

// ErrUnknownSubscription is returned by Unsubscribe for unknown IDs.
var ErrUnknownSubscription = errors.New("unknown subscription")

// wsEndpoint returns the websocket URL of the given route.
func (c *Client) wsEndpoint(path string, pos *common.Hash) string {
	u := *c.endpoint
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += path
	if pos != nil {
		u.RawQuery = "pos=" + pos.Hex()
	}
	return u.String()
}

// ReceiveBlocks subscribes to new blocks starting from the one after pos (or
// from the best block if pos is nil). Blocks are sent to rcvr until
// Unsubscribe is called with the returned ID. If the connection is lost
// rcvr is closed, it's never closed after Unsubscribe. Broken subscriptions
// still need to be unsubscribed.
func (c *Client) ReceiveBlocks(pos *common.Hash, rcvr chan<- *result.BlockMessage) (string, error) {
	if rcvr == nil {
		return "", errors.New("nil receiver")
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.DialTimeout)
	defer cancel()
	ws, resp, err := dialer.DialContext(ctx, c.wsEndpoint(thorest.BlockSubscription, pos), nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return "", fmt.Errorf("block subscription: HTTP %d: %w", resp.StatusCode, err)
		}
		return "", fmt.Errorf("block subscription: %w", err)
	}
	sub := &subscription{
		ws:       ws,
		rcvr:     rcvr,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	id := uuid.NewString()

	c.subsLock.Lock()
	c.subs[id] = sub
	c.subsLock.Unlock()

	go c.wsReader(id, sub)
	go c.wsPinger(sub)
	return id, nil
}

// Unsubscribe stops the subscription with the given ID. Nothing is sent to
// the subscription receiver after it returns.
func (c *Client) Unsubscribe(id string) error {
	c.subsLock.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.subsLock.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubscription, id)
	}
	close(sub.shutdown)
	_ = sub.ws.Close()
	<-sub.done
	return nil
}

func (c *Client) wsReader(id string, sub *subscription) {
	defer close(sub.done)
	sub.ws.SetReadLimit(wsReadLimit)
	sub.ws.SetPongHandler(func(string) error { return sub.ws.SetReadDeadline(time.Now().Add(wsPongLimit)) })
	for {
		msg := new(result.BlockMessage)
		_ = sub.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
		err := sub.ws.ReadJSON(msg)
		if err != nil {
			select {
			case <-sub.shutdown:
			default:
				// Timeout/connection loss/malformed message.
				c.log.Debug("block subscription broken", zap.String("id", id), zap.Error(err))
				_ = sub.ws.Close()
				close(sub.rcvr)
			}
			return
		}
		select {
		case sub.rcvr <- msg:
		case <-sub.shutdown:
			return
		}
	}
}

func (c *Client) wsPinger(sub *subscription) {
	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()
	for {
		select {
		case <-sub.shutdown:
			return
		case <-sub.done:
			return
		case <-pingTicker.C:
			if err := sub.ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteLimit)); err != nil {
				return
			}
		}
	}
}
