package telemetryfeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"telemetry-collector/internal/core"
	"telemetry-collector/internal/domain"
	"telemetry-collector/internal/logger"
	"telemetry-collector/internal/pkg/clock"
)

const (
	writeWait = 10 * time.Second
	// AddedNode bursts right after subscribing carry the whole chain.
	maxMessageSize = 64 << 20
)

type Client struct {
	url    string
	warmup time.Duration
	dialer *websocket.Dialer
	clock  clock.Clock
	log    logger.Logger
}

type Option func(*Client)

func WithClock(c clock.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(cl *Client) { cl.dialer = d }
}

func NewClient(url string, warmup time.Duration, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		url:    url,
		warmup: warmup,
		dialer: websocket.DefaultDialer,
		clock:  clock.Real(),
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the feed and subscribes to the chain identified by
// genesisHash. The returned session must be closed.
func (c *Client) Connect(ctx context.Context, genesisHash string) (core.FeedSession, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing telemetry feed %s: %w", c.url, err)
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, Subscribe(genesisHash)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", genesisHash, err)
	}

	s := &Session{
		conn:   conn,
		table:  NewTable(c.clock, c.log),
		warmup: c.warmup,
		clock:  c.clock,
		log:    c.log.With("genesis", genesisHash),
		done:   make(chan struct{}),
	}
	s.group.Go(s.readPump)

	c.log.Info("telemetry feed connected", "url", c.url, "genesis", genesisHash)
	return s, nil
}

// Session is one live subscription. A single goroutine reads the feed
// into the node table until the session is closed or the feed ends.
type Session struct {
	conn   *websocket.Conn
	table  *Table
	warmup time.Duration
	clock  clock.Clock
	log    logger.Logger

	group     errgroup.Group
	done      chan struct{}
	err       error // written before done is closed
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Nodes waits out the warm-up so the feed can populate the table, then
// returns its snapshot. A feed that ends cleanly short-circuits the wait.
func (s *Session) Nodes(ctx context.Context) ([]domain.NodeRecord, error) {
	select {
	case <-s.clock.After(s.warmup):
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
	default:
	}

	nodes := s.table.Snapshot()
	s.log.Debug("feed snapshot taken", "nodes", len(nodes))
	return nodes, nil
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))

		if err := s.conn.Close(); err != nil {
			s.log.Debug("closing feed connection", "error", err)
		}
		s.closeErr = s.group.Wait()
	})
	return s.closeErr
}

func (s *Session) readPump() error {
	defer close(s.done)

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("telemetry feed closed by server")
				return nil
			}
			s.err = fmt.Errorf("reading telemetry feed: %w", err)
			return s.err
		}

		msgs, err := DecodeMessages(frame)
		if err != nil {
			s.log.Warn("dropping feed frame", "error", err)
			continue
		}

		for _, msg := range msgs {
			if err := s.table.Apply(msg); err != nil {
				s.log.Warn("dropping feed message", "action", int(msg.Action), "error", err)
			}
		}
	}
}
