// Package entropy consumes the external randomness beacon. The beacon
// generates the draws and publishes a verifiable proof reference; this
// client only receives them. Generation and proof verification stay on the
// provider side.
package entropy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Draw is one published random value together with the pointer to its
// externally verifiable proof. Both are opaque strings to this system.
type Draw struct {
	RandomValue    string `json:"random_value"`
	ProofReference string `json:"proof_reference"`
	Round          uint64 `json:"round"`
}

// Client is a thin connection to the beacon feed.
type Client struct {
	url  string
	conn *websocket.Conn
}

func NewClient(url string) *Client {
	return &Client{url: strings.TrimSpace(url)}
}

func (c *Client) Connect(ctx context.Context) error {
	if c == nil || c.url == "" {
		return fmt.Errorf("entropy: feed url is empty")
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Client) Close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

// Read blocks for the next published draw.
func (c *Client) Read(ctx context.Context) (Draw, error) {
	if c == nil || c.conn == nil {
		return Draw{}, fmt.Errorf("entropy: not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Draw{}, err
	}
	var d Draw
	if err := json.Unmarshal(data, &d); err != nil {
		return Draw{}, fmt.Errorf("entropy: malformed draw: %w", err)
	}
	if d.RandomValue == "" {
		return Draw{}, fmt.Errorf("entropy: draw without random value")
	}
	return d, nil
}

// StreamOptions configure the reconnecting feed loop.
type StreamOptions struct {
	URL        string
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *zap.Logger
}

// Stream keeps a feed connection alive, handing every draw to the
// callback. Disconnects reconnect with capped, jittered backoff; the loop
// exits only on context cancellation.
type Stream struct {
	opts StreamOptions
}

func NewStream(opts StreamOptions) *Stream {
	if opts.BackoffMin == 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &Stream{opts: opts}
}

func (s *Stream) Run(ctx context.Context, onDraw func(Draw)) error {
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := NewClient(s.opts.URL)
		if err := client.Connect(ctx); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("entropy feed connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("entropy feed connected")
		}
		backoff = s.opts.BackoffMin

		err := s.consume(ctx, client, onDraw)
		_ = client.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("entropy feed dropped", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *Stream) consume(ctx context.Context, client *Client, onDraw func(Draw)) error {
	for {
		draw, err := client.Read(ctx)
		if err != nil {
			return err
		}
		if onDraw != nil {
			onDraw(draw)
		}
	}
}

func sleepWithJitter(ctx context.Context, d time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d + jitter):
		return nil
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
