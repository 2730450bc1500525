package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/gorilla/websocket"
)

// SocketStream reads server-pushed events over a websocket and reconnects
// when the connection drops. Events are delivered in arrival order on a
// single channel, which is closed when Run returns.
type SocketStream struct {
	url     string
	apiKey  string
	dialer  *websocket.Dialer
	backoff Backoff
	log     logging.Logger
	events  chan Event
}

type StreamOption func(*SocketStream)

func WithBackoff(b Backoff) StreamOption {
	return func(s *SocketStream) { s.backoff = b }
}

func WithDialer(d *websocket.Dialer) StreamOption {
	return func(s *SocketStream) { s.dialer = d }
}

func NewSocketStream(socketURL, apiKey string, log logging.Logger, opts ...StreamOption) *SocketStream {
	s := &SocketStream{
		url:     socketURL,
		apiKey:  apiKey,
		dialer:  websocket.DefaultDialer,
		backoff: DefaultBackoff(),
		log:     log,
		events:  make(chan Event, 64),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SocketStream) Events() <-chan Event { return s.events }

// Run keeps the stream connected until ctx is done.
func (s *SocketStream) Run(ctx context.Context) error {
	defer close(s.events)

	attempt := 0
	for {
		conn, err := s.dial(ctx)
		if err == nil {
			attempt = 0
			s.log.Info(ctx, "socket connected", "url", s.url)
			err = s.readLoop(ctx, conn)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := s.backoff.Delay(attempt)
		attempt++
		s.log.Warn(ctx, "socket disconnected", "error", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *SocketStream) dial(ctx context.Context) (*websocket.Conn, error) {
	h := http.Header{}
	h.Set(common.AuthHeaderName, "Bearer "+s.apiKey)
	conn, _, err := s.dialer.DialContext(ctx, s.url, h)
	return conn, err
}

func (s *SocketStream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := DecodeFrame(data)
		if errors.Is(err, ErrUnknownEvent) {
			s.log.Debug(ctx, "socket event skipped", "error", err)
			continue
		}
		if err != nil {
			s.log.Warn(ctx, "socket frame rejected", "error", err)
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
