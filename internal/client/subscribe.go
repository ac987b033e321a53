package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
)

// Subscription is a push feed of inbox events read from the notifications
// websocket. Events is closed when the connection ends; Err then reports why.
type Subscription struct {
	conn   *websocket.Conn
	events chan dto.Event
	stop   chan struct{}
	log    *zap.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func (c *Client) notificationsURL() (string, error) {
	base := c.wsURL
	if base == "" {
		base = c.baseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + WSPrefix + "/notifications"
	u.RawQuery = url.Values{"token": {c.Token()}}.Encode()
	return u.String(), nil
}

// Subscribe opens the notifications feed. Cancelling ctx closes it.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	target, err := c.notificationsURL()
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "subscribe", Err: err}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &Error{Kind: KindRejected, Op: "subscribe", Status: resp.StatusCode, Message: resp.Status, Err: err}
		}
		return nil, &Error{Kind: KindTransport, Op: "subscribe", Err: err}
	}

	s := &Subscription{
		conn:   conn,
		events: make(chan dto.Event, 16),
		stop:   make(chan struct{}),
		log:    c.log.Named("subscription"),
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.stop:
		}
	}()
	return s, nil
}

func (s *Subscription) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stop:
			default:
				s.setErr(&Error{Kind: KindTransport, Op: "subscribe", Err: err})
				s.Close()
			}
			return
		}

		var event dto.Event
		if err := json.Unmarshal(data, &event); err != nil {
			s.log.Warn("undecodable event", zap.Error(err))
			continue
		}
		if err := dto.Validate(&event); err != nil {
			s.log.Warn("event failed validation", zap.Strings("fields", dto.FieldErrors(err)))
			continue
		}

		select {
		case s.events <- event:
		case <-s.stop:
			return
		}
	}
}

func (s *Subscription) Events() <-chan dto.Event {
	return s.events
}

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
