package websocket

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(id, room string, buffer int) *WSClient {
	return &WSClient{ID: id, RoomID: room, Message: make(chan *WSMessage, buffer)}
}

func TestHubBroadcastsToRoomMembersOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	a := newTestClient("a", "inbox:notifications", 1)
	b := newTestClient("b", "other", 1)
	hub.Register <- a
	hub.Register <- b

	hub.Broadcast <- &WSMessage{Content: `{"type":"conversation.updated"}`, RoomID: "inbox:notifications"}

	select {
	case msg := <-a.Message:
		assert.Equal(t, `{"type":"conversation.updated"}`, msg.Content)
	case <-time.After(time.Second):
		t.Fatal("expected a message for room member")
	}
	assert.Empty(t, b.Message)

	cancel()
	<-stopped

	_, open := <-a.Message
	assert.False(t, open)
}

func TestHubDropsSlowConsumers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	slow := newTestClient("slow", "room", 0)
	hub.Register <- slow
	hub.Broadcast <- &WSMessage{Content: "x", RoomID: "room"}

	require.Eventually(t, func() bool {
		select {
		case _, open := <-slow.Message:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestStoppedHubDoesNotBlockClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := newTestClient("live", "inbox:notifications", 1)
	require.True(t, hub.join(live))
	cancel()
	<-stopped

	left := make(chan struct{})
	go func() {
		hub.leave(live)
		assert.False(t, hub.join(newTestClient("late", "inbox:notifications", 1)))
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://sgi.corban.pe"})
	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, check(req("")))
	assert.True(t, check(req("https://sgi.corban.pe")))
	assert.False(t, check(req("https://evil.example")))
}
