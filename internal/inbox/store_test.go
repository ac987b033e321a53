package inbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

func TestRefreshDiffsByVersion(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo), conv("b", lead.ModeBot, lead.StatusNuevo))
	store := NewStore(backend, nil)
	ctx := context.Background()

	changes, err := store.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, ChangeAdded, c.Kind)
	}

	changes, err = store.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	backend.mutate("a", func(c *dto.Conversation) { c.UnreadCount = 1 })
	changes, err = store.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Kind)
	assert.Equal(t, int64(1), changes[0].Previous.Version)
	assert.Equal(t, int64(2), changes[0].Conversation.Version)
}

func TestListFilters(t *testing.T) {
	a := conv("a", lead.ModeBot, lead.StatusNuevo)
	a.DisplayName = "María Quispe"
	b := conv("b", lead.ModeAdvisor, lead.StatusCotizado)
	b.DisplayName = "Transportes Lima"
	store := NewStore(newFakeBackend(), nil)
	store.Put(a)
	store.Put(b)

	assert.Len(t, store.List(Filter{Tab: TabAll}), 2)
	assert.Len(t, store.List(Filter{}), 2)

	got := store.List(Filter{Tab: "cotizado"})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].InboxID)

	got = store.List(Filter{Search: "maría"})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].InboxID)

	got = store.List(Filter{Search: "519b"})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].InboxID)

	assert.Empty(t, store.List(Filter{Tab: TabAll, Search: "nadie"}))
}

func TestConcurrentRefreshesShareOneRequest(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	release := make(chan struct{})
	backend.block["list"] = release
	store := NewStore(backend, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = store.Refresh(context.Background()) }()
	<-backend.started
	go func() { defer wg.Done(); _, _ = store.Refresh(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, backend.count("list"))
}

func TestCancelledRefreshDoesNotFailOthers(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	release := make(chan struct{})
	backend.block["list"] = release
	store := NewStore(backend, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := store.Refresh(firstCtx)
		firstErr <- err
	}()
	<-backend.started

	type result struct {
		changes []Change
		err     error
	}
	second := make(chan result, 1)
	go func() {
		changes, err := store.Refresh(context.Background())
		second <- result{changes, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled refresh kept waiting")
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.changes, 1)
	assert.Equal(t, "a", res.changes[0].Conversation.InboxID)
	assert.Equal(t, 1, backend.count("list"))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.NoError(t, backend.listCtxErr)
	_, ok := store.Get("a")
	assert.True(t, ok)
}

func TestWatchReceivesChanges(t *testing.T) {
	store := NewStore(newFakeBackend(), nil)
	changes, cancel := store.Watch(4)
	defer cancel()

	store.Put(conv("a", lead.ModeBot, lead.StatusNuevo))
	select {
	case ch := <-changes:
		assert.Equal(t, ChangeAdded, ch.Kind)
		assert.Equal(t, "a", ch.Conversation.InboxID)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	store := NewStore(backend, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return backend.count("list") >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	_, ok := store.Get("a")
	assert.True(t, ok)
}

type chanFeed struct {
	events chan dto.Event
}

func (f chanFeed) Events() <-chan dto.Event { return f.events }
func (f chanFeed) Err() error               { return nil }

func TestFollowRefreshesOnEvents(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	store := NewStore(backend, nil)
	feed := chanFeed{events: make(chan dto.Event)}

	done := make(chan error, 1)
	go func() { done <- store.Follow(context.Background(), feed) }()

	require.Eventually(t, func() bool { return backend.count("list") == 1 }, time.Second, time.Millisecond)
	backend.mutate("a", func(c *dto.Conversation) { c.Mode = lead.ModeAdvisor })
	feed.events <- dto.Event{Type: dto.EventConversationUpdated, InboxID: "a", Version: 2}
	require.Eventually(t, func() bool {
		c, _ := store.Get("a")
		return c.Mode == lead.ModeAdvisor
	}, time.Second, time.Millisecond)

	close(feed.events)
	assert.NoError(t, <-done)
}
