package inbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/client"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeUpdated
)

type Change struct {
	Kind         ChangeKind
	Conversation dto.Conversation
	// Previous is set for updates.
	Previous *dto.Conversation
}

// TabAll is the status tab that shows every conversation.
const TabAll = "TODOS"

type Filter struct {
	Tab    string
	Search string
}

// Store is the client-side cache of the conversation list. It is refreshed
// by polling (Run) or by a push feed (Follow); readers use the same API
// either way.
type Store struct {
	lister Lister
	log    *zap.Logger
	group  singleflight.Group

	mu       sync.RWMutex
	byID     map[string]dto.Conversation
	order    []string
	watchers map[int]chan Change
	nextID   int
}

func NewStore(lister Lister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		lister:   lister,
		log:      log.Named("store"),
		byID:     make(map[string]dto.Conversation),
		watchers: make(map[int]chan Change),
	}
}

const refreshTimeout = 30 * time.Second

// Refresh pulls the list and returns what changed since the last known
// state. Concurrent calls share one request; the shared request does not
// inherit the first caller's cancellation, each caller stops waiting on
// its own ctx.
func (s *Store) Refresh(ctx context.Context) ([]Change, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		list, err := s.lister.ListConversations(callCtx, client.ListOptions{})
		if err != nil {
			return nil, err
		}
		return s.replace(list), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Change), nil
	}
}

func (s *Store) replace(list []dto.Conversation) []Change {
	s.mu.Lock()
	var changes []Change
	order := make([]string, 0, len(list))
	byID := make(map[string]dto.Conversation, len(list))
	for _, c := range list {
		order = append(order, c.InboxID)
		byID[c.InboxID] = c
		if ch, ok := diff(s.byID, c); ok {
			changes = append(changes, ch)
		}
	}
	s.byID = byID
	s.order = order
	s.mu.Unlock()

	s.notify(changes)
	return changes
}

func diff(known map[string]dto.Conversation, c dto.Conversation) (Change, bool) {
	prev, ok := known[c.InboxID]
	if !ok {
		return Change{Kind: ChangeAdded, Conversation: c}, true
	}
	if prev.Version == c.Version && prev.Mode == c.Mode && prev.Status == c.Status {
		return Change{}, false
	}
	return Change{Kind: ChangeUpdated, Conversation: c, Previous: &prev}, true
}

// Put stores a single conversation, e.g. a mutation result or an optimistic
// update. The latest Put wins.
func (s *Store) Put(c dto.Conversation) {
	s.mu.Lock()
	ch, changed := diff(s.byID, c)
	if _, known := s.byID[c.InboxID]; !known {
		s.order = append([]string{c.InboxID}, s.order...)
	}
	s.byID[c.InboxID] = c
	s.mu.Unlock()

	if changed {
		s.notify([]Change{ch})
	}
}

func (s *Store) Get(id string) (dto.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// List returns the cached conversations in server order, filtered by status
// tab and by a case-insensitive search over display name and phone.
func (s *Store) List(f Filter) []dto.Conversation {
	tab := strings.ToUpper(strings.TrimSpace(f.Tab))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dto.Conversation, 0, len(s.order))
	for _, id := range s.order {
		c := s.byID[id]
		if tab != "" && tab != TabAll && lead.Status(tab) != c.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.DisplayName), search) &&
			!strings.Contains(c.Phone, search) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Watch returns a channel of changes. Slow watchers miss changes rather than
// block the store; cancel releases the channel.
func (s *Store) Watch(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		for _, c := range changes {
			select {
			case w <- c:
			default:
				s.log.Debug("watcher full, dropping change", zap.String("inboxId", c.Conversation.InboxID))
			}
		}
	}
}

// Run polls every interval until ctx is done. The list therefore reflects
// server state within one interval.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s.refreshLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refreshLogged(ctx)
		}
	}
}

// Follow refreshes on every pushed event until ctx is done or the feed ends.
func (s *Store) Follow(ctx context.Context, feed Feed) error {
	s.refreshLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-feed.Events():
			if !ok {
				return feed.Err()
			}
			s.log.Debug("event", zap.String("type", ev.Type), zap.String("inboxId", ev.InboxID), zap.Int64("version", ev.Version))
			s.refreshLogged(ctx)
		}
	}
}

func (s *Store) refreshLogged(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("refresh failed", zap.Error(err))
	}
}
