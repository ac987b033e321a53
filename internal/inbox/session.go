package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/client"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

const composerNotice = "The bot is handling this conversation. Take the chat to reply."

// Composer describes whether the message box can be used.
type Composer struct {
	Enabled bool
	Notice  string
	// ReactivateAvailable is always false: reactivating a conversation after
	// the 48h WhatsApp window is not supported.
	ReactivateAvailable bool
}

type action string

const (
	actionSend    action = "send"
	actionTake    action = "take"
	actionRelease action = "release"
	actionStatus  action = "status"
	actionDiscard action = "discard"
	actionConvert action = "convert"
)

type inflightKey struct {
	inboxID string
	action  action
}

// Session is one agent's view of the inbox: the selected conversation, its
// timeline and the actions on it.
type Session struct {
	backend  Backend
	store    *Store
	agentID  string
	resolver MediaResolver
	log      *zap.Logger

	mu         sync.Mutex
	selected   string
	generation uint64
	cancel     context.CancelFunc
	messages   []dto.Message
	readSent   bool
	readAt     *time.Time
	discard    *DiscardForm
	closing    bool
	inflight   map[inflightKey]struct{}
}

type SessionOption func(*Session)

func WithMediaResolver(r MediaResolver) SessionOption {
	return func(s *Session) { s.resolver = r }
}

func WithSessionLogger(log *zap.Logger) SessionOption {
	return func(s *Session) { s.log = log.Named("session") }
}

// NewSession binds a session to the calling agent.
func NewSession(backend Backend, store *Store, agentID string, opts ...SessionOption) *Session {
	s := &Session{
		backend:  backend,
		store:    store,
		agentID:  agentID,
		log:      zap.NewNop(),
		inflight: make(map[inflightKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Messages returns the timeline of the selected conversation in server order.
func (s *Session) Messages() []dto.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.Message(nil), s.messages...)
}

func (s *Session) Timeline(ctx context.Context) []Entry {
	return BuildTimeline(ctx, s.Messages(), s.resolver)
}

// Select makes id the current conversation, fetches its history and marks
// it read when it has unread messages. A response that arrives after
// another Select is dropped and reported as ErrStaleSelection.
func (s *Session) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.selected = id
	s.messages = nil
	s.readSent = false
	s.readAt = nil
	s.discard = nil
	s.closing = false
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	conversation, ok := s.store.Get(id)
	if !ok {
		fetched, err := s.backend.GetConversation(fetchCtx, id)
		if err != nil {
			return s.staleOr(gen, err)
		}
		s.store.Put(fetched)
		conversation = fetched
	}

	if err := s.loadTimeline(fetchCtx, gen, id); err != nil {
		return err
	}
	if latest, ok := s.store.Get(id); ok {
		conversation = latest
	}
	s.maybeMarkRead(ctx, gen, conversation)
	return nil
}

// Deselect clears the selection and cancels pending fetches.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deselectLocked()
}

// deselectIf clears the selection only while id is still selected by the
// Select call numbered gen; a late response must not clear a newer one.
func (s *Session) deselectIf(gen uint64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.selected != id {
		return false
	}
	s.deselectLocked()
	return true
}

func (s *Session) deselectLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.selected = ""
	s.messages = nil
	s.discard = nil
	s.closing = false
}

func (s *Session) current() (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return 0, "", ErrNoSelection
	}
	return s.generation, s.selected, nil
}

func (s *Session) staleOr(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrStaleSelection
	}
	return err
}

func (s *Session) loadTimeline(ctx context.Context, gen uint64, id string) error {
	messages, err := s.backend.ListMessages(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log.Debug("dropping stale timeline", zap.String("inboxId", id))
		return ErrStaleSelection
	}
	if err != nil {
		return err
	}
	s.messages = messages
	return nil
}

// Reload refetches the selected timeline.
func (s *Session) Reload(ctx context.Context) error {
	gen, id, err := s.current()
	if err != nil {
		return err
	}
	return s.loadTimeline(ctx, gen, id)
}

// maybeMarkRead sends at most one mark-read per selection until the unread
// counter is seen at zero or a newer message arrives. Failures are logged.
func (s *Session) maybeMarkRead(ctx context.Context, gen uint64, c dto.Conversation) {
	s.mu.Lock()
	if gen != s.generation || c.InboxID != s.selected {
		s.mu.Unlock()
		return
	}
	if c.UnreadCount == 0 {
		s.readSent = false
		s.readAt = c.LastMessageAt
		s.mu.Unlock()
		return
	}
	if s.readSent && !after(c.LastMessageAt, s.readAt) {
		s.mu.Unlock()
		return
	}
	s.readSent = true
	s.readAt = c.LastMessageAt
	s.mu.Unlock()

	updated, err := s.backend.MarkRead(ctx, c.InboxID)
	if err != nil {
		s.log.Warn("mark read failed", zap.String("inboxId", c.InboxID), zap.Error(err))
		return
	}
	s.store.Put(updated)
}

func after(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

// HandleChange reacts to store changes for the selected conversation: a new
// message refetches the timeline and re-evaluates the mark-read rule.
func (s *Session) HandleChange(ctx context.Context, ch Change) {
	s.mu.Lock()
	gen := s.generation
	selected := s.selected
	s.mu.Unlock()
	if selected == "" || ch.Conversation.InboxID != selected {
		return
	}

	if ch.Previous != nil && after(ch.Conversation.LastMessageAt, ch.Previous.LastMessageAt) {
		if err := s.loadTimeline(ctx, gen, selected); err != nil && !errors.Is(err, ErrStaleSelection) {
			s.log.Warn("timeline refresh failed", zap.String("inboxId", selected), zap.Error(err))
		}
	}
	s.maybeMarkRead(ctx, gen, ch.Conversation)
}

// Composer reports whether the selected conversation accepts agent messages.
func (s *Session) Composer() Composer {
	_, id, err := s.current()
	if err != nil {
		return Composer{Notice: "Select a conversation."}
	}
	c, ok := s.store.Get(id)
	if ok && c.Mode.ComposerEnabled() {
		return Composer{Enabled: true}
	}
	return Composer{Notice: composerNotice}
}

func (s *Session) begin(id string, a action) (func(), error) {
	key := inflightKey{inboxID: id, action: a}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, ErrInFlight
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

func (s *Session) selectedConversation() (dto.Conversation, error) {
	_, id, err := s.current()
	if err != nil {
		return dto.Conversation{}, err
	}
	c, ok := s.store.Get(id)
	if !ok {
		return dto.Conversation{}, ErrUnknownInbox
	}
	return c, nil
}

// Send posts an agent message. The timeline is refetched after the server
// confirms it; nothing is inserted optimistically.
func (s *Session) Send(ctx context.Context, req dto.SendMessageRequest) (dto.Message, error) {
	c, err := s.selectedConversation()
	if err != nil {
		return dto.Message{}, err
	}
	if !c.Mode.ComposerEnabled() {
		return dto.Message{}, ErrComposerDisabled
	}
	done, err := s.begin(c.InboxID, actionSend)
	if err != nil {
		return dto.Message{}, err
	}
	defer done()

	msg, err := s.backend.SendMessage(ctx, c.InboxID, req)
	if err != nil {
		s.applyRejection(err, c)
		return dto.Message{}, err
	}
	if err := s.Reload(ctx); err != nil && !errors.Is(err, ErrStaleSelection) {
		s.log.Warn("timeline refresh after send failed", zap.String("inboxId", c.InboxID), zap.Error(err))
	}
	return msg, nil
}

// TakeChat claims the selected conversation for this agent.
func (s *Session) TakeChat(ctx context.Context) (dto.Conversation, error) {
	c, err := s.selectedConversation()
	if err != nil {
		return dto.Conversation{}, err
	}
	if c.Mode == lead.ModeAdvisor && c.AssignedAgentID == s.agentID {
		return c, nil
	}
	optimistic := c
	optimistic.Mode = lead.ModeAdvisor
	optimistic.AssignedAgentID = s.agentID
	return s.optimistic(ctx, c, optimistic, actionTake, func(ctx context.Context) (dto.Conversation, error) {
		return s.backend.TakeChat(ctx, c.InboxID)
	})
}

// ReleaseChat hands the selected conversation back to the bot.
func (s *Session) ReleaseChat(ctx context.Context) (dto.Conversation, error) {
	c, err := s.selectedConversation()
	if err != nil {
		return dto.Conversation{}, err
	}
	if c.Mode == lead.ModeBot {
		return c, nil
	}
	optimistic := c
	optimistic.Mode = lead.ModeBot
	optimistic.AssignedAgentID = ""
	return s.optimistic(ctx, c, optimistic, actionRelease, func(ctx context.Context) (dto.Conversation, error) {
		return s.backend.ReleaseChat(ctx, c.InboxID)
	})
}

// ChangeStatus applies a dropdown status change. DESCARTADO opens the
// discard form and CIERRE the close-as-client form instead of calling the
// server; both report the lead error naming the sub-flow.
func (s *Session) ChangeStatus(ctx context.Context, status lead.Status) (dto.Conversation, error) {
	c, err := s.selectedConversation()
	if err != nil {
		return dto.Conversation{}, err
	}
	if status == c.Status {
		return c, nil
	}

	switch err := lead.CheckDirectChange(c.Status, status); {
	case errors.Is(err, lead.ErrDiscardFlowRequired):
		s.mu.Lock()
		s.discard = &DiscardForm{InboxID: c.InboxID}
		s.mu.Unlock()
		return c, err
	case errors.Is(err, lead.ErrClientLinkRequired):
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		return c, err
	case err != nil:
		return c, err
	}

	optimistic := c
	optimistic.Status = status
	return s.optimistic(ctx, c, optimistic, actionStatus, func(ctx context.Context) (dto.Conversation, error) {
		return s.backend.ChangeStatus(ctx, c.InboxID, status)
	})
}

// optimistic shows next immediately, then either stores the server's answer
// or reverts to the last known-good state (or the state the server sent
// with its rejection).
func (s *Session) optimistic(ctx context.Context, known, next dto.Conversation, a action, call func(context.Context) (dto.Conversation, error)) (dto.Conversation, error) {
	done, err := s.begin(known.InboxID, a)
	if err != nil {
		return known, err
	}
	defer done()

	s.store.Put(next)
	updated, err := call(ctx)
	if err != nil {
		return s.applyRejection(err, known), err
	}
	s.store.Put(updated)
	return updated, nil
}

func (s *Session) applyRejection(err error, known dto.Conversation) dto.Conversation {
	if server, ok := client.ServerConversation(err); ok && server.InboxID == known.InboxID {
		s.store.Put(server)
		return server
	}
	s.store.Put(known)
	return known
}

// StartDiscard opens the discard form for the selected conversation.
func (s *Session) StartDiscard() (DiscardForm, error) {
	c, err := s.selectedConversation()
	if err != nil {
		return DiscardForm{}, err
	}
	if c.Status.Terminal() {
		return DiscardForm{}, lead.ErrTerminalStatus
	}
	form := DiscardForm{InboxID: c.InboxID}
	s.mu.Lock()
	s.discard = &form
	s.mu.Unlock()
	return form, nil
}

func (s *Session) PendingDiscard() (DiscardForm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discard == nil {
		return DiscardForm{}, false
	}
	return *s.discard, true
}

// CancelDiscard drops the form without touching the conversation.
func (s *Session) CancelDiscard() {
	s.mu.Lock()
	s.discard = nil
	s.mu.Unlock()
}

// ConfirmDiscard validates the form locally, discards the lead and clears
// the selection. An incomplete form makes no network call.
func (s *Session) ConfirmDiscard(ctx context.Context, form DiscardForm) (dto.Conversation, error) {
	if err := form.Validate(); err != nil {
		return dto.Conversation{}, err
	}
	gen, _, err := s.current()
	if err != nil {
		return dto.Conversation{}, err
	}
	c, err := s.selectedConversation()
	if err != nil {
		return dto.Conversation{}, err
	}
	if form.InboxID == "" {
		form.InboxID = c.InboxID
	}
	if form.InboxID != c.InboxID {
		return dto.Conversation{}, ErrStaleSelection
	}
	if c.Status.Terminal() {
		return c, lead.ErrTerminalStatus
	}

	done, err := s.begin(c.InboxID, actionDiscard)
	if err != nil {
		return c, err
	}
	defer done()

	updated, err := s.backend.Discard(ctx, c.InboxID, form.Reason, form.Comment)
	if err != nil {
		return s.applyRejection(err, c), err
	}
	s.store.Put(updated)
	s.deselectIf(gen, c.InboxID)
	return updated, nil
}

// Closing reports whether the close-as-client form is open.
func (s *Session) Closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Session) CancelClose() {
	s.mu.Lock()
	s.closing = false
	s.mu.Unlock()
}

// CloseAsClient links the selected lead to a CRM client and moves it to
// CIERRE in one server call. Invalid client data makes no network call.
func (s *Session) CloseAsClient(ctx context.Context, form ClientForm) (dto.ConvertResponse, error) {
	if err := form.Validate(); err != nil {
		return dto.ConvertResponse{}, err
	}
	gen, _, err := s.current()
	if err != nil {
		return dto.ConvertResponse{}, err
	}
	c, err := s.selectedConversation()
	if err != nil {
		return dto.ConvertResponse{}, err
	}
	if c.Status.Terminal() {
		return dto.ConvertResponse{}, lead.ErrTerminalStatus
	}

	done, err := s.begin(c.InboxID, actionConvert)
	if err != nil {
		return dto.ConvertResponse{}, err
	}
	defer done()

	res, err := s.backend.Convert(ctx, c.InboxID, form.request())
	if err != nil {
		s.applyRejection(err, c)
		return dto.ConvertResponse{}, err
	}
	s.store.Put(res.Conversation)
	s.mu.Lock()
	if s.generation == gen && s.selected == c.InboxID {
		s.closing = false
	}
	s.mu.Unlock()
	return res, nil
}
