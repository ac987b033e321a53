package inbox

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

const (
	defaultRoom = "inbox:notifications"
	// maxAttempts bounds the read-modify-write loop on version conflicts.
	maxAttempts = 3
)

// errNoChange lets a mutation report that the stored state already satisfies it.
var errNoChange = errors.New("no change")

type Service struct {
	repo     Repository
	now      func() time.Time
	notifier Notifier
	outbox   Outbox
	room     string
	log      *zap.Logger
}

func New(db *database.Database, opts ...Option) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now, opts...)
}

func NewWithRepository(repo Repository, now func() time.Time, opts ...Option) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{
		repo: repo,
		now:  now,
		room: defaultRoom,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireAgent(auth authctx.Context) error {
	if !auth.Valid() {
		return newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	if !auth.HasRole(authctx.RoleAdvisor, authctx.RoleSupervisor, authctx.RoleAdmin) {
		return newError(ErrorCodeForbidden, "agent role required", nil)
	}
	return nil
}

func (s *Service) load(ctx context.Context, inboxID string) (model.ConversationItem, error) {
	inboxID = strings.TrimSpace(inboxID)
	if inboxID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "conversation id is required", nil)
	}
	conversation, err := s.repo.GetConversation(ctx, inboxID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}
	return conversation, nil
}

// mutate applies fn to the latest stored conversation and saves the result
// under a version check. fn is re-run against fresh state when another writer
// got there first; it returns errNoChange when nothing needs writing.
func (s *Service) mutate(ctx context.Context, inboxID string, fn func(*model.ConversationItem) error) (model.ConversationItem, bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.load(ctx, inboxID)
		if err != nil {
			return model.ConversationItem{}, false, err
		}

		next := current
		if current.Discard != nil {
			d := *current.Discard
			next.Discard = &d
		}
		if err := fn(&next); err != nil {
			if errors.Is(err, errNoChange) {
				return current, false, nil
			}
			return model.ConversationItem{}, false, err
		}

		next.Version = current.Version + 1
		next.UpdatedAt = model.Timestamp(s.now())

		err = s.repo.SaveConversation(ctx, next, current.Version)
		if err == nil {
			s.conversationUpdated(ctx, next)
			return next, true, nil
		}
		if !errors.Is(err, ErrConflict) {
			return model.ConversationItem{}, false, newError(ErrorCodeInternal, "failed to update conversation", err)
		}
		lastErr = err
	}

	current, err := s.load(ctx, inboxID)
	if err != nil {
		return model.ConversationItem{}, false, err
	}
	return model.ConversationItem{}, false, conflictError("conversation was modified concurrently", lastErr, current)
}

func (s *Service) ListConversations(ctx context.Context, auth authctx.Context, filter ListFilter) ([]model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, newError(ErrorCodeValidation, "unknown status filter", nil)
	}
	if filter.Mode != "" && !filter.Mode.Valid() {
		return nil, newError(ErrorCodeValidation, "unknown mode filter", nil)
	}

	items, err := s.repo.ListConversations(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list conversations", err)
	}

	supervisor := auth.CanSupervise()
	out := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		held := item.Mode == lead.ModeAdvisor
		mine := held && item.AssignedAgentID == auth.UserID
		switch {
		case filter.Status != "" && item.Status != filter.Status:
		case filter.Mode != "" && item.Mode != filter.Mode:
		case filter.Mine && !mine:
		case !supervisor && held && !mine:
		default:
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastMessageAt != b.LastMessageAt {
			// most recent activity first; never-messaged threads last
			return a.LastMessageAt > b.LastMessageAt
		}
		return a.CreatedAt > b.CreatedAt
	})
	return out, nil
}

func (s *Service) GetConversation(ctx context.Context, auth authctx.Context, inboxID string) (model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ConversationItem{}, err
	}
	return s.load(ctx, inboxID)
}

func (s *Service) ListMessages(ctx context.Context, auth authctx.Context, inboxID string) (ListMessagesResult, error) {
	if err := requireAgent(auth); err != nil {
		return ListMessagesResult{}, err
	}
	conversation, err := s.load(ctx, inboxID)
	if err != nil {
		return ListMessagesResult{}, err
	}
	messages, err := s.repo.ListMessages(ctx, conversation.InboxID)
	if err != nil {
		return ListMessagesResult{}, newError(ErrorCodeInternal, "failed to list messages", err)
	}
	return ListMessagesResult{Conversation: conversation, Messages: messages}, nil
}

func (s *Service) MarkRead(ctx context.Context, auth authctx.Context, inboxID string) (model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ConversationItem{}, err
	}
	conversation, _, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		if c.UnreadCount == 0 {
			return errNoChange
		}
		c.UnreadCount = 0
		return nil
	})
	return conversation, err
}
