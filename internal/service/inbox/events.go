package inbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
)

// Notifier fans an event out to the websocket servers.
type Notifier interface {
	Publish(ctx context.Context, roomID string, payload interface{}) error
}

// Outbox queues outbound messages for the WhatsApp bridge.
type Outbox interface {
	Push(ctx context.Context, job outbox.Job) error
}

type Option func(*Service)

func WithNotifier(n Notifier, room string) Option {
	return func(s *Service) {
		s.notifier = n
		if room != "" {
			s.room = room
		}
	}
}

func WithOutbox(o Outbox) Option {
	return func(s *Service) {
		s.outbox = o
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log.Named("inbox")
		}
	}
}

func (s *Service) conversationUpdated(ctx context.Context, conversation model.ConversationItem) {
	c := ToConversationDTO(conversation)
	s.publish(ctx, dto.Event{
		Type:         dto.EventConversationUpdated,
		InboxID:      conversation.InboxID,
		Version:      conversation.Version,
		Conversation: &c,
	})
}

func (s *Service) messageEvent(ctx context.Context, kind string, conversation model.ConversationItem, message model.MessageItem) {
	m := ToMessageDTO(message)
	s.publish(ctx, dto.Event{
		Type:    kind,
		InboxID: message.ConversationID,
		Version: conversation.Version,
		Message: &m,
	})
}

// publish never fails the caller; clients still converge through polling.
func (s *Service) publish(ctx context.Context, event dto.Event) {
	if s.notifier == nil {
		return
	}
	event.At = s.now().UTC()
	if err := s.notifier.Publish(ctx, s.room, event); err != nil {
		s.log.Warn("publish event failed",
			zap.String("type", event.Type),
			zap.String("inboxId", event.InboxID),
			zap.Error(err),
		)
	}
}
