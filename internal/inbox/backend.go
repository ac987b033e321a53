package inbox

import (
	"context"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/client"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

// Lister is what the Store needs to pull the conversation list.
type Lister interface {
	ListConversations(ctx context.Context, opts client.ListOptions) ([]dto.Conversation, error)
}

// Backend is the subset of *client.Client a Session drives.
type Backend interface {
	Lister
	GetConversation(ctx context.Context, id string) (dto.Conversation, error)
	ListMessages(ctx context.Context, id string) ([]dto.Message, error)
	SendMessage(ctx context.Context, id string, req dto.SendMessageRequest) (dto.Message, error)
	MarkRead(ctx context.Context, id string) (dto.Conversation, error)
	TakeChat(ctx context.Context, id string) (dto.Conversation, error)
	ReleaseChat(ctx context.Context, id string) (dto.Conversation, error)
	ChangeStatus(ctx context.Context, id string, status lead.Status) (dto.Conversation, error)
	Discard(ctx context.Context, id string, reason lead.DiscardReason, comment string) (dto.Conversation, error)
	Convert(ctx context.Context, id string, req dto.ConvertRequest) (dto.ConvertResponse, error)
}

// Feed is a push source of server events, e.g. *client.Subscription.
type Feed interface {
	Events() <-chan dto.Event
	Err() error
}

var (
	_ Backend = (*client.Client)(nil)
	_ Feed    = (*client.Subscription)(nil)
)
