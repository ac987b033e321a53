package dto

import (
	"time"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

type Discard struct {
	Motivo      lead.DiscardReason `json:"motivo" validate:"required"`
	Comentario  string             `json:"comentario" validate:"required"`
	DiscardedBy string             `json:"discardedBy,omitempty"`
	DiscardedAt *time.Time         `json:"discardedAt,omitempty"`
}

type Conversation struct {
	InboxID            string      `json:"inboxId" validate:"required"`
	Phone              string      `json:"phone" validate:"required"`
	DisplayName        string      `json:"displayName,omitempty"`
	Mode               lead.Mode   `json:"mode" validate:"required,oneof=BOT ADVISOR"`
	AssignedAgentID    string      `json:"assignedAgentId,omitempty"`
	Status             lead.Status `json:"status" validate:"required,oneof=NUEVO PENDIENTE EN_GESTION SEGUIMIENTO COTIZADO CIERRE DESCARTADO"`
	UnreadCount        int         `json:"unreadCount" validate:"gte=0"`
	LastMessagePreview string      `json:"lastMessagePreview,omitempty"`
	LastMessageAt      *time.Time  `json:"lastMessageAt,omitempty"`
	ClientID           string      `json:"clientId,omitempty"`
	Discard            *Discard    `json:"discard,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
	Version            int64       `json:"version" validate:"gte=0"`
}

type Message struct {
	ID             string           `json:"id" validate:"required"`
	ConversationID string           `json:"conversationId" validate:"required"`
	Direction      lead.Direction   `json:"direction" validate:"required,oneof=ENTRANTE SALIENTE"`
	SenderKind     lead.SenderKind  `json:"senderKind" validate:"required,oneof=CUSTOMER BOT AGENT"`
	SenderID       string           `json:"senderId,omitempty"`
	ContentKind    lead.ContentKind `json:"contentKind" validate:"required,oneof=text image video audio document sticker"`
	Content        string           `json:"content"`
	MediaURL       string           `json:"mediaUrl,omitempty" validate:"required_unless=ContentKind text"`
	CreatedAt      time.Time        `json:"createdAt"`
	ReadFlag       bool             `json:"readFlag"`
	ExternalID     string           `json:"externalId,omitempty"`
	DeliveryStatus string           `json:"deliveryStatus,omitempty" validate:"omitempty,oneof=pending sent failed"`
}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations" validate:"dive"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages" validate:"dive"`
}

type SendMessageRequest struct {
	Content     string           `json:"content" validate:"max=4096"`
	ContentKind lead.ContentKind `json:"contentKind,omitempty" validate:"omitempty,oneof=text image video audio document sticker"`
	MediaURL    string           `json:"mediaUrl,omitempty" validate:"omitempty,url"`
}

type BotMessageRequest struct {
	Content string `json:"content" validate:"required,max=4096"`
}

type ChangeStatusRequest struct {
	Status lead.Status `json:"status" validate:"required"`
}

type DiscardRequest struct {
	Motivo     lead.DiscardReason `json:"motivo" validate:"required"`
	Comentario string             `json:"comentario" validate:"required"`
}

type ConvertRequest struct {
	ClientID  string       `json:"clientId,omitempty" validate:"required_without=NewClient,excluded_with=NewClient"`
	NewClient *ClientInput `json:"newClient,omitempty" validate:"required_without=ClientID"`
}

type ConvertResponse struct {
	Conversation Conversation `json:"conversation"`
	Client       Client       `json:"client"`
}

const (
	EventConversationUpdated = "conversation.updated"
	EventMessageCreated      = "message.created"
	EventMessageUpdated      = "message.updated"
)

// Event is pushed to the notifications room after every server mutation.
type Event struct {
	Type         string        `json:"type" validate:"required"`
	InboxID      string        `json:"inboxId" validate:"required"`
	Version      int64         `json:"version"`
	Conversation *Conversation `json:"conversation,omitempty"`
	Message      *Message      `json:"message,omitempty"`
	At           time.Time     `json:"at"`
}

// ErrorResponse is the body of every non-2xx answer. Conflicts on mode or
// status also return the server's view of the conversation.
type ErrorResponse struct {
	Message      string        `json:"message"`
	Conversation *Conversation `json:"conversation,omitempty"`
}
