package model

import (
	"fmt"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// InboxIDForPhone derives the stable conversation id of a WhatsApp thread.
func InboxIDForPhone(phone string) string {
	return fmt.Sprintf("wa-%s", phone)
}

type DiscardItem struct {
	Reason      lead.DiscardReason `dynamodbav:"motivo"`
	Comment     string             `dynamodbav:"comentario"`
	DiscardedBy string             `dynamodbav:"discardedBy"`
	DiscardedAt string             `dynamodbav:"discardedAt"`
}

type ConversationItem struct {
	InboxID            string       `dynamodbav:"inboxId"`
	Phone              string       `dynamodbav:"phone"`
	DisplayName        string       `dynamodbav:"displayName,omitempty"`
	Mode               lead.Mode    `dynamodbav:"mode"`
	AssignedAgentID    string       `dynamodbav:"assignedAgentId,omitempty"`
	Status             lead.Status  `dynamodbav:"status"`
	UnreadCount        int          `dynamodbav:"unreadCount"`
	LastMessagePreview string       `dynamodbav:"lastMessagePreview,omitempty"`
	LastMessageAt      string       `dynamodbav:"lastMessageAt,omitempty"`
	ClientID           string       `dynamodbav:"clientId,omitempty"`
	Discard            *DiscardItem `dynamodbav:"discard,omitempty"`
	CreatedAt          string       `dynamodbav:"createdAt"`
	UpdatedAt          string       `dynamodbav:"updatedAt"`
	Version            int64        `dynamodbav:"version"`
}

// MessageItem ids are UUIDv7 and double as the sort key, so a query on the
// conversation returns messages in creation order.
type MessageItem struct {
	ConversationID string           `dynamodbav:"conversationId"`
	MessageID      string           `dynamodbav:"messageId"`
	Direction      lead.Direction   `dynamodbav:"direction"`
	SenderKind     lead.SenderKind  `dynamodbav:"senderKind"`
	SenderID       string           `dynamodbav:"senderId,omitempty"`
	ContentKind    lead.ContentKind `dynamodbav:"contentKind"`
	Content        string           `dynamodbav:"content"`
	MediaURL       string           `dynamodbav:"mediaUrl,omitempty"`
	CreatedAt      string           `dynamodbav:"createdAt"`
	Read           bool             `dynamodbav:"readFlag"`
	ExternalID     string           `dynamodbav:"externalId,omitempty"`
	DeliveryStatus DeliveryStatus   `dynamodbav:"deliveryStatus,omitempty"`
}
