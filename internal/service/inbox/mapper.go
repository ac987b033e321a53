package inbox

import (
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

func ToConversationDTO(item model.ConversationItem) dto.Conversation {
	out := dto.Conversation{
		InboxID:            item.InboxID,
		Phone:              item.Phone,
		DisplayName:        item.DisplayName,
		Mode:               item.Mode,
		AssignedAgentID:    item.AssignedAgentID,
		Status:             item.Status,
		UnreadCount:        item.UnreadCount,
		LastMessagePreview: item.LastMessagePreview,
		ClientID:           item.ClientID,
		Version:            item.Version,
	}
	out.CreatedAt, _ = model.ParseTimestamp(item.CreatedAt)
	out.UpdatedAt, _ = model.ParseTimestamp(item.UpdatedAt)
	if item.LastMessageAt != "" {
		if t, err := model.ParseTimestamp(item.LastMessageAt); err == nil {
			out.LastMessageAt = &t
		}
	}
	if item.Discard != nil {
		d := &dto.Discard{
			Motivo:      item.Discard.Reason,
			Comentario:  item.Discard.Comment,
			DiscardedBy: item.Discard.DiscardedBy,
		}
		if t, err := model.ParseTimestamp(item.Discard.DiscardedAt); err == nil && !t.IsZero() {
			d.DiscardedAt = &t
		}
		out.Discard = d
	}
	return out
}

func ToConversationDTOs(items []model.ConversationItem) []dto.Conversation {
	out := make([]dto.Conversation, 0, len(items))
	for _, item := range items {
		out = append(out, ToConversationDTO(item))
	}
	return out
}

func ToMessageDTO(item model.MessageItem) dto.Message {
	out := dto.Message{
		ID:             item.MessageID,
		ConversationID: item.ConversationID,
		Direction:      item.Direction,
		SenderKind:     item.SenderKind,
		SenderID:       item.SenderID,
		ContentKind:    item.ContentKind,
		Content:        item.Content,
		MediaURL:       item.MediaURL,
		ReadFlag:       item.Read,
		ExternalID:     item.ExternalID,
		DeliveryStatus: string(item.DeliveryStatus),
	}
	out.CreatedAt, _ = model.ParseTimestamp(item.CreatedAt)
	return out
}

func ToMessageDTOs(items []model.MessageItem) []dto.Message {
	out := make([]dto.Message, 0, len(items))
	for _, item := range items {
		out = append(out, ToMessageDTO(item))
	}
	return out
}
