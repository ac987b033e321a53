package inbox

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
)

const maxContentLength = 4096

// validateContent normalises a message body; maxLen 0 disables the length check.
func validateContent(params SendParams, maxLen int) (SendParams, error) {
	params.Content = strings.TrimSpace(params.Content)
	params.MediaURL = strings.TrimSpace(params.MediaURL)
	if params.ContentKind == "" {
		params.ContentKind = lead.ContentText
	}
	switch {
	case !params.ContentKind.Valid():
		return params, newError(ErrorCodeValidation, "unknown content kind", nil)
	case params.ContentKind == lead.ContentText && params.Content == "":
		return params, newError(ErrorCodeValidation, "message content is required", nil)
	case params.ContentKind.RequiresMedia() && params.MediaURL == "":
		return params, newError(ErrorCodeValidation, "media url is required for media messages", nil)
	case maxLen > 0 && utf8.RuneCountInString(params.Content) > maxLen:
		return params, newError(ErrorCodeValidation, "message content is too long", nil)
	}
	return params, nil
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SendMessage posts an agent message. The caller must hold the conversation.
func (s *Service) SendMessage(ctx context.Context, auth authctx.Context, inboxID string, params SendParams) (MessageResult, error) {
	if err := requireAgent(auth); err != nil {
		return MessageResult{}, err
	}
	params, err := validateContent(params, maxContentLength)
	if err != nil {
		return MessageResult{}, err
	}

	conversation, err := s.load(ctx, inboxID)
	if err != nil {
		return MessageResult{}, err
	}
	if !conversation.Mode.ComposerEnabled() {
		return MessageResult{}, conflictError("take the chat before sending messages", nil, conversation)
	}
	if conversation.AssignedAgentID != auth.UserID {
		return MessageResult{}, newError(ErrorCodeForbidden, "conversation is held by another agent", nil)
	}

	return s.appendOutbound(ctx, conversation, lead.SenderAgent, auth.UserID, params)
}

// SendBotMessage posts a message on behalf of the bot while it holds the conversation.
func (s *Service) SendBotMessage(ctx context.Context, auth authctx.Context, inboxID, content string) (MessageResult, error) {
	if !auth.Valid() {
		return MessageResult{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	if !auth.HasRole(authctx.RoleBot) {
		return MessageResult{}, newError(ErrorCodeForbidden, "bot role required", nil)
	}
	params, err := validateContent(SendParams{Content: content, ContentKind: lead.ContentText}, maxContentLength)
	if err != nil {
		return MessageResult{}, err
	}

	conversation, err := s.load(ctx, inboxID)
	if err != nil {
		return MessageResult{}, err
	}
	if conversation.Mode != lead.ModeBot {
		return MessageResult{}, conflictError("conversation is handled by an agent", nil, conversation)
	}

	return s.appendOutbound(ctx, conversation, lead.SenderBot, auth.UserID, params)
}

func (s *Service) appendOutbound(ctx context.Context, conversation model.ConversationItem, sender lead.SenderKind, senderID string, params SendParams) (MessageResult, error) {
	message := model.MessageItem{
		ConversationID: conversation.InboxID,
		MessageID:      newMessageID(),
		Direction:      lead.DirectionOutbound,
		SenderKind:     sender,
		SenderID:       senderID,
		ContentKind:    params.ContentKind,
		Content:        params.Content,
		MediaURL:       params.MediaURL,
		CreatedAt:      model.Timestamp(s.now()),
		DeliveryStatus: model.DeliveryPending,
	}
	if err := s.repo.AppendMessage(ctx, message); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}
	observeMessage(message.Direction, message.SenderKind)

	updated, _, err := s.mutate(ctx, conversation.InboxID, func(c *model.ConversationItem) error {
		c.LastMessagePreview = lead.Preview(message.ContentKind, message.Content)
		c.LastMessageAt = message.CreatedAt
		return nil
	})
	if err != nil {
		return MessageResult{}, err
	}
	s.messageEvent(ctx, dto.EventMessageCreated, updated, message)

	if s.outbox != nil {
		job := outbox.Job{
			MessageID:      message.MessageID,
			ConversationID: message.ConversationID,
			Phone:          updated.Phone,
			ContentKind:    message.ContentKind,
			Content:        message.Content,
			MediaURL:       message.MediaURL,
			EnqueuedAt:     s.now().UTC(),
		}
		if err := s.outbox.Push(ctx, job); err != nil {
			s.log.Error("queue outbound message failed", zap.String("messageId", message.MessageID), zap.Error(err))
			message.DeliveryStatus = model.DeliveryFailed
			if saveErr := s.repo.SaveMessage(ctx, message); saveErr != nil {
				s.log.Error("mark message failed", zap.String("messageId", message.MessageID), zap.Error(saveErr))
			}
			s.messageEvent(ctx, dto.EventMessageUpdated, updated, message)
			return MessageResult{}, newError(ErrorCodeInternal, "failed to queue message for delivery", err)
		}
	}

	return MessageResult{Conversation: updated, Message: message}, nil
}

// IngestInbound records a customer message, creating the conversation on the
// first message from a phone. Redelivered WhatsApp messages are ignored.
func (s *Service) IngestInbound(ctx context.Context, params InboundParams) (IngestResult, error) {
	phone := lead.NormalizePhone(params.Phone)
	if phone == "" {
		return IngestResult{}, newError(ErrorCodeValidation, "phone is required", nil)
	}
	sendParams, err := validateContent(SendParams{
		Content:     params.Content,
		ContentKind: params.ContentKind,
		MediaURL:    params.MediaURL,
	}, 0)
	if err != nil {
		return IngestResult{}, err
	}

	externalID := strings.TrimSpace(params.ExternalID)
	if externalID != "" {
		existing, err := s.repo.FindMessageByExternalID(ctx, externalID)
		if err == nil {
			conversation, err := s.load(ctx, existing.ConversationID)
			if err != nil {
				return IngestResult{}, err
			}
			return IngestResult{Conversation: conversation, Message: existing, Duplicate: true}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return IngestResult{}, newError(ErrorCodeInternal, "failed to look up message", err)
		}
	}

	inboxID := model.InboxIDForPhone(phone)
	created := false
	if _, err := s.repo.GetConversation(ctx, inboxID); errors.Is(err, ErrNotFound) {
		now := model.Timestamp(s.now())
		conversation := model.ConversationItem{
			InboxID:     inboxID,
			Phone:       phone,
			DisplayName: strings.TrimSpace(params.DisplayName),
			Mode:        lead.ModeBot,
			Status:      lead.StatusNuevo,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}
		switch err := s.repo.CreateConversation(ctx, conversation); {
		case err == nil:
			created = true
			s.log.Info("conversation created", zap.String("inboxId", inboxID))
		case errors.Is(err, ErrConflict):
			// created concurrently by another bridge event
		default:
			return IngestResult{}, newError(ErrorCodeInternal, "failed to create conversation", err)
		}
	} else if err != nil {
		return IngestResult{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}

	message := model.MessageItem{
		ConversationID: inboxID,
		MessageID:      newMessageID(),
		Direction:      lead.DirectionInbound,
		SenderKind:     lead.SenderCustomer,
		ContentKind:    sendParams.ContentKind,
		Content:        sendParams.Content,
		MediaURL:       sendParams.MediaURL,
		CreatedAt:      model.Timestamp(s.now()),
		ExternalID:     externalID,
	}
	if err := s.repo.AppendMessage(ctx, message); err != nil {
		return IngestResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}
	observeMessage(message.Direction, message.SenderKind)

	displayName := strings.TrimSpace(params.DisplayName)
	conversation, _, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		c.UnreadCount++
		c.LastMessagePreview = lead.Preview(message.ContentKind, message.Content)
		c.LastMessageAt = message.CreatedAt
		if c.DisplayName == "" && displayName != "" {
			c.DisplayName = displayName
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}
	s.messageEvent(ctx, dto.EventMessageCreated, conversation, message)

	return IngestResult{Conversation: conversation, Message: message, Created: created}, nil
}

// RecordDelivery stores the bridge's send result for an outbound message.
func (s *Service) RecordDelivery(ctx context.Context, inboxID, messageID, externalID string, sendErr error) (model.MessageItem, error) {
	message, err := s.repo.GetMessage(ctx, inboxID, messageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.MessageItem{}, newError(ErrorCodeNotFound, "message not found", err)
		}
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to fetch message", err)
	}
	if message.Direction != lead.DirectionOutbound {
		return model.MessageItem{}, newError(ErrorCodeValidation, "only outbound messages have delivery status", nil)
	}

	if sendErr != nil {
		message.DeliveryStatus = model.DeliveryFailed
	} else {
		message.DeliveryStatus = model.DeliverySent
		message.ExternalID = externalID
	}
	if err := s.repo.SaveMessage(ctx, message); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to update message", err)
	}
	deliveries.WithLabelValues(string(message.DeliveryStatus)).Inc()

	s.messageEvent(ctx, dto.EventMessageUpdated, model.ConversationItem{}, message)
	return message, nil
}

// RecordReadReceipt flags outbound messages as read by the customer. Unknown
// ids are skipped; the count of updated messages is returned.
func (s *Service) RecordReadReceipt(ctx context.Context, externalIDs []string) (int, error) {
	updated := 0
	for _, externalID := range externalIDs {
		message, err := s.repo.FindMessageByExternalID(ctx, externalID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, newError(ErrorCodeInternal, "failed to look up message", err)
		}
		if message.Direction != lead.DirectionOutbound || message.Read {
			continue
		}
		message.Read = true
		if err := s.repo.SaveMessage(ctx, message); err != nil {
			return updated, newError(ErrorCodeInternal, "failed to update message", err)
		}
		updated++
		s.messageEvent(ctx, dto.EventMessageUpdated, model.ConversationItem{}, message)
	}
	return updated, nil
}
