package inbox

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

// TakeChat hands a conversation from the bot to the calling agent. Taking a
// conversation the caller already holds succeeds without a write.
func (s *Service) TakeChat(ctx context.Context, auth authctx.Context, inboxID string) (model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ConversationItem{}, err
	}

	var taken *model.ConversationItem
	conversation, changed, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		if c.Mode == lead.ModeAdvisor {
			if c.AssignedAgentID == auth.UserID {
				return errNoChange
			}
			snapshot := *c
			taken = &snapshot
			return errAlreadyTaken
		}
		c.Mode = lead.ModeAdvisor
		c.AssignedAgentID = auth.UserID
		return nil
	})
	if errors.Is(err, errAlreadyTaken) && taken != nil {
		return model.ConversationItem{}, conflictError("conversation already taken by another agent", err, *taken)
	}
	if err != nil {
		return model.ConversationItem{}, err
	}
	if changed {
		handoffs.WithLabelValues("take").Inc()
		s.log.Info("chat taken", zap.String("inboxId", conversation.InboxID), zap.String("agentId", auth.UserID))
	}
	return conversation, nil
}

var errAlreadyTaken = errors.New("conversation held by another agent")

// ReleaseChat returns a conversation to the bot. Only the holder or a
// supervisor may release; releasing a bot conversation is a no-op.
func (s *Service) ReleaseChat(ctx context.Context, auth authctx.Context, inboxID string) (model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ConversationItem{}, err
	}

	conversation, changed, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		if c.Mode == lead.ModeBot {
			return errNoChange
		}
		if c.AssignedAgentID != auth.UserID && !auth.CanSupervise() {
			return newError(ErrorCodeForbidden, "conversation is held by another agent", nil)
		}
		c.Mode = lead.ModeBot
		c.AssignedAgentID = ""
		return nil
	})
	if err != nil {
		return model.ConversationItem{}, err
	}
	if changed {
		handoffs.WithLabelValues("release").Inc()
		s.log.Info("chat released", zap.String("inboxId", conversation.InboxID), zap.String("agentId", auth.UserID))
	}
	return conversation, nil
}

// ChangeStatus applies a plain status change. DESCARTADO and CIERRE need
// their own flows (Discard and Convert) and are rejected here.
func (s *Service) ChangeStatus(ctx context.Context, auth authctx.Context, inboxID string, status lead.Status) (model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ConversationItem{}, err
	}
	if !status.Valid() {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "unknown status", lead.ErrUnknownStatus)
	}

	var from lead.Status
	conversation, changed, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		if c.Status == status {
			return errNoChange
		}
		if err := lead.CheckDirectChange(c.Status, status); err != nil {
			return s.transitionError(err, *c)
		}
		from = c.Status
		c.Status = status
		return nil
	})
	if err != nil {
		return model.ConversationItem{}, err
	}
	if changed {
		observeTransition(from, status)
	}
	return conversation, nil
}

func (s *Service) transitionError(err error, current model.ConversationItem) error {
	switch {
	case errors.Is(err, lead.ErrTerminalStatus):
		return conflictError("lead is already closed or discarded", err, current)
	case errors.Is(err, lead.ErrDiscardFlowRequired):
		return newError(ErrorCodeValidation, "use the discard flow to discard a lead", err)
	case errors.Is(err, lead.ErrClientLinkRequired):
		return newError(ErrorCodeValidation, "use the convert flow to close a lead", err)
	default:
		return newError(ErrorCodeValidation, "invalid status transition", err)
	}
}

func (s *Service) Discard(ctx context.Context, auth authctx.Context, inboxID string, discard lead.Discard) (model.ConversationItem, error) {
	if err := requireAgent(auth); err != nil {
		return model.ConversationItem{}, err
	}
	discard.Reason = lead.DiscardReason(strings.TrimSpace(string(discard.Reason)))
	discard.Comment = strings.TrimSpace(discard.Comment)
	if err := discard.Validate(); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "motivo and comentario are required", err)
	}

	var from lead.Status
	conversation, _, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		if _, err := lead.CheckTransition(c.Status, lead.StatusDescartado); err != nil {
			return s.transitionError(err, *c)
		}
		from = c.Status
		c.Status = lead.StatusDescartado
		c.Discard = &model.DiscardItem{
			Reason:      discard.Reason,
			Comment:     discard.Comment,
			DiscardedBy: auth.UserID,
			DiscardedAt: model.Timestamp(s.now()),
		}
		return nil
	})
	if err != nil {
		return model.ConversationItem{}, err
	}
	observeTransition(from, lead.StatusDescartado)
	return conversation, nil
}

// Convert closes a lead as a CRM client. Either an existing client id or a new
// client identity is accepted; a new identity whose tax id is already
// registered links the existing client instead.
func (s *Service) Convert(ctx context.Context, auth authctx.Context, inboxID string, params ConvertParams) (ConvertResult, error) {
	if err := requireAgent(auth); err != nil {
		return ConvertResult{}, err
	}

	clientID := strings.TrimSpace(params.ClientID)
	if (clientID == "") == (params.NewClient == nil) {
		return ConvertResult{}, newError(ErrorCodeValidation, "exactly one of clientId or newClient is required", nil)
	}

	if clientID != "" {
		client, err := s.repo.GetClient(ctx, clientID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ConvertResult{}, newError(ErrorCodeNotFound, "client not found", err)
			}
			return ConvertResult{}, newError(ErrorCodeInternal, "failed to fetch client", err)
		}
		return s.linkClient(ctx, inboxID, client)
	}

	identity := params.NewClient.Normalize()
	if err := identity.Validate(); err != nil {
		return ConvertResult{}, newError(ErrorCodeValidation, "invalid client data", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		existing, err := s.repo.FindClientByTaxID(ctx, identity.TaxID)
		if err == nil {
			return s.linkClient(ctx, inboxID, existing)
		}
		if !errors.Is(err, ErrNotFound) {
			return ConvertResult{}, newError(ErrorCodeInternal, "failed to look up client", err)
		}

		current, err := s.load(ctx, inboxID)
		if err != nil {
			return ConvertResult{}, err
		}
		if _, err := lead.CheckTransition(current.Status, lead.StatusCierre); err != nil {
			return ConvertResult{}, s.transitionError(err, current)
		}

		now := model.Timestamp(s.now())
		client := model.ClientItem{
			ClientID:      uuid.NewString(),
			BusinessName:  identity.BusinessName,
			TaxID:         identity.TaxID,
			Phone:         identity.Phone,
			ContactName:   identity.ContactName,
			Email:         identity.Email,
			SourceInboxID: current.InboxID,
			CreatedBy:     auth.UserID,
			CreatedAt:     now,
		}
		if client.Phone == "" {
			client.Phone = current.Phone
		}

		next := current
		next.Status = lead.StatusCierre
		next.ClientID = client.ClientID
		next.Version = current.Version + 1
		next.UpdatedAt = now

		err = s.repo.ConvertWithNewClient(ctx, next, current.Version, client)
		if err == nil {
			observeTransition(current.Status, lead.StatusCierre)
			s.conversationUpdated(ctx, next)
			s.log.Info("lead converted",
				zap.String("inboxId", next.InboxID),
				zap.String("clientId", client.ClientID),
				zap.Bool("clientCreated", true),
			)
			return ConvertResult{Conversation: next, Client: client, ClientCreated: true}, nil
		}
		if !errors.Is(err, ErrConflict) {
			return ConvertResult{}, newError(ErrorCodeInternal, "failed to convert lead", err)
		}
		lastErr = err
	}

	current, err := s.load(ctx, inboxID)
	if err != nil {
		return ConvertResult{}, err
	}
	return ConvertResult{}, conflictError("conversation was modified concurrently", lastErr, current)
}

func (s *Service) linkClient(ctx context.Context, inboxID string, client model.ClientItem) (ConvertResult, error) {
	var from lead.Status
	conversation, _, err := s.mutate(ctx, inboxID, func(c *model.ConversationItem) error {
		if _, err := lead.CheckTransition(c.Status, lead.StatusCierre); err != nil {
			return s.transitionError(err, *c)
		}
		from = c.Status
		c.Status = lead.StatusCierre
		c.ClientID = client.ClientID
		return nil
	})
	if err != nil {
		return ConvertResult{}, err
	}
	observeTransition(from, lead.StatusCierre)
	s.log.Info("lead converted",
		zap.String("inboxId", conversation.InboxID),
		zap.String("clientId", client.ClientID),
		zap.Bool("clientCreated", false),
	)
	return ConvertResult{Conversation: conversation, Client: client}, nil
}
