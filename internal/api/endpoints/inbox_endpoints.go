package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	crmservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/crm"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
)

type InboxEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	Conversation(http.ResponseWriter, *http.Request) error
	BotMessages(http.ResponseWriter, *http.Request) error
}

type InboxPaths struct {
	// ConversationPrefix ends with a slash, e.g. /api/inbox/v1/conversations/.
	ConversationPrefix    string
	BotConversationPrefix string
}

type inboxEndpoints struct {
	service *inboxservice.Service
	paths   InboxPaths
}

func NewInboxEndpoints(service *inboxservice.Service, paths InboxPaths) InboxEndpoints {
	return &inboxEndpoints{service: service, paths: paths}
}

func (h *inboxEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListConversations,
	})
}

// Conversation dispatches /conversations/{id} and its action sub-resources.
func (h *inboxEndpoints) Conversation(w http.ResponseWriter, r *http.Request) error {
	parts, err := splitPath(r.URL.Path, h.paths.ConversationPrefix)
	if err != nil {
		return err
	}
	id := parts[0]

	if len(parts) == 1 {
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error { return h.handleGet(w, r, id) },
		})
	}
	if len(parts) > 2 {
		return &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid conversation path: %s", r.URL.Path)}
	}

	post := func(fn func(http.ResponseWriter, *http.Request, string) error) error {
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return fn(w, r, id) },
		})
	}

	switch parts[1] {
	case "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:  func(w http.ResponseWriter, r *http.Request) error { return h.handleListMessages(w, r, id) },
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleSendMessage(w, r, id) },
		})
	case "read":
		return post(h.handleMarkRead)
	case "take":
		return post(h.handleTake)
	case "release":
		return post(h.handleRelease)
	case "status":
		return post(h.handleChangeStatus)
	case "discard":
		return post(h.handleDiscard)
	case "convert":
		return post(h.handleConvert)
	}
	return &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("unknown conversation action: %s", parts[1])}
}

func (h *inboxEndpoints) BotMessages(w http.ResponseWriter, r *http.Request) error {
	parts, err := splitPath(r.URL.Path, h.paths.BotConversationPrefix)
	if err != nil {
		return err
	}
	if len(parts) != 2 || parts[1] != "messages" {
		return &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid bot path: %s", r.URL.Path)}
	}
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleBotMessage(w, r, parts[0]) },
	})
}

func (h *inboxEndpoints) handleListConversations(w http.ResponseWriter, r *http.Request) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()
	var filter inboxservice.ListFilter
	if raw := strings.TrimSpace(q.Get("status")); raw != "" && !strings.EqualFold(raw, "TODOS") {
		status, ok := lead.ParseStatus(raw)
		if !ok {
			return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Unknown status filter", ErrorLog: fmt.Errorf("status filter %q", raw)}
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(q.Get("mode")); raw != "" {
		mode, ok := lead.ParseMode(raw)
		if !ok {
			return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Unknown mode filter", ErrorLog: fmt.Errorf("mode filter %q", raw)}
		}
		filter.Mode = mode
	}
	if raw := strings.TrimSpace(q.Get("mine")); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid mine parameter", ErrorLog: err}
		}
		filter.Mine = mine
	}

	items, err := h.service.ListConversations(r.Context(), auth, filter)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.ListConversationsResponse{Conversations: inboxservice.ToConversationDTOs(items)})
}

func (h *inboxEndpoints) handleGet(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	item, err := h.service.GetConversation(r.Context(), auth, id)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, inboxservice.ToConversationDTO(item))
}

func (h *inboxEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	result, err := h.service.ListMessages(r.Context(), auth, id)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.ListMessagesResponse{Messages: inboxservice.ToMessageDTOs(result.Messages)})
}

func (h *inboxEndpoints) handleSendMessage(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	result, err := h.service.SendMessage(r.Context(), auth, id, inboxservice.SendParams{
		Content:     req.Content,
		ContentKind: req.ContentKind,
		MediaURL:    req.MediaURL,
	})
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusCreated, inboxservice.ToMessageDTO(result.Message))
}

func (h *inboxEndpoints) handleBotMessage(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.BotMessageRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	result, err := h.service.SendBotMessage(r.Context(), auth, id, req.Content)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusCreated, inboxservice.ToMessageDTO(result.Message))
}

func (h *inboxEndpoints) handleMarkRead(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	item, err := h.service.MarkRead(r.Context(), auth, id)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, inboxservice.ToConversationDTO(item))
}

func (h *inboxEndpoints) handleTake(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	item, err := h.service.TakeChat(r.Context(), auth, id)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, inboxservice.ToConversationDTO(item))
}

func (h *inboxEndpoints) handleRelease(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	item, err := h.service.ReleaseChat(r.Context(), auth, id)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, inboxservice.ToConversationDTO(item))
}

func (h *inboxEndpoints) handleChangeStatus(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	status, ok := lead.ParseStatus(string(req.Status))
	if !ok {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Unknown status", ErrorLog: lead.ErrUnknownStatus}
	}
	item, err := h.service.ChangeStatus(r.Context(), auth, id, status)
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, inboxservice.ToConversationDTO(item))
}

func (h *inboxEndpoints) handleDiscard(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.DiscardRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	item, err := h.service.Discard(r.Context(), auth, id, lead.Discard{Reason: req.Motivo, Comment: req.Comentario})
	if err != nil {
		return inboxServiceError(err)
	}
	return WriteJSON(w, http.StatusOK, inboxservice.ToConversationDTO(item))
}

func (h *inboxEndpoints) handleConvert(w http.ResponseWriter, r *http.Request, id string) error {
	auth, err := identity(r)
	if err != nil {
		return err
	}
	var req dto.ConvertRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	params := inboxservice.ConvertParams{ClientID: req.ClientID}
	if req.NewClient != nil {
		params.NewClient = &lead.ClientIdentity{
			BusinessName: req.NewClient.BusinessName,
			TaxID:        req.NewClient.TaxID,
			ContactName:  req.NewClient.ContactName,
			Phone:        req.NewClient.Phone,
			Email:        req.NewClient.Email,
		}
	}

	result, err := h.service.Convert(r.Context(), auth, id, params)
	if err != nil {
		return inboxServiceError(err)
	}
	status := http.StatusOK
	if result.ClientCreated {
		status = http.StatusCreated
	}
	return WriteJSON(w, status, dto.ConvertResponse{
		Conversation: inboxservice.ToConversationDTO(result.Conversation),
		Client:       crmservice.ToClientDTO(result.Client),
	})
}

func inboxServiceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *inboxservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("inbox service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case inboxservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case inboxservice.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case inboxservice.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case inboxservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case inboxservice.ErrorCodeConflict:
		httpErr := &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
		if svcErr.Conversation != nil {
			current := inboxservice.ToConversationDTO(*svcErr.Conversation)
			httpErr.Conversation = &current
		}
		return httpErr
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
