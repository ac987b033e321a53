package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/middleware"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/websocket"
)

type NotificationEndpoints interface {
	Notifications(http.ResponseWriter, *http.Request) error
}

type notificationEndpoints struct {
	// ctx bounds the Redis subscriptions, which outlive any single request.
	ctx     context.Context
	handler *websocket.Handler
	tokens  middleware.TokenParser
	room    string
}

func NewNotificationEndpoints(ctx context.Context, handler *websocket.Handler, tokens middleware.TokenParser, room string) NotificationEndpoints {
	return &notificationEndpoints{ctx: ctx, handler: handler, tokens: tokens, room: room}
}

// Notifications upgrades to a websocket joined to the shared inbox room.
// Browsers cannot set headers on websocket requests, so the token may come
// from the query string.
func (h *notificationEndpoints) Notifications(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil || h.tokens == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("notification websocket handler missing"),
		}
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = middleware.BearerToken(r)
	}
	if token == "" {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Missing token",
			ErrorLog:   fmt.Errorf("notification websocket missing token"),
		}
	}

	auth, err := middleware.Identity(h.tokens, token)
	if err != nil || !auth.Valid() {
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: fmt.Errorf("notification websocket: %v", err)}
	}
	if !auth.HasRole(authctx.RoleAdvisor, authctx.RoleSupervisor, authctx.RoleAdmin) {
		return &HTTPError{StatusCode: http.StatusForbidden, Message: "Forbidden", ErrorLog: fmt.Errorf("notification websocket: user %s has no agent role", auth.UserID)}
	}

	h.handler.EnsureRoom(h.ctx, h.room)
	h.handler.JoinRoom(w, r, h.room, auth.UserID)
	return nil
}
