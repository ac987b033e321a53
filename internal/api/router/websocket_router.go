package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/endpoints"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/websocket"
)

func NotificationRoutes(ctx context.Context, prefix string, handler *websocket.Handler, room string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		notificationEndpoints := endpoints.NewNotificationEndpoints(ctx, handler, s.Tokens(), room)
		mux.HandleFunc(strings.TrimRight(prefix, "/")+"/notifications", s.MakeHTTPHandleFunc(notificationEndpoints.Notifications))
	}
}
