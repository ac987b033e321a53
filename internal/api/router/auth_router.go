package router

import (
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/endpoints"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/middleware"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	authsvc "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/auth"
)

func AuthRoutes(prefix string, service *authsvc.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		authEndpoints := endpoints.NewAuthEndpoints(service)
		mux.HandleFunc(base+"/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc(base+"/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
		mux.HandleFunc(base+"/logout", s.MakeHTTPHandleFunc(authEndpoints.Logout))
		mux.HandleFunc(base+"/me", s.MakeHTTPHandleFunc(authEndpoints.Me, middleware.Authenticate(s.Tokens())))
		mux.HandleFunc(base+"/agents", s.MakeHTTPHandleFunc(authEndpoints.Agents, middleware.Authenticate(s.Tokens(), authctx.RoleAdmin)))
	}
}
