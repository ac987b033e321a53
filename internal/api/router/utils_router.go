package router

import (
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/endpoints"
)

func UtilsRoutes(prefix, service string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		utilsEndpoints := endpoints.NewUtilsEndpoints(service)
		mux.HandleFunc(strings.TrimRight(prefix, "/")+"/health", s.MakeHTTPHandleFunc(utilsEndpoints.Health))
	}
}
