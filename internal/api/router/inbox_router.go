package router

import (
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/endpoints"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/middleware"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	crmservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/crm"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
)

var agentRoles = []authctx.Role{authctx.RoleAdvisor, authctx.RoleSupervisor, authctx.RoleAdmin}

// InboxRoutes mounts the agent inbox and CRM client API under prefix
// (e.g. /api/inbox/v1).
func InboxRoutes(prefix string, inbox *inboxservice.Service, crm *crmservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		auth := middleware.Authenticate(s.Tokens(), agentRoles...)

		inboxEndpoints := endpoints.NewInboxEndpoints(inbox, endpoints.InboxPaths{
			ConversationPrefix: base + "/conversations/",
		})
		mux.HandleFunc(base+"/conversations", s.MakeHTTPHandleFunc(inboxEndpoints.Conversations, auth))
		mux.HandleFunc(base+"/conversations/", s.MakeHTTPHandleFunc(inboxEndpoints.Conversation, auth))

		clientEndpoints := endpoints.NewClientEndpoints(crm, base+"/clients/")
		mux.HandleFunc(base+"/clients", s.MakeHTTPHandleFunc(clientEndpoints.Clients, auth))
		mux.HandleFunc(base+"/clients/", s.MakeHTTPHandleFunc(clientEndpoints.Client, auth))
	}
}

// BotRoutes mounts the endpoints the external bot calls while it holds a conversation.
func BotRoutes(prefix string, inbox *inboxservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		botEndpoints := endpoints.NewInboxEndpoints(inbox, endpoints.InboxPaths{
			BotConversationPrefix: base + "/conversations/",
		})
		mux.HandleFunc(base+"/conversations/", s.MakeHTTPHandleFunc(botEndpoints.BotMessages, middleware.Authenticate(s.Tokens(), authctx.RoleBot)))
	}
}
