package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
)

// TokenParser validates an access token.
type TokenParser interface {
	ParseToken(token string) (internaljwt.User, error)
}

// BearerToken returns the token of an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// Identity turns a validated token into the caller identity passed to services.
func Identity(parser TokenParser, token string) (authctx.Context, error) {
	user, err := parser.ParseToken(token)
	if err != nil {
		return authctx.Context{}, err
	}
	return authctx.Context{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  authctx.ParseRoles(user.Roles),
	}, nil
}

// Authenticate requires a valid bearer token. When roles are given the caller
// must hold at least one of them.
func Authenticate(parser TokenParser, roles ...authctx.Role) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			identity, err := Identity(parser, token)
			if err != nil || !identity.Valid() {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if len(roles) > 0 && !identity.HasRole(roles...) {
				deny(w, http.StatusForbidden, "Forbidden")
				return
			}

			next(w, r.WithContext(authctx.With(r.Context(), identity)))
		}
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
