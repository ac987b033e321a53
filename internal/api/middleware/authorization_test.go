package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
)

type stubParser map[string]internaljwt.User

func (p stubParser) ParseToken(token string) (internaljwt.User, error) {
	user, ok := p[token]
	if !ok {
		return internaljwt.User{}, errors.New("bad token")
	}
	return user, nil
}

func TestAuthenticate(t *testing.T) {
	parser := stubParser{
		"advisor": {ID: "a1", Email: "a@corban.pe", Roles: []string{"ADVISOR"}},
		"bot":     {ID: "bot", Roles: []string{"BOT"}},
	}

	var seen authctx.Context
	next := func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authctx.From(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
	handler := Authenticate(parser, authctx.RoleAdvisor)(next)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer bot", http.StatusForbidden},
		{"ok", "bearer advisor", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	require.Equal(t, "a1", seen.UserID)
	assert.True(t, seen.HasRole(authctx.RoleAdvisor))
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://sgi.corban.pe"}))(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://sgi.corban.pe")
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://sgi.corban.pe", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
