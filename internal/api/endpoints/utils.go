package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method not allowed: %s %s", r.Method, r.URL.Path),
	}
}

// decodeBody reads a JSON body into v and runs its validate tags.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %T: %w", v, err),
		}
	}
	if err := dto.Validate(v); err != nil {
		msg := "Invalid request payload"
		if fields := dto.FieldErrors(err); len(fields) > 0 {
			msg = "Invalid fields: " + strings.Join(fields, ", ")
		}
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    msg,
			ErrorLog:   fmt.Errorf("validate %T: %w", v, err),
		}
	}
	return nil
}

// identity returns the caller set by the auth middleware.
func identity(r *http.Request) (authctx.Context, error) {
	auth, ok := authctx.From(r.Context())
	if !ok || !auth.Valid() {
		return authctx.Context{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   errors.New("request reached handler without identity"),
		}
	}
	return auth, nil
}

// splitPath returns the segments after prefix, or a 404 when the path does
// not start with it.
func splitPath(path, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("route not configured for %s", path)}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("path mismatch: %s", path)}
	}
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("missing id: %s", path)}
	}
	return strings.Split(trimmed, "/"), nil
}
