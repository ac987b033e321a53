package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/middleware"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request worker pool behind CORS and
// request logging. authMiddleware wraps f inside the queue boundary.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		if err := s.requestQueueManager.EnqueueJob(r.Context(), job); err != nil {
			s.log.Warn("request dropped before reaching a worker", zap.String("uri", r.URL.RequestURI()), zap.Error(err))
			WriteJSON(w, http.StatusServiceUnavailable, ApiError{Message: "Server busy"})
			return
		}

		if err := <-errc; err != nil {
			s.writeError(w, r, err)
		}
	}

	finalHandler := middleware.Chain(baseHandler, authMiddleware...)

	return middleware.Chain(finalHandler,
		middleware.CORS(s.cors),
		middleware.Logging(s.log),
	)
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusInternalServerError {
			s.log.Error(httpErr.Message, zap.String("uri", r.URL.RequestURI()), zap.Error(httpErr.ErrorLog))
		} else {
			s.log.Debug(httpErr.Message, zap.String("uri", r.URL.RequestURI()), zap.Error(httpErr.ErrorLog))
		}
		WriteJSON(w, httpErr.StatusCode, ApiError{Message: httpErr.Message, Conversation: httpErr.Conversation})
		return
	}
	s.log.Error("unhandled error", zap.String("uri", r.URL.RequestURI()), zap.Error(err))
	WriteJSON(w, http.StatusInternalServerError, ApiError{Message: "Internal server error"})
}
