package api

import "github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"

type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
	// Conversation is echoed back on conflicts so the caller can resync.
	Conversation *dto.Conversation
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.ErrorLog
}

type ApiError = dto.ErrorResponse
