package auth

import (
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type LoginParams struct {
	Email    string
	Password string
}

type CreateAgentParams struct {
	Email    string
	Name     string
	Password string
	Roles    []string
}

type AuthResult struct {
	Agent  model.AgentItem
	Tokens internaljwt.TokenResponse
}
