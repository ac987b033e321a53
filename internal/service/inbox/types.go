package inbox

import (
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
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
	// Conversation is the current server state, set on mode and status conflicts.
	Conversation *model.ConversationItem
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

func conflictError(message string, err error, current model.ConversationItem) *Error {
	e := newError(ErrorCodeConflict, message, err)
	e.Conversation = &current
	return e
}

type ListFilter struct {
	Status lead.Status
	Mode   lead.Mode
	// Mine keeps only conversations held by the caller.
	Mine bool
}

type SendParams struct {
	Content     string
	ContentKind lead.ContentKind
	MediaURL    string
}

type MessageResult struct {
	Conversation model.ConversationItem
	Message      model.MessageItem
}

type ListMessagesResult struct {
	Conversation model.ConversationItem
	Messages     []model.MessageItem
}

type ConvertParams struct {
	ClientID  string
	NewClient *lead.ClientIdentity
}

type ConvertResult struct {
	Conversation model.ConversationItem
	Client       model.ClientItem
	// ClientCreated is false when an existing client was linked.
	ClientCreated bool
}

// InboundParams describes one customer message received by the WhatsApp bridge.
type InboundParams struct {
	Phone       string
	DisplayName string
	ExternalID  string
	ContentKind lead.ContentKind
	Content     string
	MediaURL    string
}

type IngestResult struct {
	Conversation model.ConversationItem
	Message      model.MessageItem
	Created      bool
	Duplicate    bool
}
