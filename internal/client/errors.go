package client

import (
	"errors"
	"fmt"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
)

type Kind int

const (
	// KindRejected means the server answered with an error status.
	KindRejected Kind = iota + 1
	// KindTransport means the request never produced a response; the
	// operation must be treated as not applied.
	KindTransport
	// KindInvalidResponse means the response did not match the expected shape.
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindTransport:
		return "transport"
	case KindInvalidResponse:
		return "invalid response"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	// Conversation is the server's current state, sent with some conflicts.
	Conversation *dto.Conversation
	Err          error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRejected:
		return fmt.Sprintf("%s: rejected (%d): %s", e.Op, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ServerConversation returns the conversation attached to a rejection, if any.
func ServerConversation(err error) (dto.Conversation, bool) {
	var e *Error
	if errors.As(err, &e) && e.Conversation != nil {
		return *e.Conversation, true
	}
	return dto.Conversation{}, false
}
