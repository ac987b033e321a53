package inbox

import "errors"

var (
	// ErrInFlight is returned for a second submission of an action that is
	// still running for the same conversation.
	ErrInFlight          = errors.New("action already in progress")
	ErrComposerDisabled  = errors.New("take the chat before sending messages")
	ErrDiscardIncomplete = errors.New("discard requires a reason and a comment")
	ErrNoSelection       = errors.New("no conversation selected")
	ErrUnknownInbox      = errors.New("conversation not loaded")
	// ErrStaleSelection reports a result dropped because the selection moved on.
	ErrStaleSelection = errors.New("selection changed before the response arrived")
)
