package session

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/takeover/internal/models"
)

// ErrNotInControl is returned for replies to a conversation the operator
// has not taken over.
var ErrNotInControl = errors.New("conversation is controlled by the bot")

// FetchError is a failed directory, history or control status load. It is
// shown in place of the content that failed to load.
type FetchError struct {
	ID  models.ConversationID // empty for the directory
	Err error
}

func (e *FetchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("load conversations: %v", e.Err)
	}
	return fmt.Sprintf("load conversation %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ActionError is a control change or reply that failed or was refused.
type ActionError struct {
	Op  string
	ID  models.ConversationID
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
