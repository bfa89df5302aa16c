package protocol

import (
	"context"
	"errors"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

var errAuthRequired = errors.New("authentication required")

const (
	kindAuth          = "auth"
	kindAccessDenied  = "access_denied"
	kindNotFound      = "not_found"
	kindValidation    = "validation"
	kindInvalidOption = "invalid_option"
	kindTimeout       = "timeout"
	kindInternal      = "internal"
)

// classify maps an operation failure to a metric label and the message shown
// to the client. Causes other than validation reasons are never exposed.
func classify(event string, err error) (kind, message string) {
	switch {
	case errors.Is(err, errAuthRequired):
		return kindAuth, "Authentication required"
	case errors.Is(err, chat.ErrAuth):
		return kindAuth, "Authentication failed"
	case errors.Is(err, chat.ErrInvalidOption):
		return kindInvalidOption, "Invalid poll option"
	case errors.Is(err, chat.ErrValidation):
		return kindValidation, validationMessage(event, err)
	case errors.Is(err, chat.ErrAccessDenied):
		if event == wire.EventJoinRoom {
			return kindAccessDenied, "Access denied or invalid room"
		}
		if event == wire.EventDeleteMessage {
			return kindAccessDenied, "Not authorized to delete this message"
		}
		return kindAccessDenied, "Access denied"
	case errors.Is(err, chat.ErrNotFound):
		return kindNotFound, notFoundMessage(err)
	case errors.Is(err, context.DeadlineExceeded):
		return kindTimeout, failedMessage(event)
	}
	return kindInternal, failedMessage(event)
}

func validationMessage(event string, err error) string {
	switch event {
	case wire.EventJoinRoom:
		return "Access denied or invalid room"
	case wire.EventSendMessage, wire.EventVotePoll, wire.EventDeleteMessage:
		var ve *chat.ValidationError
		if errors.As(err, &ve) {
			return "Invalid message data: " + ve.Reason
		}
		return "Invalid message data"
	}
	return "Invalid message format"
}

func notFoundMessage(err error) string {
	var nf *chat.NotFoundError
	if errors.As(err, &nf) {
		switch nf.Entity {
		case "group":
			return "Group not found"
		case "session":
			return "Session not found"
		case "user":
			return "User not found"
		}
	}
	return "Message not found"
}

func failedMessage(event string) string {
	switch event {
	case wire.EventJoinRoom:
		return "Failed to join room"
	case wire.EventSendMessage:
		return "Failed to send message"
	case wire.EventVotePoll:
		return "Failed to record vote"
	case wire.EventDeleteMessage:
		return "Failed to delete message"
	case "connect":
		return "Authentication failed"
	}
	return "Request failed"
}
