package chat

import (
	"errors"
	"fmt"
)

// Failures of a single chat operation. None of them is fatal to the
// connection except ErrAuth at connect time.
var (
	ErrAuth          = errors.New("authentication failed")
	ErrAccessDenied  = errors.New("access denied")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("invalid message data")
	ErrInvalidOption = errors.New("invalid poll option")
)

// ValidationError describes why a payload was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() + ": " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(reason string) error { return &ValidationError{Reason: reason} }

// ErrAudioInUse rejects a voice message whose audio another message already
// points at. A blob belongs to exactly one message.
var ErrAudioInUse = &ValidationError{Reason: "audio file is already attached to a message"}

// NotFoundError names the missing entity: "group", "session", "user" or
// "message".
type NotFoundError struct {
	Entity string
	ID     uint
}

func NotFound(entity string, id uint) error { return &NotFoundError{Entity: entity, ID: id} }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
