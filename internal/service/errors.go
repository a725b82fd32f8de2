// Package service implements the chat session lifecycle, the message
// lifecycle, the token ledger, and the AI fallback injector.
package service

import (
	"errors"

	"github.com/samrititabalt/supportchat/internal/store"
)

// Service-level failure kinds. Store sentinels are re-used directly so
// callers can match with errors.Is across layers.
var (
	ErrUnauthorized      = errors.New("actor is not a party to this session")
	ErrNotMessageSender  = errors.New("actor is not the message sender")
	ErrNotRecipient      = errors.New("actor is not the message recipient")
	ErrEmptyContent      = errors.New("message content is empty")
	ErrNoAttachments     = errors.New("attachment message requires at least one attachment")
	ErrInvalidKind       = errors.New("message type must be text, image, file, or audio")
	ErrInvalidReply      = errors.New("reply target is not a message in this session")
	ErrCannotEditDeleted = errors.New("cannot edit a deleted message")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidState        Kind = "invalid_state"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindValidation          Kind = "validation_error"
	KindInternal            Kind = "internal"
)

// Classify maps an error to its user-facing kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrCustomerNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotMessageSender),
		errors.Is(err, ErrNotRecipient),
		errors.Is(err, store.ErrNotSessionAgent):
		return KindUnauthorized
	case errors.Is(err, store.ErrAlreadyAssigned),
		errors.Is(err, store.ErrSessionCompleted),
		errors.Is(err, store.ErrAlreadyDeleted),
		errors.Is(err, ErrCannotEditDeleted):
		return KindInvalidState
	case errors.Is(err, store.ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrNoAttachments),
		errors.Is(err, ErrInvalidKind),
		errors.Is(err, ErrInvalidReply),
		errors.Is(err, ErrInvalidAmount):
		return KindValidation
	default:
		return KindInternal
	}
}
