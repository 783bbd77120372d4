package services

import (
	"errors"
)

// ErrInvalidOperation matches every domain-rule violation returned by the
// services, whatever its Kind.
var ErrInvalidOperation = errors.New("invalid operation")

// Kind classifies an OperationError.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindAlreadyCheckedOut Kind = "already_checked_out"
	KindNoCopiesAvailable Kind = "no_copies_available"
	KindNotCheckedOut     Kind = "not_checked_out"
	KindQuantityAtFloor   Kind = "quantity_at_floor"
	KindDuplicateReview   Kind = "duplicate_review"
	KindValidation        Kind = "validation"
)

// OperationError is a domain-rule violation.
type OperationError struct {
	Kind    Kind
	Message string
}

func (e *OperationError) Error() string { return e.Message }

// Is makes every OperationError match ErrInvalidOperation.
func (e *OperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

func newOperationError(kind Kind, msg string) *OperationError {
	return &OperationError{Kind: kind, Message: msg}
}

var (
	ErrBookNotFound      = newOperationError(KindNotFound, "book not found")
	ErrMessageNotFound   = newOperationError(KindNotFound, "message not found")
	ErrAlreadyCheckedOut = newOperationError(KindAlreadyCheckedOut, "book already checked out by user")
	ErrNoCopiesAvailable = newOperationError(KindNoCopiesAvailable, "no copies available")
	ErrNotCheckedOut     = newOperationError(KindNotCheckedOut, "book not checked out by user")
	ErrQuantityAtFloor   = newOperationError(KindQuantityAtFloor, "book quantity already at zero")
	ErrDuplicateReview   = newOperationError(KindDuplicateReview, "review already created")

	ErrInvalidRating  = newOperationError(KindValidation, "rating must be between 0 and 5")
	ErrInvalidCopies  = newOperationError(KindValidation, "copies must not be negative")
	ErrInvalidBook    = newOperationError(KindValidation, "title and author are required")
	ErrInvalidMessage = newOperationError(KindValidation, "title and question are required")
	ErrInvalidAnswer  = newOperationError(KindValidation, "response is required")
)

// KindOf returns the Kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}

// LegacyMessage collapses domain errors into the messages of the original
// API, which did not tell the causes apart.
func LegacyMessage(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyCheckedOut), errors.Is(err, ErrNoCopiesAvailable):
		return "Book doesn't exist or already checked out by user"
	case errors.Is(err, ErrNotCheckedOut):
		return "Book does not exist or not checked out by user"
	case errors.Is(err, ErrQuantityAtFloor):
		return "Book not found or quantity locked"
	case errors.Is(err, ErrBookNotFound):
		return "Book not found"
	case errors.Is(err, ErrMessageNotFound):
		return "Message not found"
	case errors.Is(err, ErrDuplicateReview):
		return "Review already created"
	case errors.Is(err, ErrInvalidOperation):
		return err.Error()
	}
	return "internal server error"
}
