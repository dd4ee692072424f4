package repository

import (
	"errors"
	"fmt"
)

// ErrorKind classifies repository failures so callers can branch without inspecting message text.
type ErrorKind string

// Error kinds.
const (
	KindAlreadyExists   ErrorKind = "already_exists"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindCommand         ErrorKind = "command"
	KindParse           ErrorKind = "parse"
	KindInvalidState    ErrorKind = "invalid_state"
	KindFileSystem      ErrorKind = "filesystem"
)

const (
	errorWithLocationTemplateConstant    = "%s %s: %s"
	errorWithoutLocationTemplateConstant = "%s: %s"
)

// Sentinels matching any *Error of the corresponding kind through errors.Is.
var (
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrCommand         = &Error{Kind: KindCommand}
	ErrParse           = &Error{Kind: KindParse}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrFileSystem      = &Error{Kind: KindFileSystem}
)

// Error describes a failed repository operation.
type Error struct {
	Kind      ErrorKind
	Operation string
	Path      string
	Message   string
	Cause     error
}

// Error implements error.
func (repositoryError *Error) Error() string {
	message := repositoryError.Message
	if len(message) == 0 {
		message = string(repositoryError.Kind)
	}
	if len(repositoryError.Operation) == 0 {
		return message
	}
	if len(repositoryError.Path) == 0 {
		return fmt.Sprintf(errorWithoutLocationTemplateConstant, repositoryError.Operation, message)
	}
	return fmt.Sprintf(errorWithLocationTemplateConstant, repositoryError.Operation, repositoryError.Path, message)
}

// Unwrap exposes the underlying cause.
func (repositoryError *Error) Unwrap() error {
	return repositoryError.Cause
}

// Is matches kind sentinels: a target carrying only a Kind matches every error of that kind.
func (repositoryError *Error) Is(target error) bool {
	targetError, isRepositoryError := target.(*Error)
	if !isRepositoryError {
		return false
	}
	if len(targetError.Operation) > 0 || len(targetError.Path) > 0 || len(targetError.Message) > 0 || targetError.Cause != nil {
		return targetError == repositoryError
	}
	return targetError.Kind == repositoryError.Kind
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var repositoryError *Error
	if !errors.As(err, &repositoryError) {
		return "", false
	}
	return repositoryError.Kind, true
}

func newError(kind ErrorKind, operation string, path string, message string, cause error) *Error {
	return &Error{Kind: kind, Operation: operation, Path: path, Message: message, Cause: cause}
}
