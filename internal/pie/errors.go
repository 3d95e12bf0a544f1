package pie

import "fmt"

const (
	CodeValidation        = "validation"
	CodeNotFound          = "not_found"
	CodeGenerationFailed  = "generation_failed"
	CodePersistence       = "persistence"
	CodeInvalidTransition = "invalid_transition"
	CodeConfig            = "config"
	CodeInternal          = "internal"
)

type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func statusForCode(code string) int {
	switch code {
	case CodeValidation, CodeInvalidTransition:
		return 400
	case CodeNotFound:
		return 404
	case CodeGenerationFailed:
		return 502
	case CodeConfig:
		return 500
	default:
		return 500
	}
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code), Err: err}
}

func NewValidationError(message string) error {
	return newError(CodeValidation, message, nil)
}

func NewNotFoundError(kind, id string) error {
	return newError(CodeNotFound, fmt.Sprintf("%s %s not found", kind, id), nil)
}

func NewGenerationFailed(err error) error {
	return newError(CodeGenerationFailed, "report generation failed: "+err.Error(), err)
}

func NewPersistenceError(err error) error {
	return newError(CodePersistence, err.Error(), err)
}

func NewInvalidTransition(from, to string) error {
	return newError(CodeInvalidTransition, fmt.Sprintf("illegal status transition %s -> %s", from, to), nil)
}

func NewConfigError(message string) error {
	return newError(CodeConfig, message, nil)
}

func NewInternalError(err error) error {
	return newError(CodeInternal, err.Error(), err)
}
