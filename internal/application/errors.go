package application

import (
	"errors"

	"userprofile-service/internal/domain"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")
var ErrBadRequest = errors.New("bad request")

var (
	ErrSessionState   = errors.New("session: invalid state transition")
	ErrForeignSession = errors.New("session belongs to a different store")
	ErrInjectedFault  = errors.New("injected fault")
)

// WorkFailure is returned by the user+profile workflows. UserCreated is the
// user as it exists in storage after the failure, or nil when there is none.
type WorkFailure struct {
	Message     string
	UserCreated *domain.User
	Cause       error
}

func (f *WorkFailure) Error() string {
	if f.Cause == nil {
		return f.Message
	}
	return f.Message + ": " + f.Cause.Error()
}

func (f *WorkFailure) Unwrap() error { return f.Cause }
