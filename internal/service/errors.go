package service

import "errors"

// Sentinel kinds the transport layers map to status codes. The message a
// svcError carries is safe to show to clients.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrGroupExpired  = errors.New("group expired")
	ErrGroupFull     = errors.New("group is full")
	ErrInternal      = errors.New("internal error")
)

type svcError struct {
	kind error
	msg  string
}

// E builds a client-presentable error of the given kind.
func E(kind error, msg string) error {
	return &svcError{kind: kind, msg: msg}
}

func (e *svcError) Error() string { return e.msg }
func (e *svcError) Unwrap() error { return e.kind }
