package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies store failures for the callers that must map them to
// user-visible responses.
type Kind uint8

const (
	// KindConnection: the pool could not yield a usable handle.
	KindConnection Kind = iota + 1
	// KindQuery: the statement itself failed.
	KindQuery
	// KindConstraint: uniqueness or foreign-key violation. Callers turn
	// these into 4xx responses and typed protocol replies.
	KindConstraint
	// KindNotFound: the referenced row does not exist.
	KindNotFound
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// wrap classifies a driver error under the given operation name. Internal
// error text stays here; handlers never leak it to clients.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindQuery
	var pgErr *pgconn.PgError
	var netErr net.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = KindNotFound
	case errors.As(err, &pgErr) && (pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation):
		kind = KindConstraint
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		kind = KindConnection
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool   { return kindOf(err) == KindNotFound }
func IsConstraint(err error) bool { return kindOf(err) == KindConstraint }
func IsConnection(err error) bool { return kindOf(err) == KindConnection }
