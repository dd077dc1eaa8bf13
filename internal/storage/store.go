// Package storage is the persistence boundary: every query the upper layers
// need, each atomic, over a bounded Postgres pool.
package storage

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/quickroom/room-service/internal/domain/model"
)

//go:embed schema.sql
var schemaSQL string

// Store is the query surface the core consumes. REST handlers and the
// protocol dispatcher share it; tests substitute a fake at this boundary.
type Store interface {
	CreateUser(ctx context.Context, username, userCode string) (model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	GetUser(ctx context.Context, id int32) (*model.User, error)
	GetUserByCode(ctx context.Context, code string) (*model.User, error)

	CreateGroup(ctx context.Context, ownerID int32, groupCode string, ng model.NewGroup) (model.Group, error)
	GetGroup(ctx context.Context, id int32) (*model.Group, error)
	FindGroupByCode(ctx context.Context, code string) (*model.Group, error)
	DeleteGroup(ctx context.Context, groupID int32) error
	ListGroupsOf(ctx context.Context, userID int32) ([]model.GroupPreview, error)

	IsParticipant(ctx context.Context, userID, groupID int32) (bool, error)
	IsOwner(ctx context.Context, userID, groupID int32) (bool, error)
	AddParticipant(ctx context.Context, userID, groupID int32) error
	RemoveParticipant(ctx context.Context, userID, groupID int32) (bool, error)
	ParticipantsOf(ctx context.Context, groupID int32) ([]int32, error)
	CountParticipants(ctx context.Context, groupID int32) (int64, error)

	AddWaiting(ctx context.Context, userID, groupID int32, message *string) error
	GetWaiting(ctx context.Context, requestID int32) (*model.WaitingListEntry, error)
	ListWaiting(ctx context.Context, groupID int32, page model.PageRequest) ([]model.WaitingUser, error)
	CountWaiting(ctx context.Context, groupID int32) (int64, error)
	DecideWaiting(ctx context.Context, requestID int32, accept bool) error

	InsertMessage(ctx context.Context, nm model.NewMessage, atts []model.NewAttachment) (model.Message, []model.Attachment, error)
	GetMessage(ctx context.Context, id int32) (*model.Message, error)
	GetMessages(ctx context.Context, ids []int32) ([]model.Message, error)
	ListMessages(ctx context.Context, groupID int32, f model.MessageFilter, sort model.SortOrder, page model.PageRequest) ([]model.MessageWithAuthor, error)
	CountMessages(ctx context.Context, groupID int32, f model.MessageFilter) (int64, error)
	UpdateMessage(ctx context.Context, id int32, u model.UpdateMessage) (model.Message, error)
	DeleteMessages(ctx context.Context, ids []int32) (bool, error)
	NotAuthoredBy(ctx context.Context, userID int32, ids []int32) ([]int32, error)
	SetStatus(ctx context.Context, ids []int32, status model.MessageStatus) error
}

// DB implements Store over sqlx/pgx. A circuit breaker guards the pool so a
// dead database fails fast as a Connection error instead of stacking
// timeouts on every caller.
type DB struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ Store = (*DB)(nil)

// Open connects, sizes the pool and applies the embedded schema.
func Open(ctx context.Context, dsn string, poolSize int, logger *slog.Logger) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, wrap("open", err)
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, wrap("apply_schema", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only connection-level failures count against the breaker;
		// query and constraint errors are the caller's problem.
		IsSuccessful: func(err error) bool {
			return !IsConnection(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("database breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &DB{db: db, breaker: breaker, logger: logger}, nil
}

func (s *DB) Close() error { return s.db.Close() }

// do routes a store call through the breaker. An open breaker is reported as
// a Connection failure without touching the pool.
func (s *DB) do(op string, fn func() error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: KindConnection, Op: op, Err: err}
	}
	return err
}

// tx runs fn inside a transaction, rolling back on error.
func (s *DB) tx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	return s.do(op, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return wrap(op, err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", "op", op, "error", rbErr)
			}
			return err
		}
		return wrap(op, tx.Commit())
	})
}
