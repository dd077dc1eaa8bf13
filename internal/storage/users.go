package storage

import (
	"context"

	"github.com/quickroom/room-service/internal/domain/model"
)

func (s *DB) CreateUser(ctx context.Context, username, userCode string) (model.User, error) {
	var u model.User
	err := s.do("create_user", func() error {
		const q = `INSERT INTO users (username, user_code)
		           VALUES ($1, $2)
		           RETURNING id, username, user_code, created_at`
		return wrap("create_user", s.db.GetContext(ctx, &u, q, username, userCode))
	})
	return u, err
}

func (s *DB) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := s.do("username_taken", func() error {
		const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
		return wrap("username_taken", s.db.GetContext(ctx, &taken, q, username))
	})
	return taken, err
}

func (s *DB) GetUser(ctx context.Context, id int32) (*model.User, error) {
	var u model.User
	err := s.do("get_user", func() error {
		const q = `SELECT id, username, user_code, created_at FROM users WHERE id = $1`
		return wrap("get_user", s.db.GetContext(ctx, &u, q, id))
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *DB) GetUserByCode(ctx context.Context, code string) (*model.User, error) {
	var u model.User
	err := s.do("get_user_by_code", func() error {
		const q = `SELECT id, username, user_code, created_at FROM users WHERE user_code = $1`
		return wrap("get_user_by_code", s.db.GetContext(ctx, &u, q, code))
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
