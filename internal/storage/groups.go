package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quickroom/room-service/internal/domain/model"
)

const groupColumns = `id, name, group_code, user_id, approval_require, maximum_members, created_at, expired_at`

// CreateGroup inserts the group and enrolls the owner as its first
// participant in the same transaction.
func (s *DB) CreateGroup(ctx context.Context, ownerID int32, groupCode string, ng model.NewGroup) (model.Group, error) {
	var g model.Group
	now := time.Now().UTC()
	err := s.tx(ctx, "create_group", func(tx *sqlx.Tx) error {
		const q = `INSERT INTO groups (name, group_code, user_id, approval_require, maximum_members, created_at, expired_at)
		           VALUES ($1, $2, $3, $4, $5, $6, $7)
		           RETURNING ` + groupColumns
		if err := tx.GetContext(ctx, &g, q,
			ng.Name, groupCode, ownerID, ng.ApprovalRequired, ng.MaximumMembers, now, now.Add(ng.Duration),
		); err != nil {
			return wrap("create_group", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (user_id, group_id) VALUES ($1, $2)`, ownerID, g.ID)
		return wrap("create_group", err)
	})
	return g, err
}

func (s *DB) GetGroup(ctx context.Context, id int32) (*model.Group, error) {
	var g model.Group
	err := s.do("get_group", func() error {
		return wrap("get_group", s.db.GetContext(ctx, &g,
			`SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *DB) FindGroupByCode(ctx context.Context, code string) (*model.Group, error) {
	var g model.Group
	err := s.do("find_group_by_code", func() error {
		return wrap("find_group_by_code", s.db.GetContext(ctx, &g,
			`SELECT `+groupColumns+` FROM groups WHERE group_code = $1`, code))
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGroup removes the group and everything hanging off it. Child rows go
// first so the foreign keys never block the delete.
func (s *DB) DeleteGroup(ctx context.Context, groupID int32) error {
	return s.tx(ctx, "delete_group", func(tx *sqlx.Tx) error {
		steps := []string{
			`DELETE FROM attachments WHERE message_id IN (SELECT id FROM messages WHERE group_id = $1)`,
			`DELETE FROM messages WHERE group_id = $1`,
			`DELETE FROM participants WHERE group_id = $1`,
			`DELETE FROM waiting_list WHERE group_id = $1`,
			`DELETE FROM groups WHERE id = $1`,
		}
		for _, q := range steps {
			if _, err := tx.ExecContext(ctx, q, groupID); err != nil {
				return wrap("delete_group", err)
			}
		}
		return nil
	})
}

// ListGroupsOf returns every group the user participates in, newest first,
// each with a preview of its latest message when one exists.
func (s *DB) ListGroupsOf(ctx context.Context, userID int32) ([]model.GroupPreview, error) {
	previews := []model.GroupPreview{}
	err := s.do("list_groups_of", func() error {
		const q = `
		SELECT g.id, g.name, g.group_code, g.created_at, g.expired_at,
		       lm.content  AS latest_content,
		       lm.created_at AS latest_created_at,
		       lm.username AS latest_username
		FROM groups g
		JOIN participants p ON p.group_id = g.id AND p.user_id = $1
		LEFT JOIN LATERAL (
		    SELECT m.content, m.created_at, u.username
		    FROM messages m
		    JOIN users u ON u.id = m.user_id
		    WHERE m.group_id = g.id
		    ORDER BY m.created_at DESC, m.id DESC
		    LIMIT 1
		) lm ON TRUE
		ORDER BY g.created_at DESC`
		return wrap("list_groups_of", s.db.SelectContext(ctx, &previews, q, userID))
	})
	return previews, err
}

func (s *DB) IsParticipant(ctx context.Context, userID, groupID int32) (bool, error) {
	var ok bool
	err := s.do("is_participant", func() error {
		const q = `SELECT EXISTS (SELECT 1 FROM participants WHERE user_id = $1 AND group_id = $2)`
		return wrap("is_participant", s.db.GetContext(ctx, &ok, q, userID, groupID))
	})
	return ok, err
}

func (s *DB) IsOwner(ctx context.Context, userID, groupID int32) (bool, error) {
	var ok bool
	err := s.do("is_owner", func() error {
		const q = `SELECT EXISTS (SELECT 1 FROM groups WHERE id = $2 AND user_id = $1)`
		return wrap("is_owner", s.db.GetContext(ctx, &ok, q, userID, groupID))
	})
	return ok, err
}

func (s *DB) AddParticipant(ctx context.Context, userID, groupID int32) error {
	return s.do("add_participant", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO participants (user_id, group_id) VALUES ($1, $2)`, userID, groupID)
		return wrap("add_participant", err)
	})
}

// RemoveParticipant reports whether a membership row was actually removed.
func (s *DB) RemoveParticipant(ctx context.Context, userID, groupID int32) (bool, error) {
	var removed bool
	err := s.do("remove_participant", func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM participants WHERE user_id = $1 AND group_id = $2`, userID, groupID)
		if err != nil {
			return wrap("remove_participant", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrap("remove_participant", err)
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

func (s *DB) ParticipantsOf(ctx context.Context, groupID int32) ([]int32, error) {
	ids := []int32{}
	err := s.do("participants_of", func() error {
		return wrap("participants_of", s.db.SelectContext(ctx, &ids,
			`SELECT user_id FROM participants WHERE group_id = $1`, groupID))
	})
	return ids, err
}

func (s *DB) CountParticipants(ctx context.Context, groupID int32) (int64, error) {
	var n int64
	err := s.do("count_participants", func() error {
		return wrap("count_participants", s.db.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM participants WHERE group_id = $1`, groupID))
	})
	return n, err
}

func (s *DB) AddWaiting(ctx context.Context, userID, groupID int32, message *string) error {
	return s.do("add_waiting", func() error {
		const q = `INSERT INTO waiting_list (user_id, group_id, message, created_at)
		           VALUES ($1, $2, $3, $4)`
		_, err := s.db.ExecContext(ctx, q, userID, groupID, message, time.Now().UTC())
		return wrap("add_waiting", err)
	})
}

func (s *DB) GetWaiting(ctx context.Context, requestID int32) (*model.WaitingListEntry, error) {
	var e model.WaitingListEntry
	err := s.do("get_waiting", func() error {
		const q = `SELECT id, user_id, group_id, message, created_at FROM waiting_list WHERE id = $1`
		return wrap("get_waiting", s.db.GetContext(ctx, &e, q, requestID))
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *DB) ListWaiting(ctx context.Context, groupID int32, page model.PageRequest) ([]model.WaitingUser, error) {
	page = page.Normalize()
	waiting := []model.WaitingUser{}
	err := s.do("list_waiting", func() error {
		const q = `
		SELECT w.id, w.user_id, u.username, w.message
		FROM waiting_list w
		JOIN users u ON u.id = w.user_id
		WHERE w.group_id = $1
		ORDER BY w.created_at ASC, w.id ASC
		LIMIT $2 OFFSET $3`
		return wrap("list_waiting", s.db.SelectContext(ctx, &waiting, q, groupID, page.Limit, page.Offset()))
	})
	return waiting, err
}

func (s *DB) CountWaiting(ctx context.Context, groupID int32) (int64, error) {
	var n int64
	err := s.do("count_waiting", func() error {
		return wrap("count_waiting", s.db.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM waiting_list WHERE group_id = $1`, groupID))
	})
	return n, err
}

// DecideWaiting consumes a pending request: the waiting row is removed either
// way, and acceptance enrolls the requester atomically.
func (s *DB) DecideWaiting(ctx context.Context, requestID int32, accept bool) error {
	return s.tx(ctx, "decide_waiting", func(tx *sqlx.Tx) error {
		var e model.WaitingListEntry
		const q = `SELECT id, user_id, group_id, message, created_at
		           FROM waiting_list WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &e, q, requestID); err != nil {
			return wrap("decide_waiting", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM waiting_list WHERE id = $1`, requestID); err != nil {
			return wrap("decide_waiting", err)
		}
		if !accept {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (user_id, group_id) VALUES ($1, $2)`, e.UserID, e.GroupID)
		return wrap("decide_waiting", err)
	})
}
