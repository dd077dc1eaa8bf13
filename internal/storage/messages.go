package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quickroom/room-service/internal/domain/model"
)

const messageColumns = `id, message_uuid, content, message_type, status, created_at, updated_at, user_id, group_id`

// InsertMessage persists the message and its attachments in one transaction
// so a partially-written send can never be observed or broadcast.
func (s *DB) InsertMessage(ctx context.Context, nm model.NewMessage, atts []model.NewAttachment) (model.Message, []model.Attachment, error) {
	var m model.Message
	inserted := make([]model.Attachment, 0, len(atts))
	err := s.tx(ctx, "insert_message", func(tx *sqlx.Tx) error {
		const q = `INSERT INTO messages (message_uuid, content, message_type, status, created_at, user_id, group_id)
		           VALUES ($1, $2, $3, $4, $5, $6, $7)
		           RETURNING ` + messageColumns
		if err := tx.GetContext(ctx, &m, q,
			nm.MessageUUID, nm.Content, nm.MessageType, nm.Status, nm.CreatedAt, nm.UserID, nm.GroupID,
		); err != nil {
			return wrap("insert_message", err)
		}
		for _, a := range atts {
			var row model.Attachment
			const aq = `INSERT INTO attachments (url, attachment_type, message_id)
			            VALUES ($1, $2, $3)
			            RETURNING id, url, attachment_type, message_id`
			if err := tx.GetContext(ctx, &row, aq, a.URL, a.AttachmentType, m.ID); err != nil {
				return wrap("insert_message", err)
			}
			inserted = append(inserted, row)
		}
		return nil
	})
	if err != nil {
		return model.Message{}, nil, err
	}
	return m, inserted, nil
}

func (s *DB) GetMessage(ctx context.Context, id int32) (*model.Message, error) {
	var m model.Message
	err := s.do("get_message", func() error {
		return wrap("get_message", s.db.GetContext(ctx, &m,
			`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DB) GetMessages(ctx context.Context, ids []int32) ([]model.Message, error) {
	msgs := []model.Message{}
	if len(ids) == 0 {
		return msgs, nil
	}
	err := s.do("get_messages", func() error {
		return wrap("get_messages", s.db.SelectContext(ctx, &msgs,
			`SELECT `+messageColumns+` FROM messages WHERE id = ANY($1)`, ids))
	})
	return msgs, err
}

// messagePredicates builds the WHERE clause shared by the list and count
// queries. Date bounds cover the whole calendar day in UTC.
func messagePredicates(groupID int32, f model.MessageFilter) (string, []any) {
	conds := []string{"group_id = $1"}
	args := []any{groupID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.MessageType != nil {
		add("message_type = $%d", *f.MessageType)
	}
	if f.Content != nil {
		add("content LIKE '%%' || $%d || '%%'", *f.Content)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.FromDate != nil {
		y, mo, d := f.FromDate.UTC().Date()
		add("created_at >= $%d", time.Date(y, mo, d, 0, 0, 0, 0, time.UTC))
	}
	if f.ToDate != nil {
		y, mo, d := f.ToDate.UTC().Date()
		add("created_at < $%d", time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1))
	}
	return strings.Join(conds, " AND "), args
}

type messageRow struct {
	model.Message
	Username string                `db:"username"`
	AttID    *int32                `db:"att_id"`
	AttURL   *string               `db:"att_url"`
	AttType  *model.AttachmentType `db:"att_type"`
}

// ListMessages pages messages of a group with author names and attachments.
// The page limit applies to messages, so attachments join against a limited
// subquery rather than the joined rows.
func (s *DB) ListMessages(ctx context.Context, groupID int32, f model.MessageFilter, sort model.SortOrder, page model.PageRequest) ([]model.MessageWithAuthor, error) {
	page = page.Normalize()
	dir := string(sort.OrDefault())
	where, args := messagePredicates(groupID, f)
	args = append(args, page.Limit, page.Offset())

	q := fmt.Sprintf(`
	SELECT m.id, m.message_uuid, m.content, m.message_type, m.status,
	       m.created_at, m.updated_at, m.user_id, m.group_id,
	       u.username,
	       a.id AS att_id, a.url AS att_url, a.attachment_type AS att_type
	FROM (
	    SELECT %s FROM messages
	    WHERE %s
	    ORDER BY created_at %s, id %s
	    LIMIT $%d OFFSET $%d
	) m
	JOIN users u ON u.id = m.user_id
	LEFT JOIN attachments a ON a.message_id = m.id
	ORDER BY m.created_at %s, m.id %s, a.id ASC`,
		messageColumns, where, dir, dir, len(args)-1, len(args), dir, dir)

	rows := []messageRow{}
	err := s.do("list_messages", func() error {
		return wrap("list_messages", s.db.SelectContext(ctx, &rows, q, args...))
	})
	if err != nil {
		return nil, err
	}

	out := []model.MessageWithAuthor{}
	index := map[int32]int{}
	for _, r := range rows {
		i, seen := index[r.ID]
		if !seen {
			out = append(out, model.MessageWithAuthor{
				Message:     r.Message,
				Username:    r.Username,
				Attachments: []model.Attachment{},
			})
			i = len(out) - 1
			index[r.ID] = i
		}
		if r.AttID != nil {
			out[i].Attachments = append(out[i].Attachments, model.Attachment{
				ID:             *r.AttID,
				URL:            *r.AttURL,
				AttachmentType: *r.AttType,
				MessageID:      r.ID,
			})
		}
	}
	return out, nil
}

func (s *DB) CountMessages(ctx context.Context, groupID int32, f model.MessageFilter) (int64, error) {
	where, args := messagePredicates(groupID, f)
	var n int64
	err := s.do("count_messages", func() error {
		return wrap("count_messages", s.db.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM messages WHERE `+where, args...))
	})
	return n, err
}

// UpdateMessage applies the non-nil fields, stamping updated_at only when at
// least one field actually changes. Missing rows surface as NotFound.
func (s *DB) UpdateMessage(ctx context.Context, id int32, u model.UpdateMessage) (model.Message, error) {
	var m model.Message
	if u.Empty() {
		err := s.do("update_message", func() error {
			return wrap("update_message", s.db.GetContext(ctx, &m,
				`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
		})
		return m, err
	}
	err := s.do("update_message", func() error {
		const q = `UPDATE messages
		           SET content      = COALESCE($2, content),
		               message_type = COALESCE($3, message_type),
		               updated_at   = $4
		           WHERE id = $1
		           RETURNING ` + messageColumns
		return wrap("update_message", s.db.GetContext(ctx, &m, q,
			id, u.Content, u.MessageType, time.Now().UTC()))
	})
	return m, err
}

// DeleteMessages removes the messages and their attachments, reporting
// whether every requested id existed.
func (s *DB) DeleteMessages(ctx context.Context, ids []int32) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	var all bool
	err := s.tx(ctx, "delete_messages", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM attachments WHERE message_id = ANY($1)`, ids); err != nil {
			return wrap("delete_messages", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ANY($1)`, ids)
		if err != nil {
			return wrap("delete_messages", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrap("delete_messages", err)
		}
		all = n == int64(len(ids))
		return nil
	})
	return all, err
}

// NotAuthoredBy returns the subset of ids the user cannot mutate: ids that do
// not exist or belong to someone else.
func (s *DB) NotAuthoredBy(ctx context.Context, userID int32, ids []int32) ([]int32, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	owned := []int32{}
	err := s.do("not_authored_by", func() error {
		return wrap("not_authored_by", s.db.SelectContext(ctx, &owned,
			`SELECT id FROM messages WHERE id = ANY($1) AND user_id = $2`, ids, userID))
	})
	if err != nil {
		return nil, err
	}
	ownedSet := make(map[int32]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}
	var rejected []int32
	for _, id := range ids {
		if _, ok := ownedSet[id]; !ok {
			rejected = append(rejected, id)
		}
	}
	return rejected, nil
}

func (s *DB) SetStatus(ctx context.Context, ids []int32, status model.MessageStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return s.do("set_status", func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE messages SET status = $1 WHERE id = ANY($2)`, status, ids)
		return wrap("set_status", err)
	})
}
