package model

import "time"

// Group is an ephemeral chat room. Groups past ExpiredAt are treated as
// closed: new sends and joins are rejected.
type Group struct {
	ID               int32     `db:"id" json:"group_id"`
	Name             string    `db:"name" json:"group_name"`
	GroupCode        string    `db:"group_code" json:"group_code"`
	OwnerID          int32     `db:"user_id" json:"owner_id"`
	ApprovalRequired bool      `db:"approval_require" json:"approval_require"`
	MaximumMembers   *int32    `db:"maximum_members" json:"maximum_members"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	ExpiredAt        time.Time `db:"expired_at" json:"expired_at"`
}

func (g *Group) Expired(now time.Time) bool {
	return now.After(g.ExpiredAt)
}

// NewGroup carries the creation parameters of a group.
type NewGroup struct {
	Name             string
	ApprovalRequired bool
	MaximumMembers   *int32
	Duration         time.Duration
}

// GroupPreview is one row of a user's group listing, including the latest
// message of the group when there is one.
type GroupPreview struct {
	ID              int32      `db:"id" json:"group_id"`
	Name            string     `db:"name" json:"group_name"`
	GroupCode       string     `db:"group_code" json:"group_code"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ExpiredAt       time.Time  `db:"expired_at" json:"expired_at"`
	LatestContent   *string    `db:"latest_content" json:"latest_ms_content"`
	LatestCreatedAt *time.Time `db:"latest_created_at" json:"latest_ms_time"`
	LatestUsername  *string    `db:"latest_username" json:"latest_ms_username"`
}

// WaitingListEntry is a pending join request against an approval-gated group.
// It is mutually exclusive with a Participant row for the same (user, group).
type WaitingListEntry struct {
	ID        int32     `db:"id" json:"id"`
	UserID    int32     `db:"user_id" json:"user_id"`
	GroupID   int32     `db:"group_id" json:"group_id"`
	Message   *string   `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WaitingUser is a waiting list entry joined with the requester's username.
type WaitingUser struct {
	ID       int32   `db:"id" json:"id"`
	UserID   int32   `db:"user_id" json:"user_id"`
	Username string  `db:"username" json:"username"`
	Message  *string `db:"message" json:"message"`
}
