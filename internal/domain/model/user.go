package model

import "time"

// User is identified to clients only by its opaque UserCode; there is no
// password and the code is never rotated in-process.
type User struct {
	ID        int32     `db:"id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	UserCode  string    `db:"user_code" json:"user_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
