package model

import "time"

// SortOrder of a message listing by created_at. Descending is the default.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

func (o SortOrder) OrDefault() SortOrder {
	if o == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// MessageFilter narrows a message listing. Nil fields are ignored.
// FromDate/ToDate are calendar dates; the range covers the whole days.
type MessageFilter struct {
	MessageType *MessageType
	Content     *string
	Status      *MessageStatus
	FromDate    *time.Time
	ToDate      *time.Time
}

const (
	DefaultPageSize  = 10
	DefaultPageStart = 1
)

// PageRequest is 1-based. Zero values fall back to the defaults.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Normalize() PageRequest {
	if p.Page < DefaultPageStart {
		p.Page = DefaultPageStart
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// TotalPages rounds up the page count for a given row count.
func TotalPages(count int64, perPage int) int64 {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	pages := count / int64(perPage)
	if count%int64(perPage) > 0 {
		pages++
	}
	return pages
}
