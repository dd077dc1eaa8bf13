package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quickroom/room-service/internal/domain/model"
)

func TestMessagePredicatesGroupOnly(t *testing.T) {
	where, args := messagePredicates(7, model.MessageFilter{})
	assert.Equal(t, "group_id = $1", where)
	assert.Equal(t, []any{int32(7)}, args)
}

func TestMessagePredicatesAllFilters(t *testing.T) {
	mt := model.MessageTypeAttachment
	content := "hello"
	status := model.StatusSeen
	from := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 1, 0, 0, 0, time.UTC)

	where, args := messagePredicates(3, model.MessageFilter{
		MessageType: &mt,
		Content:     &content,
		Status:      &status,
		FromDate:    &from,
		ToDate:      &to,
	})

	assert.Equal(t,
		"group_id = $1 AND message_type = $2 AND content LIKE '%' || $3 || '%' AND status = $4 AND created_at >= $5 AND created_at < $6",
		where)
	assert.Equal(t, []any{
		int32(3),
		mt,
		content,
		status,
		time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}, args)
}

func TestMessagePredicatesDateBoundsNormalizeToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	from := time.Date(2026, 1, 2, 3, 0, 0, 0, loc) // 2026-01-01T20:00Z

	where, args := messagePredicates(1, model.MessageFilter{FromDate: &from})
	assert.Equal(t, "group_id = $1 AND created_at >= $2", where)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), args[1])
}

func TestSortOrderDefaultsToDescending(t *testing.T) {
	assert.Equal(t, model.SortDesc, model.SortOrder("").OrDefault())
	assert.Equal(t, model.SortDesc, model.SortOrder("sideways").OrDefault())
	assert.Equal(t, model.SortAsc, model.SortAsc.OrDefault())
}

func TestPageRequestNormalization(t *testing.T) {
	p := model.PageRequest{}.Normalize()
	assert.Equal(t, model.DefaultPageStart, p.Page)
	assert.Equal(t, model.DefaultPageSize, p.Limit)
	assert.Zero(t, model.PageRequest{}.Offset())

	assert.Equal(t, 40, model.PageRequest{Page: 3, Limit: 20}.Offset())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, int64(0), model.TotalPages(0, 10))
	assert.Equal(t, int64(1), model.TotalPages(10, 10))
	assert.Equal(t, int64(2), model.TotalPages(11, 10))
	assert.Equal(t, int64(3), model.TotalPages(21, 10))
}
