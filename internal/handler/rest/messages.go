package rest

import (
	"net/http"
	"time"

	"github.com/quickroom/room-service/internal/domain/model"
)

const filterDateLayout = "2006-01-02"

// groupMessages pages the history of a group for an authenticated
// participant, with optional filtering by type, content, status and date.
func (h *Handler) groupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathInt32(r, "group_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid group_id"))
		return
	}
	q := r.URL.Query()

	var filter model.MessageFilter
	if v := q.Get("message_type"); v != "" {
		mt := model.MessageType(v)
		if !mt.Valid() {
			writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid message_type"))
			return
		}
		filter.MessageType = &mt
	}
	if v := q.Get("content"); v != "" {
		filter.Content = &v
	}
	if v := q.Get("status"); v != "" {
		st := model.MessageStatus(v)
		if !st.Valid() {
			writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid status"))
			return
		}
		filter.Status = &st
	}
	if v := q.Get("from_date"); v != "" {
		t, err := time.Parse(filterDateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid from_date, expected YYYY-MM-DD"))
			return
		}
		filter.FromDate = &t
	}
	if v := q.Get("to_date"); v != "" {
		t, err := time.Parse(filterDateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid to_date, expected YYYY-MM-DD"))
			return
		}
		filter.ToDate = &t
	}

	sort := model.SortOrder(q.Get("sort"))
	page := pageFrom(r)

	msgs, count, err := h.messages.History(r.Context(), userFrom(r.Context()), groupID, filter, sort, page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Count:      count,
		TotalPages: model.TotalPages(count, page.Normalize().Limit),
		Objects:    msgs,
	})
}
