package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/service"
)

type newGroupForm struct {
	Username        string `json:"username"`
	GroupName       string `json:"group_name"`
	Duration        int64  `json:"duration"` // minutes
	MaximumMembers  *int32 `json:"maximum_members"`
	ApprovalRequire bool   `json:"approval_require"`
}

type joinGroupForm struct {
	Username  string `json:"username"`
	GroupCode string `json:"group_code"`
	Message   string `json:"message"`
}

// groupResult is the shared response of group creation and joining.
type groupResult struct {
	UserID    int32  `json:"user_id"`
	Username  string `json:"username"`
	UserCode  string `json:"user_code"`
	GroupID   int32  `json:"group_id"`
	GroupName string `json:"group_name"`
	GroupCode string `json:"group_code"`
	ExpiredAt string `json:"expired_at"`
	IsWaiting bool   `json:"is_waiting"`
}

func groupResultOf(user model.User, group model.Group, waiting bool) groupResult {
	return groupResult{
		UserID:    user.ID,
		Username:  user.Username,
		UserCode:  user.UserCode,
		GroupID:   group.ID,
		GroupName: group.Name,
		GroupCode: group.GroupCode,
		ExpiredAt: group.ExpiredAt.UTC().Format(time.RFC3339),
		IsWaiting: waiting,
	}
}

// addUserGroup creates a group, creating the caller too when the x-user-code
// header is absent or unknown.
func (h *Handler) addUserGroup(w http.ResponseWriter, r *http.Request) {
	var form newGroupForm
	if !decodeBody(w, r, &form) {
		return
	}
	if form.GroupName == "" || form.Duration <= 0 {
		writeJSON(w, http.StatusBadRequest, Failure(1, "group_name and duration are required"))
		return
	}
	user, group, err := h.groups.CreateUserAndGroup(r.Context(),
		r.Header.Get(UserCodeHeader), form.Username, model.NewGroup{
			Name:             form.GroupName,
			ApprovalRequired: form.ApprovalRequire,
			MaximumMembers:   form.MaximumMembers,
			Duration:         time.Duration(form.Duration) * time.Minute,
		})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResultOf(user, group, false))
}

func (h *Handler) joinGroup(w http.ResponseWriter, r *http.Request) {
	var form joinGroupForm
	if !decodeBody(w, r, &form) {
		return
	}
	if form.GroupCode == "" {
		writeJSON(w, http.StatusBadRequest, Failure(1, "group_code is required"))
		return
	}
	var message *string
	if form.Message != "" {
		message = &form.Message
	}
	user, group, waiting, err := h.groups.JoinGroup(r.Context(),
		r.Header.Get(UserCodeHeader), form.Username, form.GroupCode, message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResultOf(user, group, waiting))
}

type groupListResponse struct {
	UserID   int32                `json:"user_id"`
	UserCode string               `json:"user_code"`
	TotalGr  int                  `json:"total_gr"`
	ListGr   []model.GroupPreview `json:"list_gr"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt32(r, "user_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid user_id"))
		return
	}
	user, previews, err := h.groups.ListGroups(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupListResponse{
		UserID:   user.ID,
		UserCode: user.UserCode,
		TotalGr:  len(previews),
		ListGr:   previews,
	})
}

type waitingListItem struct {
	ID       int32  `json:"id"`
	UserID   int32  `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (h *Handler) waitingList(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathInt32(r, "group_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid group_id"))
		return
	}
	page := pageFrom(r)
	waiting, count, err := h.groups.WaitingList(r.Context(), userFrom(r.Context()), groupID, page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]waitingListItem, 0, len(waiting))
	for _, wu := range waiting {
		msg := ""
		if wu.Message != nil {
			msg = *wu.Message
		}
		items = append(items, waitingListItem{ID: wu.ID, UserID: wu.UserID, Username: wu.Username, Message: msg})
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Count:      count,
		TotalPages: model.TotalPages(count, page.Normalize().Limit),
		Objects:    items,
	})
}

type processWaitingRequest struct {
	IsApproved bool `json:"is_approved"`
}

func (h *Handler) decideWaiting(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathInt32(r, "request_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid request_id"))
		return
	}
	var form processWaitingRequest
	if !decodeBody(w, r, &form) {
		return
	}
	if err := h.groups.DecideWaiting(r.Context(), userFrom(r.Context()), requestID, form.IsApproved); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type delGroupRequest struct {
	UserID  int32 `json:"u_id"`
	GroupID int32 `json:"gr_id"`
}

type delGroupResponse struct {
	GroupID   int32  `json:"gr_id"`
	GroupCode string `json:"gr_code"`
	DelStatus string `json:"del_status"`
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	var req delGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	group, err := h.groups.DeleteGroup(r.Context(), req.UserID, req.GroupID)
	if err != nil {
		// Missing user or group reports as a business failure, not a 404.
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusOK, Failure(1, err.Error()))
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Success(delGroupResponse{
		GroupID:   group.ID,
		GroupCode: group.GroupCode,
		DelStatus: "Deleted successfully",
	}))
}

type rmUserRequest struct {
	GroupID   int32 `json:"gr_id"`
	OwnerID   int32 `json:"gr_owner_id"`
	RemovedID int32 `json:"rm_user_id"`
}

func (h *Handler) removeUser(w http.ResponseWriter, r *http.Request) {
	var req rmUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.groups.RemoveUser(r.Context(), req.OwnerID, req.GroupID, req.RemovedID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"res_code": 200,
		"res_msg":  "User successfully removed from the group",
	})
}

type leaveGroupRequest struct {
	UserID  int32 `json:"u_id"`
	GroupID int32 `json:"gr_id"`
}

func (h *Handler) leaveGroup(w http.ResponseWriter, r *http.Request) {
	var req leaveGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.groups.LeaveGroup(r.Context(), req.UserID, req.GroupID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code": 200,
		"msg":  "User successfully leaved from the group",
	})
}

func pathInt32(r *http.Request, key string) (int32, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, key), 10, 32)
	return int32(v), err
}

func pageFrom(r *http.Request) model.PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return model.PageRequest{Page: page, Limit: limit}
}
