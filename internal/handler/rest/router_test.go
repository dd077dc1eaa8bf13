package rest_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickroom/room-service/config"
	"github.com/quickroom/room-service/internal/adapter/pubsub"
	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/handler/rest"
	"github.com/quickroom/room-service/internal/handler/ws"
	"github.com/quickroom/room-service/internal/service"
	"github.com/quickroom/room-service/internal/storage/storagetest"
)

type restFixture struct {
	store *storagetest.Fake
	srv   *httptest.Server
}

func newFixture(t *testing.T) *restFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{UploadsDir: t.TempDir()}
	store := storagetest.New()
	hub := registry.NewHub()
	t.Cleanup(hub.Shutdown)
	bus := pubsub.NewGroupBus(watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })
	bc := service.NewBroadcaster(bus, hub, store, logger)
	t.Cleanup(bc.Shutdown)
	auth := service.NewAuthService(store, logger)
	groups := service.NewGroupService(store, auth, bc, logger)
	messages := service.NewMessageService(store, auth, bc, logger)

	handler := rest.NewHandler(cfg, logger, auth, groups, messages)
	wsHandler := ws.NewHandler(logger, auth, messages, hub)
	srv := httptest.NewServer(rest.NewRouter(handler, wsHandler))
	t.Cleanup(srv.Close)

	return &restFixture{store: store, srv: srv}
}

func (f *restFixture) post(t *testing.T, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return f.do(t, req)
}

func (f *restFixture) get(t *testing.T, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return f.do(t, req)
}

func (f *restFixture) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func unmarshal(t *testing.T, data []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v), "body: %s", data)
}

func TestHome(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "room-service is running", string(body))
}

func TestAddUser(t *testing.T) {
	f := newFixture(t)
	resp, body := f.post(t, "/add-user", map[string]string{"username": "alice"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env rest.CommonResponse
	unmarshal(t, body, &env)
	assert.Equal(t, int32(0), env.Code)
	assert.Equal(t, "Success", env.Msg)

	user := env.Data.(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotEmpty(t, user["user_code"])
}

func TestAddUserDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.store.SeedUser("alice", "CODE-A")

	resp, body := f.post(t, "/add-user", map[string]string{"username": "alice"}, nil)
	// Business failure rides a 200 with a non-zero envelope code.
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env rest.CommonResponse
	unmarshal(t, body, &env)
	assert.Equal(t, int32(1), env.Code)
	assert.Equal(t, "Username already exists", env.Msg)
}

func TestAddUserGroup(t *testing.T) {
	f := newFixture(t)
	resp, body := f.post(t, "/add-user-group", map[string]any{
		"username":   "alice",
		"group_name": "my room",
		"duration":   60,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	unmarshal(t, body, &result)
	assert.Equal(t, "alice", result["username"])
	assert.Equal(t, "my room", result["group_name"])
	assert.NotEmpty(t, result["user_code"])
	assert.NotEmpty(t, result["group_code"])
	assert.False(t, result["is_waiting"].(bool))

	expiredAt, err := time.Parse(time.RFC3339, result["expired_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiredAt, time.Minute)
}

func TestAddUserGroupValidation(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.post(t, "/add-user-group", map[string]any{"username": "alice"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJoinGroupWaiting(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	f.store.SeedGroup(owner.ID, "GATED", model.NewGroup{
		Name: "gated", Duration: time.Hour, ApprovalRequired: true,
	})

	resp, body := f.post(t, "/join-group", map[string]any{
		"username":   "bob",
		"group_code": "GATED",
		"message":    "let me in",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	unmarshal(t, body, &result)
	assert.True(t, result["is_waiting"].(bool))
}

func TestJoinGroupUnknownCodeIs404(t *testing.T) {
	f := newFixture(t)
	resp, body := f.post(t, "/join-group", map[string]any{
		"username":   "bob",
		"group_code": "NOSUCH",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var env rest.CommonResponse
	unmarshal(t, body, &env)
	assert.Equal(t, "Not found group with group_code: NOSUCH", env.Msg)
}

func TestListGroups(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	f.store.SeedGroup(owner.ID, "A", model.NewGroup{Name: "a", Duration: time.Hour})
	f.store.SeedGroup(owner.ID, "B", model.NewGroup{Name: "b", Duration: time.Hour})

	resp, body := f.get(t, "/gr/list/"+strconv.Itoa(int(owner.ID)), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	unmarshal(t, body, &result)
	assert.Equal(t, float64(owner.ID), result["user_id"])
	assert.Equal(t, "CODE-O", result["user_code"])
	assert.Equal(t, float64(2), result["total_gr"])
	assert.Len(t, result["list_gr"].([]any), 2)
}

func TestWaitingListRequiresUserCode(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	g := f.store.SeedGroup(owner.ID, "GATED", model.NewGroup{
		Name: "gated", Duration: time.Hour, ApprovalRequired: true,
	})
	path := "/waiting-list/" + strconv.Itoa(int(g.ID))

	resp, _ := f.get(t, path, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.get(t, path, map[string]string{"x-user-code": "WRONG"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWaitingListAndDecide(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	g := f.store.SeedGroup(owner.ID, "GATED", model.NewGroup{
		Name: "gated", Duration: time.Hour, ApprovalRequired: true,
	})
	resp, _ := f.post(t, "/join-group", map[string]any{
		"username": "bob", "group_code": "GATED",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	path := "/waiting-list/" + strconv.Itoa(int(g.ID))
	resp, body := f.get(t, path, map[string]string{"x-user-code": "CODE-O"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list rest.ListResponse
	unmarshal(t, body, &list)
	assert.Equal(t, int64(1), list.Count)
	assert.Equal(t, int64(1), list.TotalPages)
	items := list.Objects.([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "bob", item["username"])

	requestID := int(item["id"].(float64))
	resp, _ = f.post(t, "/waiting-list/"+strconv.Itoa(requestID),
		map[string]any{"is_approved": true}, map[string]string{"x-user-code": "CODE-O"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Queue is empty now.
	resp, _ = f.get(t, path, map[string]string{"x-user-code": "CODE-O"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteGroup(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	g := f.store.SeedGroup(owner.ID, "DOOMED", model.NewGroup{Name: "doomed", Duration: time.Hour})

	resp, body := f.post(t, "/del-gr", map[string]any{
		"u_id": owner.ID, "gr_id": g.ID,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env rest.CommonResponse
	unmarshal(t, body, &env)
	require.Equal(t, int32(0), env.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "Deleted successfully", data["del_status"])
	assert.Equal(t, "DOOMED", data["gr_code"])
}

func TestDeleteGroupMissingReportsBusinessFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")

	resp, body := f.post(t, "/del-gr", map[string]any{
		"u_id": owner.ID, "gr_id": 9999,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env rest.CommonResponse
	unmarshal(t, body, &env)
	assert.Equal(t, int32(1), env.Code)
	assert.Equal(t, "Group does not exist or is expired", env.Msg)
}

func TestDeleteGroupUnauthorized(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	bob := f.store.SeedUser("bob", "CODE-B")
	g := f.store.SeedGroup(owner.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})

	resp, _ := f.post(t, "/del-gr", map[string]any{
		"u_id": bob.ID, "gr_id": g.ID,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRemoveUserFromGroup(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	bob := f.store.SeedUser("bob", "CODE-B")
	g := f.store.SeedGroup(owner.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})
	require.NoError(t, f.store.AddParticipant(t.Context(), bob.ID, g.ID))

	resp, body := f.post(t, "/rm-user-from-group", map[string]any{
		"gr_id": g.ID, "gr_owner_id": owner.ID, "rm_user_id": bob.ID,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	unmarshal(t, body, &result)
	assert.Equal(t, float64(200), result["res_code"])
	assert.Equal(t, "User successfully removed from the group", result["res_msg"])
}

func TestLeaveGroup(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	bob := f.store.SeedUser("bob", "CODE-B")
	g := f.store.SeedGroup(owner.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})
	require.NoError(t, f.store.AddParticipant(t.Context(), bob.ID, g.ID))

	resp, body := f.post(t, "/leave-gr", map[string]any{
		"u_id": bob.ID, "gr_id": g.ID,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	unmarshal(t, body, &result)
	assert.Equal(t, "User successfully leaved from the group", result["msg"])
}

func TestGroupMessagesRequiresMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.store.SeedUser("owner", "CODE-O")
	f.store.SeedUser("carol", "CODE-C")
	g := f.store.SeedGroup(owner.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})
	path := "/groups/" + strconv.Itoa(int(g.ID)) + "/messages"

	resp, _ := f.get(t, path, map[string]string{"x-user-code": "CODE-C"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := f.get(t, path, map[string]string{"x-user-code": "CODE-O"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list rest.ListResponse
	unmarshal(t, body, &list)
	assert.Zero(t, list.Count)
}

func TestUploadAndServeFile(t *testing.T) {
	f := newFixture(t)
	f.store.SeedUser("alice", "CODE-A")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello file"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-user-code", "CODE-A")
	resp, body := f.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fileResp map[string]any
	unmarshal(t, body, &fileResp)
	name := fileResp["name"].(string)
	assert.True(t, strings.HasSuffix(name, "_note.txt"), name)
	assert.Equal(t, "/files/"+name, fileResp["file_path"])

	resp, served := f.get(t, "/files/"+name, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello file", string(served))
}

func TestServeFileMissing(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/files/never-uploaded.txt", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "404: File not found", strings.TrimSpace(string(body)))
}

func TestUploadWithoutFileField(t *testing.T) {
	f := newFixture(t)
	f.store.SeedUser("alice", "CODE-A")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-user-code", "CODE-A")
	resp, body := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var env rest.CommonResponse
	unmarshal(t, body, &env)
	assert.Equal(t, "Missing field: file", env.Msg)
}
