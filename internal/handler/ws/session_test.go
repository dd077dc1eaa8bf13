package ws_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickroom/room-service/internal/adapter/pubsub"
	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/handler/ws"
	"github.com/quickroom/room-service/internal/protocol"
	"github.com/quickroom/room-service/internal/service"
	"github.com/quickroom/room-service/internal/storage/storagetest"
)

type wsFixture struct {
	store *storagetest.Fake
	url   string
}

func newFixture(t *testing.T, opts ...ws.Option) *wsFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storagetest.New()
	hub := registry.NewHub()
	t.Cleanup(hub.Shutdown)
	bus := pubsub.NewGroupBus(watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })
	bc := service.NewBroadcaster(bus, hub, store, logger)
	t.Cleanup(bc.Shutdown)
	auth := service.NewAuthService(store, logger)
	messages := service.NewMessageService(store, auth, bc, logger)

	handler := ws.NewHandler(logger, auth, messages, hub, opts...)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &wsFixture{
		store: store,
		url:   "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	frame, err := protocol.Decode(data)
	require.NoError(t, err)
	return frame
}

func authenticate(t *testing.T, conn *websocket.Conn, code string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"Authenticate":"`+code+`"}`)))
	frame := readFrame(t, conn)
	require.NotNil(t, frame.AuthenticateResponse)
	require.Equal(t, int32(0), frame.AuthenticateResponse.StatusCode)
}

func TestAuthenticateSuccess(t *testing.T) {
	fx := newFixture(t)
	fx.store.SeedUser("alice", "CODE-A")

	conn := dial(t, fx.url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"Authenticate":"CODE-A"}`)))

	frame := readFrame(t, conn)
	require.NotNil(t, frame.AuthenticateResponse)
	assert.Equal(t, int32(0), frame.AuthenticateResponse.StatusCode)
	assert.Equal(t, "Authenticated Successfully", frame.AuthenticateResponse.Message)
}

func TestAuthenticateUnknownCode(t *testing.T) {
	fx := newFixture(t)
	conn := dial(t, fx.url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"Authenticate":"NOBODY"}`)))

	frame := readFrame(t, conn)
	require.NotNil(t, frame.AuthenticateResponse)
	assert.Equal(t, int32(4), frame.AuthenticateResponse.StatusCode)

	// The session tears down after the failure.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestAuthenticateTimeout(t *testing.T) {
	fx := newFixture(t, ws.WithAuthTimeout(100*time.Millisecond))
	conn := dial(t, fx.url)

	// Say nothing; the deadline reply must still arrive before the close.
	frame := readFrame(t, conn)
	require.NotNil(t, frame.AuthenticateResponse)
	assert.Equal(t, int32(1), frame.AuthenticateResponse.StatusCode)
	assert.Equal(t, "Authentication Timeout", frame.AuthenticateResponse.Message)
}

func TestAuthenticateRejectsBinaryFrame(t *testing.T) {
	fx := newFixture(t)
	conn := dial(t, fx.url)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))

	frame := readFrame(t, conn)
	require.NotNil(t, frame.AuthenticateResponse)
	assert.Equal(t, int32(2), frame.AuthenticateResponse.StatusCode)
}

func TestAuthenticateRejectsMalformedJSON(t *testing.T) {
	fx := newFixture(t)
	conn := dial(t, fx.url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	frame := readFrame(t, conn)
	require.NotNil(t, frame.UnSupportMessage)
	assert.Equal(t, "Unsupported Message Format", *frame.UnSupportMessage)
}

func TestAuthenticateClosesOnOtherVariantFirst(t *testing.T) {
	fx := newFixture(t)
	conn := dial(t, fx.url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"SubscribeGroup":1}`)))

	// No reply; the socket just closes.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestSendFansOutToGroup(t *testing.T) {
	fx := newFixture(t)
	alice := fx.store.SeedUser("alice", "CODE-A")
	bob := fx.store.SeedUser("bob", "CODE-B")
	g := fx.store.SeedGroup(alice.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})
	require.NoError(t, fx.store.AddParticipant(t.Context(), bob.ID, g.ID))

	aliceConn := dial(t, fx.url)
	bobConn := dial(t, fx.url)
	authenticate(t, aliceConn, "CODE-A")
	authenticate(t, bobConn, "CODE-B")

	send := `{"Send":{"message_uuid":"1b4e28ba-2fa1-11d2-883f-0016d3cca427","group_id":` +
		int32s(g.ID) + `,"content":"hello room"}}`
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(send)))

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		frame := readFrame(t, conn)
		require.NotNil(t, frame.Receive)
		assert.Equal(t, "hello room", frame.Receive.Content)
		require.NotNil(t, frame.Receive.Username)
		assert.Equal(t, "alice", *frame.Receive.Username)
	}
}

func TestSendByNonParticipantGetsNoPermission(t *testing.T) {
	fx := newFixture(t)
	alice := fx.store.SeedUser("alice", "CODE-A")
	fx.store.SeedUser("carol", "CODE-C")
	g := fx.store.SeedGroup(alice.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})

	conn := dial(t, fx.url)
	authenticate(t, conn, "CODE-C")

	send := `{"Send":{"message_uuid":"1b4e28ba-2fa1-11d2-883f-0016d3cca427","group_id":` +
		int32s(g.ID) + `,"content":"sneaky"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(send)))

	frame := readFrame(t, conn)
	require.NotNil(t, frame.AuthenticateResponse)
	assert.Equal(t, int32(3), frame.AuthenticateResponse.StatusCode)
}

func TestSubscribeGroupAfterAuth(t *testing.T) {
	fx := newFixture(t)
	alice := fx.store.SeedUser("alice", "CODE-A")
	g := fx.store.SeedGroup(alice.ID, "ROOM", model.NewGroup{Name: "room", Duration: time.Hour})

	conn := dial(t, fx.url)
	authenticate(t, conn, "CODE-A")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"SubscribeGroup":`+int32s(g.ID)+`}`)))
	frame := readFrame(t, conn)
	require.NotNil(t, frame.SubscribeGroupResponse)
	assert.Equal(t, int32(0), frame.SubscribeGroupResponse.StatusCode)
	assert.Equal(t, "Subscribed successfully", frame.SubscribeGroupResponse.Message)
}

func TestMalformedFrameAfterAuthTerminates(t *testing.T) {
	fx := newFixture(t)
	fx.store.SeedUser("alice", "CODE-A")

	conn := dial(t, fx.url)
	authenticate(t, conn, "CODE-A")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"Nope":true}`)))
	frame := readFrame(t, conn)
	require.NotNil(t, frame.UnSupportMessage)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func int32s(v int32) string {
	return strconv.Itoa(int(v))
}
