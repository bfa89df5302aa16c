package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himalthapa1/EduConnect/internal/auth"
	"github.com/himalthapa1/EduConnect/internal/blob"
	"github.com/himalthapa1/EduConnect/internal/directory"
	"github.com/himalthapa1/EduConnect/internal/models"
	"github.com/himalthapa1/EduConnect/internal/poll"
	"github.com/himalthapa1/EduConnect/internal/profile"
	"github.com/himalthapa1/EduConnect/internal/protocol"
	"github.com/himalthapa1/EduConnect/internal/room"
	"github.com/himalthapa1/EduConnect/internal/service"
	"github.com/himalthapa1/EduConnect/internal/store"
	"github.com/himalthapa1/EduConnect/internal/testutil"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

const secret = "ws-test-secret"

type env struct {
	srv   *httptest.Server
	hub   *Hub
	users map[string]models.User
	group models.StudyGroup
}

func newEnv(t *testing.T, opts Options) *env {
	gin.SetMode(gin.TestMode)
	gdb := testutil.OpenDB(t)
	e := &env{hub: NewHub(), users: map[string]models.User{}}
	for _, n := range []string{"ana", "bo", "cy"} {
		e.users[n] = testutil.User(t, gdb, n)
	}
	e.group = testutil.Group(t, gdb, e.users["ana"].ID, e.users["bo"].ID)

	st := store.New(gdb)
	dir := directory.New(gdb)
	profiles := profile.New(dir, nil, time.Minute)
	rooms := room.NewRegistry()
	msgs := service.NewMessageService(st, poll.NewEngine(st), dir, profiles, rooms, blob.Local{Dir: t.TempDir()})
	proto := protocol.New(protocol.Deps{
		Verifier:   auth.NewVerifier(secret, gdb),
		Membership: dir,
		Store:      st,
		Profiles:   profiles,
		Rooms:      rooms,
		Messages:   msgs,
	})

	r := gin.New()
	r.GET("/ws", NewServer(proto, e.hub, opts).Serve)
	e.srv = httptest.NewServer(r)
	t.Cleanup(func() {
		e.hub.Shutdown()
		e.srv.Close()
	})
	return e
}

func (e *env) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	token, err := auth.GenerateAccessToken(e.users[user].ID, secret, 5)
	require.NoError(t, err)
	return e.dialToken(t, token)
}

func (e *env) dialToken(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, c *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := wire.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, frame))
}

func read(t *testing.T, c *websocket.Conn) wire.Envelope {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	env, err := wire.Decode(data)
	require.NoError(t, err)
	return env
}

func TestBadTokenGetsErrorThenClose(t *testing.T) {
	e := newEnv(t, Options{})
	c := e.dialToken(t, "garbage")

	env := read(t, c)
	assert.Equal(t, wire.EventError, env.Type)
	assert.JSONEq(t, `{"message":"Authentication failed"}`, string(env.Data))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestJoinSendBroadcast(t *testing.T) {
	e := newEnv(t, Options{})
	ana := e.dial(t, "ana")
	bo := e.dial(t, "bo")
	join := map[string]any{"kind": "group", "groupId": e.group.ID}

	send(t, ana, wire.EventJoinRoom, join)
	assert.Equal(t, wire.EventRoomJoined, read(t, ana).Type)
	send(t, bo, wire.EventJoinRoom, join)
	assert.Equal(t, wire.EventRoomJoined, read(t, bo).Type)

	send(t, bo, wire.EventSendMessage, map[string]any{"chatType": "group", "groupId": e.group.ID, "content": "hello"})
	for _, c := range []*websocket.Conn{ana, bo} {
		env := read(t, c)
		require.Equal(t, wire.EventNewMessage, env.Type)
		var msg wire.MessageView
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "bo", msg.Sender.Username)
	}
	assert.Equal(t, 2, e.hub.Count())
}

func TestOutsiderCannotJoin(t *testing.T) {
	e := newEnv(t, Options{})
	cy := e.dial(t, "cy")

	send(t, cy, wire.EventJoinRoom, map[string]any{"kind": "group", "groupId": e.group.ID})
	env := read(t, cy)
	assert.Equal(t, wire.EventError, env.Type)
	assert.JSONEq(t, `{"message":"Access denied or invalid room"}`, string(env.Data))

	send(t, cy, wire.EventSendMessage, map[string]any{"chatType": "group", "groupId": e.group.ID, "content": "let me in"})
	env = read(t, cy)
	assert.JSONEq(t, `{"message":"Access denied"}`, string(env.Data))
}

func TestInboundRateLimit(t *testing.T) {
	e := newEnv(t, Options{EventsPerSecond: 0.001, EventBurst: 1})
	ana := e.dial(t, "ana")

	send(t, ana, wire.EventJoinRoom, map[string]any{"kind": "group", "groupId": e.group.ID})
	assert.Equal(t, wire.EventRoomJoined, read(t, ana).Type)
	send(t, ana, wire.EventJoinRoom, map[string]any{"kind": "group", "groupId": e.group.ID})
	env := read(t, ana)
	assert.JSONEq(t, `{"message":"Too many requests"}`, string(env.Data))
}

func TestDisconnectLeavesHub(t *testing.T) {
	e := newEnv(t, Options{})
	ana := e.dial(t, "ana")
	send(t, ana, wire.EventJoinRoom, map[string]any{"kind": "group", "groupId": e.group.ID})
	read(t, ana)
	require.NoError(t, ana.Close())

	assert.Eventually(t, func() bool { return e.hub.Count() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestUpgradeRequiresWebsocket(t *testing.T) {
	e := newEnv(t, Options{})
	resp, err := http.Get(e.srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTwoSendersSeeSameOrder(t *testing.T) {
	e := newEnv(t, Options{})
	ana := e.dial(t, "ana")
	bo := e.dial(t, "bo")
	for _, c := range []*websocket.Conn{ana, bo} {
		send(t, c, wire.EventJoinRoom, map[string]any{"kind": "group", "groupId": e.group.ID})
		require.Equal(t, wire.EventRoomJoined, read(t, c).Type)
	}

	send(t, ana, wire.EventSendMessage, map[string]any{"kind": "group", "groupId": e.group.ID, "content": "first"})
	require.Equal(t, wire.EventNewMessage, read(t, ana).Type)
	send(t, bo, wire.EventSendMessage, map[string]any{"kind": "group", "groupId": e.group.ID, "content": "second"})

	assert.Equal(t, "second", content(t, read(t, ana)))
	assert.Equal(t, "first", content(t, read(t, bo)))
	assert.Equal(t, "second", content(t, read(t, bo)))
}

func content(t *testing.T, env wire.Envelope) string {
	t.Helper()
	require.Equal(t, wire.EventNewMessage, env.Type)
	var msg wire.MessageView
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	return msg.Content
}
