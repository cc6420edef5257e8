package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/meetrelay/internal/adapters/auth"
	"github.com/dkeye/meetrelay/internal/adapters/store"
	"github.com/dkeye/meetrelay/internal/codec"
	"github.com/dkeye/meetrelay/internal/config"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/mocks"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:   "test",
		Secret: "test-secret",
		Server: config.ServerConfig{ShutdownTimeout: 2 * time.Second},
		Relay: config.RelayConfig{
			MaxFrameSize:     1 << 20,
			MaxChatLength:    1000,
			HandshakeTimeout: 2 * time.Second,
			WriteTimeout:     2 * time.Second,
			AuthTimeout:      2 * time.Second,
			LeaveTimeout:     time.Second,
			SendQueueSize:    64,
			HistoryOnJoin:    10,
		},
		Store: config.StoreConfig{PersistQueueSize: 64, PersistTimeout: time.Second},
	}
}

type testEnv struct {
	t      *testing.T
	srv    *Server
	signer *auth.Signer
	msgs   *mocks.MockMessageStore
}

// newEnv starts a relay whose directory and rosters live in an in-memory
// Badger store and whose message store is a mock.
func newEnv(t *testing.T, expect func(m *mocks.MockMessageStore)) *testEnv {
	t.Helper()
	return newEnvWith(t, testConfig(), expect)
}

func newEnvWith(t *testing.T, cfg *config.Config, expect func(m *mocks.MockMessageStore)) *testEnv {
	t.Helper()
	r := require.New(t)
	ctrl := gomock.NewController(t)
	msgs := mocks.NewMockMessageStore(ctrl)
	if expect != nil {
		expect(msgs)
	}
	msgs.EXPECT().RecentChats(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	msgs.EXPECT().RecordJoined(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	msgs.EXPECT().RecordLeft(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	st, err := store.Open("")
	r.NoError(err)
	t.Cleanup(func() { _ = st.Close() })
	r.NoError(st.Seed(
		[]domain.Meeting{{ID: "M1", ClassID: "C1"}, {ID: "M2", ClassID: "C1"}},
		map[domain.ClassID][]domain.UserID{"C1": {"alice", "bob", "carol"}},
	))

	signer, err := auth.NewSigner("test-secret")
	r.NoError(err)

	srv := New(cfg, Deps{
		Authority: auth.NewAuthority(signer, st),
		Directory: st,
		Store:     msgs,
	})
	tcpLn, err := net.Listen("tcp", "127.0.0.1:0")
	r.NoError(err)
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	r.NoError(err)
	r.NoError(srv.Serve(context.Background(), tcpLn, httpLn))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{t: t, srv: srv, signer: signer, msgs: msgs}
}

func (e *testEnv) token(uid string) string {
	e.t.Helper()
	tok, err := e.signer.GenerateToken(uid, strings.ToUpper(uid[:1])+uid[1:], time.Hour)
	require.NoError(e.t, err)
	return tok
}

type tcpClient struct {
	t    *testing.T
	conn net.Conn
}

func (e *testEnv) dial() *tcpClient {
	e.t.Helper()
	c, err := net.Dial("tcp", e.srv.TCPAddr().String())
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = c.Close() })
	return &tcpClient{t: e.t, conn: c}
}

func (e *testEnv) join(uid, meetingID string) *tcpClient {
	e.t.Helper()
	c := e.dial()
	c.send(map[string]any{"type": "handshake", "credential": e.token(uid), "meeting_id": meetingID, "version": 1})
	c.expect("room_state")
	return c
}

func (c *tcpClient) send(v any) {
	c.t.Helper()
	b, err := json.Marshal(v)
	require.NoError(c.t, err)
	_, err = c.conn.Write(codec.Encode(b))
	require.NoError(c.t, err)
}

func (c *tcpClient) next() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	payload, err := codec.Decode(c.conn, 0)
	require.NoError(c.t, err)
	var m map[string]any
	require.NoError(c.t, json.Unmarshal(payload, &m))
	return m
}

func (c *tcpClient) expect(typ string) map[string]any {
	c.t.Helper()
	for {
		if m := c.next(); m["type"] == typ {
			return m
		}
	}
}

func (e *testEnv) waitMembers(meetingID domain.MeetingID, n int) {
	e.t.Helper()
	require.Eventually(e.t, func() bool {
		return e.srv.Registry.MemberCount(meetingID) == n
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRelay_JoinAnnouncesPresence(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, nil)

	a := e.join("alice", "M1")
	r.Equal(1, e.srv.Registry.MemberCount("M1"))

	e.join("bob", "M1")
	p := a.expect("presence")
	r.Equal("joined", p["event"])
	r.Equal("bob", p["user_id"])
	r.Equal("Bob", p["username"])
}

func TestRelay_ChatDeliveredAndPersisted(t *testing.T) {
	r := require.New(t)

	var (
		mu     sync.Mutex
		stored []domain.ChatMessage
	)
	e := newEnv(t, func(m *mocks.MockMessageStore) {
		m.EXPECT().AppendChat(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg domain.ChatMessage) error {
			mu.Lock()
			stored = append(stored, msg)
			mu.Unlock()
			return nil
		}).Times(1)
	})

	a := e.join("alice", "M1")
	b := e.join("bob", "M1")
	a.expect("presence")

	before := time.Now().UTC().Truncate(time.Second)
	a.send(map[string]any{"type": "chat", "content": "hi"})

	got := b.expect("chat")
	r.NotEmpty(got["message_id"])
	r.Equal("hi", got["content"])
	r.Equal("alice", got["user_id"])
	sentAt, err := time.Parse(time.RFC3339Nano, got["sent_at"].(string))
	r.NoError(err)
	r.False(sentAt.Before(before))

	echo := a.expect("chat")
	r.Equal(got["message_id"], echo["message_id"])

	r.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(stored) == 1
	}, 3*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	r.Equal(domain.MeetingID("M1"), stored[0].MeetingID)
	r.Equal(domain.UserID("alice"), stored[0].UserID)
	r.Equal("hi", stored[0].Content)
	r.Equal(got["message_id"], stored[0].ID)
	r.True(stored[0].SentAt.Equal(sentAt))
}

func TestRelay_PersistenceFailureDoesNotBlockChat(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, func(m *mocks.MockMessageStore) {
		m.EXPECT().AppendChat(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).AnyTimes()
	})

	a := e.join("alice", "M1")
	b := e.join("bob", "M1")
	a.expect("presence")

	a.send(map[string]any{"type": "chat", "content": "still here"})
	r.Equal("still here", b.expect("chat")["content"])
}

func TestRelay_AbruptDisconnect(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, nil)

	a := e.join("alice", "M1")
	b := e.join("bob", "M1")
	a.expect("presence")

	r.NoError(a.conn.Close())

	left := b.expect("presence")
	r.Equal("left", left["event"])
	r.Equal("alice", left["user_id"])
	e.waitMembers("M1", 1)
	_, ok := e.srv.Registry.Member("M1", "alice")
	r.False(ok)
}

func TestRelay_InvalidCredentialRejected(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, nil)
	e.join("alice", "M1")

	c := e.dial()
	c.send(map[string]any{"type": "handshake", "credential": "forged", "meeting_id": "M1"})
	closeMsg := c.expect("close")
	r.EqualValues(1008, closeMsg["code"])
	r.Equal("unauthorized", closeMsg["reason"])

	_, err := codec.Decode(c.conn, 0)
	r.ErrorIs(err, io.EOF)
	r.Equal(1, e.srv.Registry.MemberCount("M1"))
}

func TestRelay_RoomIsolation(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, func(m *mocks.MockMessageStore) {
		m.EXPECT().AppendChat(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	})

	a := e.join("alice", "M1")
	c := e.join("carol", "M2")

	a.send(map[string]any{"type": "chat", "content": "for M1 only"})
	a.send(map[string]any{"type": "media", "data": "AAEC"})
	a.expect("chat")

	// the first thing carol sees after her own ping is the pong
	c.send(map[string]any{"type": "ping"})
	r.Equal("pong", c.next()["type"])
}

func TestRelay_WebSocketAndTCPShareRooms(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, nil)

	tcp := e.join("alice", "M1")

	url := "ws://" + e.srv.HTTPAddr().String() + "/ws/meeting/M1?token=" + e.token("bob")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	r.NoError(err)
	defer ws.Close()

	readWS := func() map[string]any {
		r.NoError(ws.SetReadDeadline(time.Now().Add(3 * time.Second)))
		mt, data, err := ws.ReadMessage()
		r.NoError(err)
		r.Equal(websocket.BinaryMessage, mt)
		payload, err := codec.Decode(strings.NewReader(string(data)), 0)
		r.NoError(err)
		var m map[string]any
		r.NoError(json.Unmarshal(payload, &m))
		return m
	}
	r.Equal("room_state", readWS()["type"])
	r.Equal("bob", tcp.expect("presence")["user_id"])

	tcp.send(map[string]any{"type": "media", "data": "AQID"})
	media := readWS()
	r.Equal("media", media["type"])
	r.Equal("alice", media["user_id"])
	r.Equal("AQID", media["data"])

	payload, err := json.Marshal(map[string]any{"type": "leave"})
	r.NoError(err)
	r.NoError(ws.WriteMessage(websocket.BinaryMessage, codec.Encode(payload)))
	_, _, err = ws.ReadMessage()
	var ce *websocket.CloseError
	r.True(errors.As(err, &ce))
	r.Equal(websocket.CloseNormalClosure, ce.Code)
	r.Equal("left", ce.Text)
	r.Equal("left", tcp.expect("presence")["event"])
}

func TestRelay_SignalRouteWaitsForHandshake(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, nil)
	tcp := e.join("alice", "M1")

	// given: a token in the URL but no meeting in the path
	url := "ws://" + e.srv.HTTPAddr().String() + "/api/ws/signal?token=" + e.token("bob")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	r.NoError(err)
	defer ws.Close()

	// when
	hs, err := json.Marshal(map[string]any{"type": "handshake", "credential": e.token("bob"), "meeting_id": "M1", "version": 1})
	r.NoError(err)
	r.NoError(ws.WriteMessage(websocket.BinaryMessage, codec.Encode(hs)))

	// then
	r.NoError(ws.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, data, err := ws.ReadMessage()
	r.NoError(err)
	payload, err := codec.Decode(strings.NewReader(string(data)), 0)
	r.NoError(err)
	var m map[string]any
	r.NoError(json.Unmarshal(payload, &m))
	r.Equal("room_state", m["type"])
	r.Equal("bob", tcp.expect("presence")["user_id"])
}

func TestRelay_Shutdown(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, nil)

	a := e.join("alice", "M1")
	b := e.join("bob", "M2")

	r.NoError(e.srv.Shutdown(context.Background()))

	for _, c := range []*tcpClient{a, b} {
		m := c.expect("close")
		r.EqualValues(1001, m["code"])
		r.Equal("server_shutdown", m["reason"])
	}
	r.Empty(e.srv.Registry.List())
	r.Equal(0, e.srv.Controller.ActiveSessions())

	_, err := net.DialTimeout("tcp", e.srv.TCPAddr().String(), 200*time.Millisecond)
	r.Error(err)
}

func TestRelay_ForcedEvictionRecordsDeparture(t *testing.T) {
	r := require.New(t)
	release := make(chan struct{})
	var left atomic.Int32

	cfg := testConfig()
	cfg.Server.ShutdownTimeout = 300 * time.Millisecond
	e := newEnvWith(t, cfg, func(m *mocks.MockMessageStore) {
		// history never arrives, so alice stays stuck in her join
		m.EXPECT().RecentChats(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, domain.MeetingID, int) ([]domain.ChatMessage, error) {
				<-release
				return nil, nil
			}).AnyTimes()
		m.EXPECT().RecordLeft(gomock.Any(), domain.MeetingID("M1"), domain.UserID("alice"), gomock.Any()).DoAndReturn(
			func(context.Context, domain.MeetingID, domain.UserID, time.Time) error {
				left.Add(1)
				return nil
			}).AnyTimes()
	})
	t.Cleanup(func() { close(release) })

	c := e.dial()
	c.send(map[string]any{"type": "handshake", "credential": e.token("alice"), "meeting_id": "M1", "version": 1})
	e.waitMembers("M1", 1)

	// when
	r.Error(e.srv.Shutdown(context.Background()))

	// then
	r.Empty(e.srv.Registry.List())
	r.EqualValues(1, left.Load())
}
