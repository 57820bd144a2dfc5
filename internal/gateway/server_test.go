package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hollowroot/verse/internal/chat"
	"github.com/hollowroot/verse/internal/config"
	"github.com/hollowroot/verse/internal/progress"
	"github.com/hollowroot/verse/internal/session"
	"github.com/hollowroot/verse/internal/world"
	"github.com/hollowroot/verse/internal/worldserver"
)

const testAdminToken = "test-secret"

type testGateway struct {
	srv      *Server
	sessions *session.Registry
	ts       *httptest.Server
}

func newTestGateway(t *testing.T, adminToken string) *testGateway {
	t.Helper()

	catalog, err := world.NewCatalog(world.DefaultRooms())
	require.NoError(t, err)
	sessions := session.NewRegistry()

	ctrl := worldserver.NewController(
		catalog,
		sessions,
		session.NewMembership(),
		progress.NewEngine(progress.DefaultAchievements(), 100, 1.5),
		chat.NewService(500, 100),
		nil,
		config.WorldConfig{DefaultRoom: "main-world", SpawnJitter: 0.3, SpawnJitterCap: 20},
		config.ChatConfig{CommandPrefix: "/"},
		zap.NewNop(),
	)

	disp := worldserver.NewDispatcher(zap.NewNop(), 0, ctrl.Sweep)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = disp.Start()
	}()
	t.Cleanup(func() {
		disp.Stop()
		<-done
	})

	srv := NewServer(
		config.ServerConfig{AdminToken: adminToken, ShutdownTimeout: time.Second},
		ctrl, disp, sessions, zap.NewNop(),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testGateway{srv: srv, sessions: sessions, ts: ts}
}

func (g *testGateway) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until an envelope with the given event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) worldserver.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i < 20; i++ {
		var env worldserver.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("event %q never arrived", event)
	return worldserver.Envelope{}
}

func (g *testGateway) adminReq(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, g.ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(adminTokenHeader, token)
	}
	resp, err := g.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_WebsocketJoinRoundTrip(t *testing.T) {
	g := newTestGateway(t, "")
	conn := g.dial(t)

	require.NoError(t, conn.WriteJSON(worldserver.Envelope{
		Event: "join-world",
		Data:  json.RawMessage(`{"displayName":"Alice"}`),
	}))

	env := readUntil(t, conn, "room-data")
	var rd worldserver.RoomData
	require.NoError(t, json.Unmarshal(env.Data, &rd))
	assert.Equal(t, "main-world", rd.Room.ID)

	env = readUntil(t, conn, "user-data")
	var ud worldserver.UserData
	require.NoError(t, json.Unmarshal(env.Data, &ud))
	assert.Equal(t, "Alice", ud.Session.DisplayName)
	assert.NotEmpty(t, ud.Session.Handle)
}

func TestServer_WebsocketErrorEvent(t *testing.T) {
	g := newTestGateway(t, "")
	conn := g.dial(t)

	require.NoError(t, conn.WriteJSON(worldserver.Envelope{
		Event: "join-world",
		Data:  json.RawMessage(`{"roomId":"nowhere"}`),
	}))

	env := readUntil(t, conn, "error")
	var ee worldserver.ErrorEvent
	require.NoError(t, json.Unmarshal(env.Data, &ee))
	assert.Equal(t, worldserver.KindRoomNotFound, ee.Kind)
}

func TestServer_WebsocketDisconnectCleansUp(t *testing.T) {
	g := newTestGateway(t, "")
	conn := g.dial(t)

	require.NoError(t, conn.WriteJSON(worldserver.Envelope{
		Event: "join-world",
		Data:  json.RawMessage(`{"displayName":"Alice"}`),
	}))
	readUntil(t, conn, "room-data")
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return g.sessions.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Healthz(t *testing.T) {
	g := newTestGateway(t, "")
	resp, err := g.ts.Client().Get(g.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_AdminAuth(t *testing.T) {
	g := newTestGateway(t, testAdminToken)

	resp := g.adminReq(t, http.MethodGet, "/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = g.adminReq(t, http.MethodGet, "/admin/stats", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = g.adminReq(t, http.MethodGet, "/admin/stats", testAdminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_AdminDisabledWithoutToken(t *testing.T) {
	g := newTestGateway(t, "")
	resp := g.adminReq(t, http.MethodGet, "/admin/stats", "anything", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AdminStats(t *testing.T) {
	g := newTestGateway(t, testAdminToken)

	resp := g.adminReq(t, http.MethodGet, "/admin/stats", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats worldserver.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Zero(t, stats.Sessions)
	assert.Len(t, stats.Rooms, 3)
}

func TestServer_AdminObjectCRUD(t *testing.T) {
	g := newTestGateway(t, testAdminToken)

	resp := g.adminReq(t, http.MethodPost, "/admin/rooms/main-world/objects", testAdminToken, objectRequest{
		ID:   "pinata",
		Type: world.TypeChest,
		Name: "Pinata",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	name := "Golden Pinata"
	resp = g.adminReq(t, http.MethodPatch, "/admin/rooms/main-world/objects/pinata", testAdminToken, objectPatch{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.adminReq(t, http.MethodDelete, "/admin/rooms/main-world/objects/pinata", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.adminReq(t, http.MethodDelete, "/admin/rooms/main-world/objects/pinata", testAdminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = g.adminReq(t, http.MethodPost, "/admin/rooms/nowhere/objects", testAdminToken, objectRequest{ID: "x", Type: world.TypeChest})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AdminKickUnknownUser(t *testing.T) {
	g := newTestGateway(t, testAdminToken)

	resp := g.adminReq(t, http.MethodPost, "/admin/kick", testAdminToken, map[string]string{"target": "nobody"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
