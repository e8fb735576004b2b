package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/auth"
	"github.com/lumen-analytics/backend/internal/middleware"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type dir map[uuid.UUID]*models.Membership

func (d dir) Find(_ context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	m := d[userID]
	if m == nil || m.WorkspaceID != workspaceID {
		return nil, nil
	}
	return m, nil
}

type liveServer struct {
	*httptest.Server
	jwt *auth.JWTService
	hub *Hub
}

func newLiveServer(t *testing.T, hub *Hub, members dir) *liveServer {
	t.Helper()
	jwtSvc := auth.NewJWTService("live-secret", 1)
	guard := access.NewGuard(members, nil)
	r := gin.New()
	r.GET("/ws/live", middleware.JWTQuery(jwtSvc), ServeWs(hub, guard, NewUpgrader(nil), nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &liveServer{Server: srv, jwt: jwtSvc, hub: hub}
}

func (s *liveServer) url(workspaceID uuid.UUID, token string) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/live?workspace_id=" + workspaceID.String() + "&token=" + token
}

func waitWatchers(t *testing.T, hub *Hub, ws uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Watchers(ws) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWsRequiresMembership(t *testing.T) {
	ws := uuid.New()
	member, stranger := uuid.New(), uuid.New()
	srv := newLiveServer(t, NewHub(nil, nil, nil), dir{
		member: {WorkspaceID: ws, UserID: member, Role: permissions.RoleViewer},
	})

	tok, _ := srv.jwt.Generate(stranger, "s@x.io")
	_, resp, err := websocket.DefaultDialer.Dial(srv.url(ws, tok), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(srv.url(ws, "garbage"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, _ = srv.jwt.Generate(member, "m@x.io")
	conn, _, err := websocket.DefaultDialer.Dial(srv.url(ws, tok), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitWatchers(t, srv.hub, ws, 1)
}

func TestPublishWorkspaceLocal(t *testing.T) {
	ws, other := uuid.New(), uuid.New()
	viewer := uuid.New()
	hub := NewHub(nil, nil, nil)
	srv := newLiveServer(t, hub, dir{viewer: {WorkspaceID: ws, UserID: viewer, Role: permissions.RoleViewer}})

	tok, _ := srv.jwt.Generate(viewer, "v@x.io")
	conn, _, err := websocket.DefaultDialer.Dial(srv.url(ws, tok), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitWatchers(t, hub, ws, 1)

	hub.PublishWorkspace(other, "event", map[string]string{"name": "ignored"})
	hub.PublishWorkspace(ws, "event", map[string]string{"name": "page_view"})

	var msg WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Event)
	assert.JSONEq(t, `{"name":"page_view"}`, string(msg.Data))
}

func TestPublishWorkspaceAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ws, viewer := uuid.New(), uuid.New()
	members := dir{viewer: {WorkspaceID: ws, UserID: viewer, Role: permissions.RoleViewer}}

	newBridge := func() *RedisPubSub {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisPubSub(client, nil)
	}
	a, b := newBridge(), newBridge()
	watching := NewHub(nil, a, a)
	publishing := NewHub(nil, b, b)
	srv := newLiveServer(t, watching, members)

	tok, _ := srv.jwt.Generate(viewer, "v@x.io")
	conn, _, err := websocket.DefaultDialer.Dial(srv.url(ws, tok), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitWatchers(t, watching, ws, 1)

	publishing.PublishWorkspace(ws, "event", map[string]int{"durationMs": 1200})

	var msg WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Event)
	assert.JSONEq(t, `{"durationMs":1200}`, string(msg.Data))
}

func TestUnregisterCancelsSubscription(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	bridge := NewRedisPubSub(client, nil)
	hub := NewHub(nil, bridge, bridge)

	ws := uuid.New()
	c := &Client{ID: "c1", WorkspaceID: ws, send: make(chan WSMessage, 1)}
	hub.Register(c)
	require.Eventually(t, func() bool { return len(mr.PubSubChannels("workspace:*")) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	assert.Equal(t, 0, hub.Watchers(ws))
	require.Eventually(t, func() bool { return len(mr.PubSubChannels("workspace:*")) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpgraderOrigins(t *testing.T) {
	up := NewUpgrader([]string{"https://app.lumen.dev"})
	req := httptest.NewRequest(http.MethodGet, "/ws/live", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "https://app.lumen.dev")
	assert.True(t, up.CheckOrigin(req))
	assert.True(t, NewUpgrader([]string{"*"}).CheckOrigin(req))
}
