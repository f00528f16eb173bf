package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freeflow/internal/presence"
	"freeflow/internal/realtime"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/service"
	appwebsocket "freeflow/pkg/websocket"
)

func newWebSocketServer(t *testing.T) (*httptest.Server, service.JWTService, *appwebsocket.Hub) {
	t.Helper()
	logger := zap.NewNop()
	registry, err := resources.NewRegistry(resources.DefaultDefinitions()...)
	require.NoError(t, err)

	hub := appwebsocket.NewHub(logger)
	rooms := presence.NewRegistry(presence.Options{Broadcast: realtime.PresenceBroadcaster(hub, logger)}, logger)
	hub.SetHandler(realtime.NewHandler(registry, rooms, logger))

	jwtSvc := service.NewJWTService("test-secret", time.Hour, logger)
	ctrl := NewWebSocketController(hub, jwtSvc, []string{"http://localhost:3000"}, logger)

	e := echo.New()
	e.GET("/ws", ctrl.ServeWs)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return srv, jwtSvc, hub
}

func TestWebSocketController_RejectsMissingOrBadToken(t *testing.T) {
	srv, _, _ := newWebSocketServer(t)

	res, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res2, err := http.Get(srv.URL + "/ws?token=garbage")
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res2.StatusCode)
}

func TestWebSocketController_SubscribeRoundTrip(t *testing.T) {
	srv, jwtSvc, hub := newWebSocketServer(t)
	token, err := jwtSvc.GenerateToken(uuid.New(), "ada@example.test", "Ada")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(appwebsocket.Inbound{Type: realtime.MessageSubscribe, Topic: "records:projects"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var reply appwebsocket.Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, realtime.ReplySubscribed, reply.Type)
	assert.Equal(t, "records:projects", reply.Topic)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestWebSocketController_NoTokenEnvelope(t *testing.T) {
	ctrl := NewWebSocketController(appwebsocket.NewHub(zap.NewNop()), service.NewJWTService("s", time.Hour, zap.NewNop()), nil, zap.NewNop())

	rec := call(t, http.MethodGet, "/ws", "/ws", "", ctrl.ServeWs)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUnauthorized, decode(t, rec).Code)
}
