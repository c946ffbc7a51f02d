package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Telemed/internal/adapters/signal"
	"github.com/dkeye/Telemed/internal/app"
	"github.com/dkeye/Telemed/internal/config"
	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
	transport "github.com/dkeye/Telemed/internal/transport/http"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "test",
		Port:         8080,
		Secret:       "test-secret",
		Admission:    "shared",
		Backpressure: "drop",
		ICEServers: []config.ICEServer{
			{URLs: []string{"stun:stun.example.org:3478"}},
		},
	}
}

func newRouter(t *testing.T) (*gin.Engine, *signal.SignalWSController) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := app.NewHub(app.NewRegistry(), app.SharedAdmission{}, app.DropPolicy{})
	ctrl := signal.NewSignalWSController(hub, signal.Options{ReadLimit: 1 << 16}, nil)
	t.Cleanup(ctrl.Shutdown)
	return SetupRouter(testConfig(), ctrl), ctrl
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_HealthSetsSessionCookie(t *testing.T) {
	req := require.New(t)
	r, _ := newRouter(t)

	w := do(r, nethttp.MethodGet, "/health")

	req.Equal(nethttp.StatusOK, w.Code)
	req.Contains(w.Header().Get("Set-Cookie"), "TelemedSessions=")
}

func TestRouter_RoomsReflectRegistry(t *testing.T) {
	req := require.New(t)
	r, ctrl := newRouter(t)

	// Given an empty registry
	w := do(r, nethttp.MethodGet, "/api/rooms")
	req.Equal(nethttp.StatusOK, w.Code)
	req.JSONEq(`{"rooms":[]}`, w.Body.String())

	// When a doctor and a patient join room 42
	ctrl.Hub.Registry.Join("42", core.Participant{SID: "d1", Role: domain.RoleDoctor})
	ctrl.Hub.Registry.Join("42", core.Participant{SID: "p1", Role: domain.RolePatient})

	// Then both endpoints report them
	w = do(r, nethttp.MethodGet, "/api/rooms")
	req.Equal(nethttp.StatusOK, w.Code)
	req.JSONEq(`{"rooms":[{"appointmentId":"42","participant_count":2,"roles":["doctor","patient"]}]}`, w.Body.String())

	w = do(r, nethttp.MethodGet, "/api/rooms/42")
	req.Equal(nethttp.StatusOK, w.Code)
	var room transport.RoomResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &room))
	req.Equal(domain.RoomID("42"), room.ID)
	req.Len(room.Participants, 2)

	req.Equal(nethttp.StatusNotFound, do(r, nethttp.MethodGet, "/api/rooms/nope").Code)
}

func TestRouter_ICEServers(t *testing.T) {
	req := require.New(t)
	r, _ := newRouter(t)

	w := do(r, nethttp.MethodGet, "/api/ice-servers")

	req.Equal(nethttp.StatusOK, w.Code)
	req.Contains(w.Body.String(), "stun:stun.example.org:3478")
}

func TestRouter_KickAndEvictLiveSessions(t *testing.T) {
	req := require.New(t)
	r, ctrl := newRouter(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	dial := func(query string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal?" + query
		ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
		req.NoError(err)
		_ = resp.Body.Close()
		t.Cleanup(func() { _ = ws.Close() })
		return ws
	}
	dial("role=doctor&appointmentId=42")
	dial("role=patient&appointmentId=42")
	req.Eventually(func() bool { return ctrl.Hub.Registry.Count("42") == 2 }, 2*time.Second, 10*time.Millisecond)

	// Kick requires the participant to be in the named room
	sid := string(ctrl.Hub.Registry.Members("42")[0].SID)
	req.Equal(nethttp.StatusNotFound, do(r, nethttp.MethodDelete, "/api/rooms/other/participants/"+sid).Code)
	req.Equal(nethttp.StatusNoContent, do(r, nethttp.MethodDelete, "/api/rooms/42/participants/"+sid).Code)
	req.Equal(1, ctrl.Hub.Registry.Count("42"))

	// Evicting closes the rest and drops the room
	req.Equal(nethttp.StatusNoContent, do(r, nethttp.MethodDelete, "/api/rooms/42").Code)
	req.Eventually(func() bool { return !ctrl.Hub.Registry.Has("42") }, 2*time.Second, 10*time.Millisecond)
	req.Equal(nethttp.StatusNotFound, do(r, nethttp.MethodDelete, "/api/rooms/42").Code)
}
