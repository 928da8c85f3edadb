package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessgame-go/internal/api"
	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/factory"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/realtime"
)

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	server *http.Server
	app    *factory.App
	addr   string
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app, err := factory.New(context.Background(), factory.Config{
		Logger:         logger,
		OwnerKeySecret: "e2e-secret",
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		GameController: app.GameController,
		Store:          app.Storage,
		StorageType:    app.StorageType,
		Registry:       app.Coordinator.Registry(),
		WebSocket:      app.WSServer,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		_ = app.Shutdown(ctx)
	})

	return &testServer{server: server, app: app, addr: serverURL}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

func (s *testServer) createGame(t *testing.T, owner string) model.GameID {
	t.Helper()

	body, err := json.Marshal(map[string]string{"owner_user_id": owner})
	require.NoError(t, err)
	resp, err := http.Post(s.addr+"/api/v1/games", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created response.CreatedGame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return model.GameID(created.GameID)
}

func (s *testServer) getGame(t *testing.T, id model.GameID) response.GameView {
	t.Helper()

	resp, err := http.Get(s.addr + "/api/v1/games/" + string(id))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view response.GameView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

// player is one websocket client
type player struct {
	t    *testing.T
	user model.UserID
	ws   *websocket.Conn
}

func (s *testServer) dial(t *testing.T, user model.UserID) *player {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.addr, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return &player{t: t, user: user, ws: ws}
}

func (p *player) send(event string, payload any) {
	p.t.Helper()
	require.NoError(p.t, p.ws.WriteJSON(realtime.Event{Name: event, Payload: payload}))
}

// expect skips events until one called name arrives, then decodes it
func (p *player) expect(name string, payload any) {
	p.t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(p.t, p.ws.SetReadDeadline(deadline))
		var env realtime.Envelope
		require.NoError(p.t, p.ws.ReadJSON(&env), "%s waiting for %s", p.user, name)
		if env.Event != name {
			continue
		}
		if payload != nil {
			require.NoError(p.t, json.Unmarshal(env.Payload, payload))
		}
		return
	}
}

func (p *player) expectError(code string) realtime.ErrorPayload {
	p.t.Helper()

	var e realtime.ErrorPayload
	p.expect(realtime.EventError, &e)
	require.Equal(p.t, code, e.Code, e.Message)
	return e
}

// connect binds the player to game and returns its seat and the resync
func (p *player) connect(game model.GameID) (model.Seat, realtime.StateSyncPayload) {
	p.t.Helper()

	p.send(realtime.EventConnectToGame, realtime.ClaimPayload{UserID: p.user, GameID: game})
	var seat realtime.SeatAssignedPayload
	p.expect(realtime.EventSeatAssigned, &seat)
	var sync realtime.StateSyncPayload
	p.expect(realtime.EventStateSync, &sync)
	return seat.Seat, sync
}

func (p *player) close() {
	_ = p.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = p.ws.Close()
}
