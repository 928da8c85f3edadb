package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessgame-go/internal/api"
	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/factory"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/realtime"
	"github.com/mcoot/chessgame-go/internal/testutil"
)

// lockedBuffer is written by the event reader and the command loop at once
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliFixture struct {
	t        *testing.T
	app      *factory.TestApp
	url      string
	userFile string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		GameController: app.GameController,
		Store:          app.Storage,
		StorageType:    app.StorageType,
		Registry:       app.Coordinator.Registry(),
		WebSocket:      app.WSServer,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = app.Shutdown(context.Background())
		srv.Close()
	})
	return &cliFixture{t: t, app: app, url: srv.URL, userFile: filepath.Join(t.TempDir(), "user")}
}

func (f *cliFixture) runCtx(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := NewRootCmd()
	out := &lockedBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--server", f.url, "--user-file", f.userFile}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (f *cliFixture) run(args ...string) (string, error) {
	return f.runCtx(context.Background(), "", args...)
}

func (f *cliFixture) createGame(owner model.UserID) model.GameID {
	g, err := f.app.GameController.CreateGame(context.Background(), owner)
	require.NoError(f.t, err)
	return g.ID
}

func (f *cliFixture) moveCount(id model.GameID) func() int {
	return func() int {
		g, err := f.app.GameController.GetGame(context.Background(), id)
		require.NoError(f.t, err)
		return g.MoveCount
	}
}

func TestLoadUserGeneratesAndPersists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "user")

	first := &Config{UserFile: file}
	require.NoError(t, first.LoadUser())
	assert.Len(t, first.UserID, 36)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, first.UserID+"\n", string(data))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second := &Config{UserFile: file}
	require.NoError(t, second.LoadUser())
	assert.Equal(t, first.UserID, second.UserID)
}

func TestLoadUserPrefersExplicitID(t *testing.T) {
	file := filepath.Join(t.TempDir(), "user")
	c := &Config{UserID: "alice", UserFile: file}
	require.NoError(t, c.LoadUser())
	assert.Equal(t, "alice", c.UserID)

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("CHESSCTL_SERVER", "https://chess.test")
	t.Setenv("CHESSCTL_USER", "bob")
	t.Setenv("CHESSCTL_USER_FILE", "/tmp/chessctl-user")

	c := DefaultConfig()
	assert.Equal(t, "https://chess.test", c.ServerURL)
	assert.Equal(t, "bob", c.UserID)
	assert.Equal(t, "/tmp/chessctl-user", c.UserFile)
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://chess.test/", want: "wss://chess.test/ws"},
		{in: "http://proxy.test/chess", want: "ws://proxy.test/chess/ws"},
		{in: "ftp://chess.test", wantErr: true},
	}
	for _, tt := range tests {
		got, err := wsURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestHealthCommand(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run("--output", "json", "health")
	require.NoError(t, err)

	var health response.Health
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, realtime.ProtocolVersion, health.Protocol)

	out, err = f.run("health")
	require.NoError(t, err)
	assert.Contains(t, out, "Storage:  memory")
}

func TestGameCreateAndShow(t *testing.T) {
	f := newCLIFixture(t)
	f.app.MockRandom.QueueString("CLIGAME001")

	out, err := f.run("--user", "alice", "game", "create")
	require.NoError(t, err)
	assert.Equal(t, "Game created: CLIGAME001\n", out)

	out, err = f.run("game", "show", "CLIGAME001")
	require.NoError(t, err)
	assert.Contains(t, out, "Game:    CLIGAME001")
	assert.Contains(t, out, "Turn:    white")
	assert.Contains(t, out, "White:   open")
	assert.Contains(t, out, "A B C D E F G H")

	_, err = f.run("game", "show", "MISSING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GAME_NOT_FOUND")
}

func TestGameJoin(t *testing.T) {
	f := newCLIFixture(t)
	id := f.createGame("owner")

	out, err := f.run("--user", "alice", "game", "join", string(id))
	require.NoError(t, err)
	assert.Contains(t, out, "as white")

	out, err = f.run("--user", "bob", "game", "join", string(id))
	require.NoError(t, err)
	assert.Contains(t, out, "as black")

	_, err = f.run("--user", "carol", "game", "join", string(id))
	require.Error(t, err)
	assert.Contains(t, err.Error(), realtime.CodeGameFull)
}

func TestPlayMakesMoves(t *testing.T) {
	f := newCLIFixture(t)
	id := f.createGame("owner")

	out, err := f.runCtx(context.Background(), "help\nmove e4\nquit\n", "--user", "alice", "play", string(id))
	require.NoError(t, err)
	assert.Contains(t, out, "Playing white in game "+string(id))
	assert.Contains(t, out, "move <san>")

	assert.Eventually(t, func() bool { return f.moveCount(id)() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Black replies from the stored position
	_, err = f.runCtx(context.Background(), "move e5\nquit\n", "--user", "bob", "play", string(id))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return f.moveCount(id)() == 2 }, 2*time.Second, 10*time.Millisecond)

	g, err := f.app.GameController.GetGame(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "1. e4 e5", g.State.PGN)
}

func TestPlayRejectsLocally(t *testing.T) {
	f := newCLIFixture(t)
	id := f.createGame("owner")
	_, err := f.app.GameController.JoinGame(context.Background(), id, "alice")
	require.NoError(t, err)

	out, err := f.runCtx(context.Background(), "move e5\nmove\nfly\nquit\n", "--user", "bob", "play", string(id))
	require.NoError(t, err)
	assert.Contains(t, out, "Playing black")
	assert.Contains(t, out, "Error: "+model.ErrNotYourTurn.Error())
	assert.Contains(t, out, "Error: usage: move <san>")
	assert.Contains(t, out, `Error: unknown command "fly"`)
	assert.Equal(t, 0, f.moveCount(id)())
}

func TestPlayUnknownGame(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.runCtx(context.Background(), "", "--user", "alice", "play", "MISSING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Game not found")
}

func TestWatchStopsWithContext(t *testing.T) {
	f := newCLIFixture(t)
	id := f.createGame("owner")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	out, err := f.runCtx(ctx, "", "--user", "alice", "--output", "json", "watch", string(id))
	require.NoError(t, err)
	assert.Contains(t, out, `"event":"turn"`)
}

func TestDescribeEvent(t *testing.T) {
	payload, err := json.Marshal(realtime.OpponentMovePayload{
		GameID: "G1",
		Move:   model.Move{From: "e2", To: "e4", SAN: "e4"},
		FEN:    "fen",
		PGN:    "1. e4",
	})
	require.NoError(t, err)

	got := describeEvent(realtime.Envelope{Event: realtime.EventOpponentMove, Payload: payload})
	assert.Equal(t, "move=e4 fen=fen pgn=1. e4", got)
	assert.Equal(t, "", describeEvent(realtime.Envelope{Event: realtime.EventDrawDeclined}))
}
