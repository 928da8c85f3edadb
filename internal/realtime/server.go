package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mcoot/chessgame-go/internal/dependencies/random"
)

// Server upgrades HTTP requests to websocket connections and runs a
// Handler for each one
type Server struct {
	coord    *Coordinator
	random   random.Random
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// ctx ends every connection on Shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerConfig configures the websocket endpoint
type ServerConfig struct {
	// AllowedOrigins lists origins that may open a connection.
	// Empty allows any origin.
	AllowedOrigins []string
}

// NewServer creates a websocket server in front of coord
func NewServer(coord *Coordinator, rnd random.Random, cfg ServerConfig, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		coord:  coord,
		random: rnd,
		logger: logger.With(slog.String("component", "ws")),
		ctx:    ctx,
		cancel: cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Debug("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(ConnID(s.random.UUID()), ws, s.logger)
	handler := NewHandler(s.coord, client, s.logger)

	s.wg.Add(1)
	defer s.wg.Done()
	client.Serve(s.ctx, handler)
}

// Shutdown closes every open connection and waits for their disconnect
// paths to finish or ctx to end
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients do not send an origin
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}
