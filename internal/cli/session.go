package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/chessgame-go/internal/realtime"
)

// Session is a websocket connection to the server's /ws endpoint
type Session struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	stop    func() bool
}

// wsURL turns the HTTP server URL into the websocket endpoint
func wsURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// Dial opens a session. The connection is closed when ctx ends.
func Dial(ctx context.Context, serverURL string) (*Session, error) {
	endpoint, err := wsURL(serverURL)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	s := &Session{ws: ws}
	s.stop = context.AfterFunc(ctx, func() { _ = ws.Close() })
	return s, nil
}

// Send writes one event
func (s *Session) Send(name string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(realtime.Event{Name: name, Payload: payload})
}

// Next blocks for the next event from the server
func (s *Session) Next() (realtime.Envelope, error) {
	var env realtime.Envelope
	err := s.ws.ReadJSON(&env)
	return env, err
}

// Await reads until an event called one of names or an error event
// arrives, decoding its payload into v
func (s *Session) Await(v any, names ...string) (string, error) {
	for {
		env, err := s.Next()
		if err != nil {
			return "", err
		}
		if env.Event == realtime.EventError {
			var p realtime.ErrorPayload
			_ = json.Unmarshal(env.Payload, &p)
			return env.Event, fmt.Errorf("%s (%s)", p.Message, p.Code)
		}
		for _, name := range names {
			if env.Event == name {
				if v != nil {
					if err := json.Unmarshal(env.Payload, v); err != nil {
						return "", err
					}
				}
				return name, nil
			}
		}
	}
}

// Close says goodbye and closes the connection
func (s *Session) Close() error {
	s.stop()
	s.writeMu.Lock()
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.ws.Close()
}
