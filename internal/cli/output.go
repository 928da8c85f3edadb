package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/realtime"
	"github.com/mcoot/chessgame-go/internal/services/rules"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	rules  *rules.Service
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w, rules: rules.New()}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one server event as a line
func (o *Output) PrintEvent(env realtime.Envelope) {
	now := time.Now()

	if o.format == "json" {
		line, _ := json.Marshal(struct {
			Time    time.Time       `json:"time"`
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload,omitempty"`
		}{now, env.Event, env.Payload})
		fmt.Fprintln(o.w, string(line))
		return
	}

	fmt.Fprintf(o.w, "[%s] %s: %s\n", now.Format("2006-01-02 15:04:05"), env.Event, describeEvent(env))
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		o.printHealth(v)
	case response.CreatedGame:
		fmt.Fprintf(o.w, "Game created: %s\n", v.GameID)
	case response.GameView:
		o.printGameView(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printHealth(h response.Health) {
	fmt.Fprintf(o.w, "Status:   %s\n", h.Status)
	fmt.Fprintf(o.w, "Storage:  %s\n", h.Storage)
	fmt.Fprintf(o.w, "Protocol: %d\n", h.Protocol)
}

func (o *Output) printGameView(g response.GameView) {
	fmt.Fprintf(o.w, "Game:    %s\n", g.GameID)
	fmt.Fprintf(o.w, "Moves:   %d\n", g.MoveCount)
	switch g.State.Outcome {
	case "checkmate":
		fmt.Fprintf(o.w, "Result:  %s wins\n", g.State.Winner)
	case "draw":
		fmt.Fprintln(o.w, "Result:  draw")
	default:
		fmt.Fprintf(o.w, "Turn:    %s\n", g.State.Turn)
	}
	fmt.Fprintf(o.w, "White:   %s\n", seatStatus(g.Seats.WhiteClaimed, g.Seats.WhiteConnected))
	fmt.Fprintf(o.w, "Black:   %s\n", seatStatus(g.Seats.BlackClaimed, g.Seats.BlackConnected))
	if g.State.PGN != "" {
		fmt.Fprintf(o.w, "PGN:     %s\n", g.State.PGN)
	}
	if diagram, err := o.rules.Diagram(g.State.FEN); err == nil {
		fmt.Fprint(o.w, diagram)
	}
}

func seatStatus(claimed, connected bool) string {
	switch {
	case connected:
		return "connected"
	case claimed:
		return "claimed"
	}
	return "open"
}

// describeEvent renders the interesting fields of a payload
func describeEvent(env realtime.Envelope) string {
	var fields map[string]any
	if err := json.Unmarshal(env.Payload, &fields); err != nil || len(fields) == 0 {
		return strings.TrimSpace(string(env.Payload))
	}
	delete(fields, "game_id")

	var b strings.Builder
	for _, key := range []string{"seat", "color", "by", "resigning_color", "both_seats_occupied", "move", "fen", "pgn", "outcome", "winner", "code", "message", "intent"} {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			v = m["san"]
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", key, v)
	}
	return b.String()
}
