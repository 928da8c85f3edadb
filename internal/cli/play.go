package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/realtime"
	"github.com/mcoot/chessgame-go/internal/services/rules"
)

const playHelp = `Commands:
  move <san>   play a move in standard algebraic notation (e.g. move Nf3)
  draw         offer a draw
  accept       accept the opponent's draw offer
  decline      decline the opponent's draw offer
  resign       resign the game
  sync         fetch the current position again
  quit         leave (the seat stays yours)`

var errQuit = errors.New("quit")

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Connect to a game and play from the terminal",
		Long: `Connect to a game, claiming a seat if the current user has none, then
read commands from stdin while printing server events.

` + playHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := connectPlayer(ctx, model.GameID(args[0]), NewOutput(cfg.Output, cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer func() { _ = p.session.Close() }()

			go p.readEvents()
			return p.readCommands(ctx, cmd.InOrStdin())
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Connect to a game and print its events",
		Long: `Connect to a game as the current user and stream every event the
server sends to that seat. Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := connectPlayer(ctx, model.GameID(args[0]), NewOutput(cfg.Output, cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer func() { _ = p.session.Close() }()

			p.readEvents()
			if ctx.Err() == nil {
				p.out.PrintMessage("Disconnected")
			}
			return nil
		},
	}
}

// player tracks the position a terminal client believes is current
type player struct {
	session *Session
	out     *Output
	rules   *rules.Service
	game    model.GameID

	mu    sync.Mutex
	seat  model.Seat
	state model.GameState
}

// connectPlayer dials, binds to game and waits for the first position
func connectPlayer(ctx context.Context, game model.GameID, out *Output) (*player, error) {
	session, err := Dial(ctx, cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	p := &player{session: session, out: out, rules: rules.New(), game: game}

	claim := realtime.ClaimPayload{UserID: model.UserID(cfg.UserID), GameID: game}
	if err := session.Send(realtime.EventConnectToGame, claim); err != nil {
		_ = session.Close()
		return nil, err
	}

	var seat realtime.SeatAssignedPayload
	if _, err := session.Await(&seat, realtime.EventSeatAssigned); err != nil {
		_ = session.Close()
		return nil, err
	}
	var synced realtime.StateSyncPayload
	if _, err := session.Await(&synced, realtime.EventStateSync); err != nil {
		_ = session.Close()
		return nil, err
	}

	p.seat, p.state = seat.Seat, synced.GameState
	out.PrintMessage(fmt.Sprintf("Playing %s in game %s", p.seat, game))
	return p, nil
}

// readEvents prints server events until the connection ends
func (p *player) readEvents() {
	for {
		env, err := p.session.Next()
		if err != nil {
			return
		}
		p.observe(env)
		p.out.PrintEvent(env)
	}
}

// observe keeps the local position in step with the server
func (p *player) observe(env realtime.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch env.Event {
	case realtime.EventStateSync:
		var synced realtime.StateSyncPayload
		if json.Unmarshal(env.Payload, &synced) == nil {
			p.state = synced.GameState
		}
	case realtime.EventOpponentMove:
		var move realtime.OpponentMovePayload
		if json.Unmarshal(env.Payload, &move) == nil {
			p.state.FEN, p.state.PGN, p.state.Turn = move.FEN, move.PGN, p.seat
		}
	case realtime.EventGameDrawn:
		p.state.Outcome = model.OutcomeDraw
	case realtime.EventOpponentResigned:
		p.state.Outcome, p.state.Winner = model.OutcomeCheckmate, p.seat
	case realtime.EventYouResigned:
		p.state.Outcome, p.state.Winner = model.OutcomeCheckmate, p.seat.Opponent()
	case realtime.EventError:
		var failed realtime.ErrorPayload
		if json.Unmarshal(env.Payload, &failed) == nil && failed.Intent == realtime.EventMove {
			_ = p.session.Send(realtime.EventSyncRequest, realtime.GameRefPayload{GameID: p.game})
		}
	}
}

// readCommands runs stdin commands until quit, EOF or ctx ends
func (p *player) readCommands(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := p.command(line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				p.out.PrintMessage("Error: " + err.Error())
			}
		}
	}
}

// command runs one line of input
func (p *player) command(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	ref := realtime.GameRefPayload{GameID: p.game}

	switch strings.ToLower(fields[0]) {
	case "move", "m":
		if len(fields) != 2 {
			return errors.New("usage: move <san>")
		}
		return p.move(fields[1])
	case "draw":
		return p.session.Send(realtime.EventOfferDraw, ref)
	case "accept", "decline":
		return p.session.Send(realtime.EventRespondDraw, realtime.RespondDrawPayload{
			GameID:   p.game,
			Accepted: fields[0] == "accept",
		})
	case "resign":
		return p.session.Send(realtime.EventResign, ref)
	case "sync":
		return p.session.Send(realtime.EventSyncRequest, ref)
	case "help", "?":
		p.out.PrintMessage(playHelp)
		return nil
	case "quit", "exit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

// move applies san to the local position and reports the result. The
// local position advances optimistically; a rejected move is followed
// by a sync so the next command starts from the stored position.
func (p *player) move(san string) error {
	p.mu.Lock()
	if p.state.Outcome.IsTerminal() {
		p.mu.Unlock()
		return model.ErrGameOver
	}
	if p.state.Turn != p.seat {
		p.mu.Unlock()
		return model.ErrNotYourTurn
	}
	next, move, err := p.rules.ApplySAN(p.state, san)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.state = next
	p.mu.Unlock()

	return p.session.Send(realtime.EventMove, realtime.MovePayload{GameID: p.game, State: next, Move: move})
}
