package response

import (
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
)

// Health is the response for the health endpoint
type Health struct {
	Status   string `json:"status"`
	Storage  string `json:"storage"`
	Protocol int    `json:"protocol"`
}

// CreatedGame is the response for game creation
type CreatedGame struct {
	GameID string `json:"game_id"`
}

// Seats reports which seats are claimed and which have a live connection
type Seats struct {
	WhiteClaimed   bool `json:"white_claimed"`
	BlackClaimed   bool `json:"black_claimed"`
	WhiteConnected bool `json:"white_connected"`
	BlackConnected bool `json:"black_connected"`
}

// GameState mirrors model.GameState
type GameState struct {
	FEN     string `json:"fen"`
	PGN     string `json:"pgn"`
	Turn    string `json:"turn"`
	Outcome string `json:"outcome"`
	Winner  string `json:"winner,omitempty"`
}

// GameView is a public view of a stored game. Seat owners are not exposed.
type GameView struct {
	GameID    string    `json:"game_id"`
	State     GameState `json:"state"`
	Seats     Seats     `json:"seats"`
	MoveCount int       `json:"move_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameViewFromModel converts a model.Game; connected may be nil
func GameViewFromModel(g *model.Game, connected func(model.Seat) bool) GameView {
	view := GameView{
		GameID: string(g.ID),
		State: GameState{
			FEN:     g.State.FEN,
			PGN:     g.State.PGN,
			Turn:    string(g.State.Turn),
			Outcome: string(g.State.Outcome),
			Winner:  string(g.State.Winner),
		},
		Seats: Seats{
			WhiteClaimed: g.White != "",
			BlackClaimed: g.Black != "",
		},
		MoveCount: g.MoveCount,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	if connected != nil {
		view.Seats.WhiteConnected = connected(model.SeatWhite)
		view.Seats.BlackConnected = connected(model.SeatBlack)
	}
	return view
}
