package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

// Storage is a PostgreSQL-backed implementation of the game store.
// Seat claims lock the game row so concurrent joins from any process
// serialize on the database.
type Storage struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New connects to dsn. The pool connects lazily, so an unreachable
// database surfaces on the first query or Ping rather than here.
func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool, now: time.Now}
}

// Migrate creates the games table if it does not exist
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return storage.Unavailable(err)
}

// Close releases the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.GameStore = (*Storage)(nil)

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chess_games (`+gameColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(game.ID), string(game.Owner), string(game.White), string(game.Black),
		game.State.FEN, game.State.PGN, string(game.State.Turn), string(game.State.Outcome), string(game.State.Winner),
		game.MoveCount, game.CreatedAt, game.UpdatedAt,
	)
	return storage.Unavailable(err)
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM chess_games WHERE id = $1`, string(id))
	game, err := scanGame(row)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	return game, nil
}

func (s *Storage) AssignSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, error) {
	var seat model.Seat
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM chess_games WHERE id = $1 FOR UPDATE`, string(id))
		game, err := scanGame(row)
		if err != nil {
			return err
		}

		var claimed bool
		seat, claimed, err = game.AssignSeat(owner)
		if err != nil || !claimed {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE chess_games SET white_key = $2, black_key = $3, updated_at = $4 WHERE id = $1`,
			string(id), string(game.White), string(game.Black), s.now(),
		)
		return err
	})
	if err != nil {
		return "", storage.Unavailable(err)
	}
	return seat, nil
}

func (s *Storage) CurrentSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, bool, error) {
	var white, black string
	err := s.pool.QueryRow(ctx,
		`SELECT white_key, black_key FROM chess_games WHERE id = $1`, string(id),
	).Scan(&white, &black)
	if err != nil {
		return "", false, storage.Unavailable(notFound(err))
	}
	game := model.Game{White: model.OwnerKey(white), Black: model.OwnerKey(black)}
	seat, ok := game.SeatOf(owner)
	return seat, ok, nil
}

func (s *Storage) CurrentTurn(ctx context.Context, id model.GameID) (model.Seat, error) {
	var turn string
	err := s.pool.QueryRow(ctx, `SELECT turn FROM chess_games WHERE id = $1`, string(id)).Scan(&turn)
	if err != nil {
		return "", storage.Unavailable(notFound(err))
	}
	return model.ParseSeat(turn)
}

func (s *Storage) ApplyState(ctx context.Context, id model.GameID, state model.GameState, moveDelta int) (*model.Game, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE chess_games
		 SET fen = $2, pgn = $3, turn = $4, outcome = $5, winner = $6,
		     move_count = move_count + $7, updated_at = $8
		 WHERE id = $1
		 RETURNING `+gameColumns,
		string(id), state.FEN, state.PGN, string(state.Turn), string(state.Outcome), string(state.Winner),
		moveDelta, s.now(),
	)
	game, err := scanGame(row)
	if err != nil {
		return nil, storage.Unavailable(err)
	}
	return game, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return storage.Unavailable(s.pool.Ping(ctx))
}

func scanGame(row pgx.Row) (*model.Game, error) {
	var (
		id, owner, white, black string
		fen, pgn, turn          string
		outcome, winner         string
		game                    model.Game
	)
	err := row.Scan(&id, &owner, &white, &black, &fen, &pgn, &turn, &outcome, &winner,
		&game.MoveCount, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	game.ID = model.GameID(id)
	game.Owner = model.OwnerKey(owner)
	game.White = model.OwnerKey(white)
	game.Black = model.OwnerKey(black)
	game.State = model.GameState{
		FEN:     fen,
		PGN:     pgn,
		Turn:    model.Seat(turn),
		Outcome: model.Outcome(outcome),
		Winner:  model.Seat(winner),
	}
	return &game, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrGameNotFound
	}
	return err
}
