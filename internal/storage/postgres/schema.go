package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chess_games (
	id          TEXT PRIMARY KEY,
	owner_key   TEXT NOT NULL,
	white_key   TEXT NOT NULL DEFAULT '',
	black_key   TEXT NOT NULL DEFAULT '',
	fen         TEXT NOT NULL,
	pgn         TEXT NOT NULL DEFAULT '',
	turn        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	move_count  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

const gameColumns = `id, owner_key, white_key, black_key, fen, pgn, turn, outcome, winner, move_count, created_at, updated_at`
