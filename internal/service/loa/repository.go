package loa

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/park285/loa-kakao-bot/internal/domain"
)

var ErrDuplicateGame = errors.New("loa game already exists")

type Repository interface {
	InsertGame(ctx context.Context, game *domain.LoaGame) (int64, error)
	GetRecentGames(ctx context.Context, playerHash string, limit int) ([]*domain.LoaGame, error)
	GetGame(ctx context.Context, id int64, playerHash string) (*domain.LoaGame, error)
	GetGameBySession(ctx context.Context, sessionUUID string, playerHash string) (*domain.LoaGame, error)
	GetProfile(ctx context.Context, playerHash string, roomHash string) (*domain.LoaProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.LoaProfile) error
}

// Schema is the DDL the PostgreSQL repository expects.
const Schema = `
CREATE TABLE IF NOT EXISTS loa_games (
	id           BIGSERIAL PRIMARY KEY,
	session_uuid TEXT NOT NULL UNIQUE,
	player_hash  TEXT NOT NULL,
	room_hash    TEXT NOT NULL,
	mode         TEXT NOT NULL,
	level        INTEGER NOT NULL,
	player_side  TEXT NOT NULL DEFAULT '',
	winner       TEXT NOT NULL,
	result       TEXT NOT NULL,
	moves        JSONB NOT NULL,
	final_board  TEXT NOT NULL,
	move_count   INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT
);
CREATE INDEX IF NOT EXISTS loa_games_player_ended ON loa_games (player_hash, ended_at DESC);
CREATE TABLE IF NOT EXISTS loa_profiles (
	player_hash     TEXT NOT NULL,
	room_hash       TEXT NOT NULL,
	preferred_level INTEGER NOT NULL DEFAULT 0,
	games_played    INTEGER NOT NULL DEFAULT 0,
	wins            INTEGER NOT NULL DEFAULT 0,
	losses          INTEGER NOT NULL DEFAULT 0,
	streak          INTEGER NOT NULL DEFAULT 0,
	streak_type     TEXT NOT NULL DEFAULT '',
	last_level      INTEGER NOT NULL DEFAULT 0,
	last_played_at  TIMESTAMPTZ,
	updated_at      TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (player_hash, room_hash)
);`

const gameColumns = `
	id,
	session_uuid,
	player_hash,
	room_hash,
	mode,
	level,
	player_side,
	winner,
	result,
	moves,
	final_board,
	move_count,
	started_at,
	ended_at,
	duration_ms`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply loa schema: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.LoaGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil loa game payload")
	}
	moves, err := json.Marshal(game.Moves)
	if err != nil {
		return 0, fmt.Errorf("marshal moves: %w", err)
	}

	const query = `
		INSERT INTO loa_games (
			session_uuid,
			player_hash,
			room_hash,
			mode,
			level,
			player_side,
			winner,
			result,
			moves,
			final_board,
			move_count,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionUUID,
		game.PlayerHash,
		game.RoomHash,
		game.Mode,
		game.Level,
		game.PlayerSide,
		game.Winner,
		game.Result,
		moves,
		game.FinalBoard,
		game.MoveCount,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrDuplicateGame
		}
		return 0, fmt.Errorf("insert loa game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, playerHash string, limit int) ([]*domain.LoaGame, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + gameColumns + `
		FROM loa_games
		WHERE player_hash = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerHash, limit)
	if err != nil {
		return nil, fmt.Errorf("select loa games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.LoaGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loa games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64, playerHash string) (*domain.LoaGame, error) {
	query := `SELECT` + gameColumns + `
		FROM loa_games
		WHERE id = $1 AND player_hash = $2`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, id, playerHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

func (r *repository) GetGameBySession(ctx context.Context, sessionUUID string, playerHash string) (*domain.LoaGame, error) {
	query := `SELECT` + gameColumns + `
		FROM loa_games
		WHERE session_uuid = $1 AND player_hash = $2
		LIMIT 1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, sessionUUID, playerHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.LoaGame, error) {
	var (
		game       domain.LoaGame
		movesJSON  []byte
		durationMS sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.SessionUUID,
		&game.PlayerHash,
		&game.RoomHash,
		&game.Mode,
		&game.Level,
		&game.PlayerSide,
		&game.Winner,
		&game.Result,
		&movesJSON,
		&game.FinalBoard,
		&game.MoveCount,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan loa game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesJSON, &game.Moves); err != nil {
		return nil, fmt.Errorf("unmarshal moves: %w", err)
	}
	return &game, nil
}

func (r *repository) GetProfile(ctx context.Context, playerHash string, roomHash string) (*domain.LoaProfile, error) {
	const query = `
		SELECT
			player_hash,
			room_hash,
			preferred_level,
			games_played,
			wins,
			losses,
			streak,
			streak_type,
			last_level,
			last_played_at,
			updated_at,
			created_at
		FROM loa_profiles
		WHERE player_hash = $1 AND room_hash = $2
		LIMIT 1`

	var (
		profile    domain.LoaProfile
		lastPlayed pq.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, playerHash, roomHash).Scan(
		&profile.PlayerHash,
		&profile.RoomHash,
		&profile.PreferredLevel,
		&profile.GamesPlayed,
		&profile.Wins,
		&profile.Losses,
		&profile.Streak,
		&profile.StreakType,
		&profile.LastLevel,
		&lastPlayed,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select loa profile: %w", err)
	}
	if lastPlayed.Valid {
		profile.LastPlayedAt = lastPlayed.Time
	}
	return &profile, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.LoaProfile) error {
	if profile == nil {
		return fmt.Errorf("nil loa profile payload")
	}
	const query = `
		INSERT INTO loa_profiles (
			player_hash,
			room_hash,
			preferred_level,
			games_played,
			wins,
			losses,
			streak,
			streak_type,
			last_level,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (player_hash, room_hash)
		DO UPDATE SET
			preferred_level = EXCLUDED.preferred_level,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			streak = EXCLUDED.streak,
			streak_type = EXCLUDED.streak_type,
			last_level = EXCLUDED.last_level,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = NOW()`

	lastPlayed := pq.NullTime{Time: profile.LastPlayedAt, Valid: !profile.LastPlayedAt.IsZero()}
	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.PlayerHash,
		profile.RoomHash,
		profile.PreferredLevel,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Streak,
		profile.StreakType,
		profile.LastLevel,
		lastPlayed,
	)
	if err != nil {
		return fmt.Errorf("upsert loa profile: %w", err)
	}
	return nil
}
