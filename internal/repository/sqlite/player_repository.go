package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"player-manager/internal/domain"
	"player-manager/internal/repository"
)

const createPlayersTable = `
CREATE TABLE IF NOT EXISTS players (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	position TEXT NOT NULL DEFAULT '',
	team TEXT NOT NULL DEFAULT '',
	age INTEGER NOT NULL,
	jersey_number INTEGER NOT NULL,
	owner_id INTEGER NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const playerColumns = `id, name, position, team, age, jersey_number, owner_id, created_at, updated_at`

type PlayerRepository struct {
	db *sql.DB
}

func NewPlayerRepository(db *sql.DB) repository.PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPlayersTable); err != nil {
		return fmt.Errorf("create players table: %w", err)
	}
	return nil
}

func (r *PlayerRepository) Create(ctx context.Context, player *domain.Player) (int64, error) {
	now := time.Now().UTC()
	player.CreatedAt = now
	player.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO players (name, position, team, age, jersey_number, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		player.Name,
		player.Position,
		player.Team,
		player.Age,
		player.JerseyNumber,
		player.OwnerID,
		player.CreatedAt,
		player.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert player: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("player last insert id: %w", err)
	}
	player.ID = id
	return id, nil
}

func (r *PlayerRepository) Get(ctx context.Context, id int64, owner *int64) (*domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ?`
	args := []any{id}
	if owner != nil {
		query += ` AND owner_id = ?`
		args = append(args, *owner)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	return scanPlayer(row)
}

func (r *PlayerRepository) List(ctx context.Context, owner *int64) ([]domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	var args []any
	if owner != nil {
		query += ` WHERE owner_id = ?`
		args = append(args, *owner)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	return collectPlayers(rows)
}

func (r *PlayerRepository) SearchByName(ctx context.Context, name string, owner *int64) ([]domain.Player, error) {
	// sqlite LIKE is case-insensitive for ASCII, matching the intended
	// substring search semantics.
	query := `SELECT ` + playerColumns + ` FROM players WHERE name LIKE ?`
	args := []any{"%" + name + "%"}
	if owner != nil {
		query += ` AND owner_id = ?`
		args = append(args, *owner)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	defer rows.Close()

	return collectPlayers(rows)
}

func (r *PlayerRepository) Update(ctx context.Context, player *domain.Player) error {
	player.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE players
SET name = ?, position = ?, team = ?, age = ?, jersey_number = ?, updated_at = ?
WHERE id = ?`,
		player.Name,
		player.Position,
		player.Team,
		player.Age,
		player.JerseyNumber,
		player.UpdatedAt,
		player.ID,
	)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update player rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("player %w", domain.ErrNotFound)
	}
	return nil
}

func (r *PlayerRepository) Delete(ctx context.Context, id int64, owner *int64) error {
	query := `DELETE FROM players WHERE id = ?`
	args := []any{id}
	if owner != nil {
		query += ` AND owner_id = ?`
		args = append(args, *owner)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("player %w", domain.ErrNotFound)
	}
	return nil
}

func collectPlayers(rows *sql.Rows) ([]domain.Player, error) {
	var players []domain.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

func scanPlayer(row interface {
	Scan(dest ...any) error
}) (*domain.Player, error) {
	var player domain.Player
	if err := row.Scan(
		&player.ID,
		&player.Name,
		&player.Position,
		&player.Team,
		&player.Age,
		&player.JerseyNumber,
		&player.OwnerID,
		&player.CreatedAt,
		&player.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	return &player, nil
}
