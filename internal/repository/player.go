package repository

import (
	"context"

	"player-manager/internal/domain"
)

// PlayerRepository exposes persistence operations for Player records.
// The optional owner argument restricts reads and deletes to records created
// by that user; a nil owner means no restriction.
type PlayerRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, player *domain.Player) (int64, error)
	Get(ctx context.Context, id int64, owner *int64) (*domain.Player, error)
	List(ctx context.Context, owner *int64) ([]domain.Player, error)
	SearchByName(ctx context.Context, name string, owner *int64) ([]domain.Player, error)
	Update(ctx context.Context, player *domain.Player) error
	Delete(ctx context.Context, id int64, owner *int64) error
}
