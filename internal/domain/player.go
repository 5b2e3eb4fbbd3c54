package domain

import "time"

// Player represents a player record managed through the API.
type Player struct {
	ID           int64
	Name         string
	Position     string
	Team         string
	Age          int
	JerseyNumber int
	OwnerID      *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerPatch carries a partial update; nil fields keep their current values.
type PlayerPatch struct {
	Name         *string
	Position     *string
	Team         *string
	Age          *int
	JerseyNumber *int
}
