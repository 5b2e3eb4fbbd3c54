package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"player-manager/internal/domain"
	"player-manager/internal/repository"
)

// PlayerInput carries the fields required to create a player.
type PlayerInput struct {
	Name         string
	Position     string
	Team         string
	Age          int
	JerseyNumber int
}

// PlayerService coordinates player CRUD backed by the repository. When owner
// scoping is enabled every operation is restricted to records created by the
// calling user; otherwise records are shared across all authenticated users.
type PlayerService interface {
	Create(ctx context.Context, ownerID int64, input PlayerInput) (*domain.Player, error)
	List(ctx context.Context, ownerID int64) ([]domain.Player, error)
	Get(ctx context.Context, ownerID, id int64) (*domain.Player, error)
	Update(ctx context.Context, ownerID, id int64, patch domain.PlayerPatch) (*domain.Player, error)
	Delete(ctx context.Context, ownerID, id int64) error
	SearchByName(ctx context.Context, ownerID int64, name string) ([]domain.Player, error)
	ImportCSV(ctx context.Context, ownerID int64, r io.Reader) ([]domain.Player, error)
}

type playerService struct {
	players     repository.PlayerRepository
	ownerScoped bool
}

func NewPlayerService(players repository.PlayerRepository, ownerScoped bool) PlayerService {
	return &playerService{
		players:     players,
		ownerScoped: ownerScoped,
	}
}

func (s *playerService) Create(ctx context.Context, ownerID int64, input PlayerInput) (*domain.Player, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	player := &domain.Player{
		Name:         strings.TrimSpace(input.Name),
		Position:     strings.TrimSpace(input.Position),
		Team:         strings.TrimSpace(input.Team),
		Age:          input.Age,
		JerseyNumber: input.JerseyNumber,
		OwnerID:      &ownerID,
	}

	if _, err := s.players.Create(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *playerService) List(ctx context.Context, ownerID int64) ([]domain.Player, error) {
	return s.players.List(ctx, s.scope(ownerID))
}

func (s *playerService) Get(ctx context.Context, ownerID, id int64) (*domain.Player, error) {
	return s.players.Get(ctx, id, s.scope(ownerID))
}

func (s *playerService) Update(ctx context.Context, ownerID, id int64, patch domain.PlayerPatch) (*domain.Player, error) {
	player, err := s.players.Get(ctx, id, s.scope(ownerID))
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be empty")
		}
		player.Name = name
	}
	if patch.Position != nil {
		player.Position = strings.TrimSpace(*patch.Position)
	}
	if patch.Team != nil {
		player.Team = strings.TrimSpace(*patch.Team)
	}
	if patch.Age != nil {
		if *patch.Age <= 0 {
			return nil, domain.NewValidationError("age", "must be a positive number")
		}
		player.Age = *patch.Age
	}
	if patch.JerseyNumber != nil {
		if *patch.JerseyNumber <= 0 {
			return nil, domain.NewValidationError("jersey_number", "must be a positive number")
		}
		player.JerseyNumber = *patch.JerseyNumber
	}

	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *playerService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.players.Delete(ctx, id, s.scope(ownerID))
}

func (s *playerService) SearchByName(ctx context.Context, ownerID int64, name string) ([]domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	return s.players.SearchByName(ctx, name, s.scope(ownerID))
}

// ImportCSV bulk-creates players from a CSV stream with a header row. Only
// the name column is mandatory per row; numeric columns must parse and be
// positive when present in the header.
func (s *playerService) ImportCSV(ctx context.Context, ownerID int64, r io.Reader) ([]domain.Player, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, domain.NewValidationError("file", "missing CSV header row")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, domain.NewValidationError("file", "CSV header must contain a name column")
	}

	var created []domain.Player
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.NewValidationError("file", fmt.Sprintf("malformed CSV on line %d", line))
		}

		input, err := rowToInput(columns, record, line)
		if err != nil {
			return nil, err
		}

		player, err := s.Create(ctx, ownerID, input)
		if err != nil {
			return nil, fmt.Errorf("import row %d: %w", line, err)
		}
		created = append(created, *player)
	}

	return created, nil
}

func rowToInput(columns map[string]int, record []string, line int) (PlayerInput, error) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	input := PlayerInput{
		Name:     cell("name"),
		Position: cell("position"),
		Team:     cell("team"),
	}
	if input.Name == "" {
		return PlayerInput{}, domain.NewValidationError("name", fmt.Sprintf("is required on line %d", line))
	}

	if raw := cell("age"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return PlayerInput{}, domain.NewValidationError("age", fmt.Sprintf("is not a number on line %d", line))
		}
		input.Age = age
	}
	if raw := cell("jersey_number"); raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil {
			return PlayerInput{}, domain.NewValidationError("jersey_number", fmt.Sprintf("is not a number on line %d", line))
		}
		input.JerseyNumber = number
	}

	return input, nil
}

func validateInput(input PlayerInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if input.Age <= 0 {
		return domain.NewValidationError("age", "must be a positive number")
	}
	if input.JerseyNumber <= 0 {
		return domain.NewValidationError("jersey_number", "must be a positive number")
	}
	return nil
}

func (s *playerService) scope(ownerID int64) *int64 {
	if !s.ownerScoped {
		return nil
	}
	return &ownerID
}
