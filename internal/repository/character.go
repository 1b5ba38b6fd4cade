package repository

import (
	"context"

	"character-creator/internal/domain"
)

// CharacterRepository exposes persistence operations for characters.
type CharacterRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, character *domain.Character) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Character, error)
	ListByUser(ctx context.Context, userID int64, includePublic bool, limit, offset int) ([]domain.Character, error)
	ListPublic(ctx context.Context, limit, offset int) ([]domain.Character, error)
	Search(ctx context.Context, filter domain.CharacterFilter) ([]domain.Character, error)
	Update(ctx context.Context, id, userID int64, patch domain.CharacterPatch) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
	Stats(ctx context.Context) (domain.CharacterStats, error)
}

// CharacterExtrasRepository manages abilities and items attached to characters.
type CharacterExtrasRepository interface {
	Init(ctx context.Context) error
	AddAbility(ctx context.Context, ability *domain.Ability) (int64, error)
	ListAbilities(ctx context.Context, characterID int64) ([]domain.Ability, error)
	AddItem(ctx context.Context, item *domain.Item) (int64, error)
	ListItems(ctx context.Context, characterID int64) ([]domain.Item, error)
}
