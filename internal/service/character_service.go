package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"character-creator/internal/domain"
	"character-creator/internal/repository"
)

const copySuffix = " (Copy)"

// CharacterService coordinates character catalog operations on behalf of a user.
type CharacterService interface {
	Create(ctx context.Context, userID int64, input domain.CharacterPatch) (*domain.Character, error)
	Get(ctx context.Context, viewerID, id int64, includeAll bool) (*domain.Character, error)
	ListMine(ctx context.Context, userID int64, includePublic bool, limit, offset int) ([]domain.Character, error)
	ListPublic(ctx context.Context, limit, offset int) ([]domain.Character, error)
	Search(ctx context.Context, viewerID int64, filter domain.CharacterFilter) ([]domain.Character, error)
	Update(ctx context.Context, userID, id int64, patch domain.CharacterPatch) (*domain.Character, error)
	Delete(ctx context.Context, userID, id int64) error
	Clone(ctx context.Context, userID, id int64) (*domain.Character, error)
	AddAbility(ctx context.Context, userID, characterID int64, ability domain.Ability) (*domain.Ability, error)
	AddItem(ctx context.Context, userID, characterID int64, item domain.Item) (*domain.Item, error)
	Stats(ctx context.Context) (domain.CharacterStats, error)
}

type characterService struct {
	characters repository.CharacterRepository
	extras     repository.CharacterExtrasRepository
}

func NewCharacterService(characters repository.CharacterRepository, extras repository.CharacterExtrasRepository) CharacterService {
	return &characterService{
		characters: characters,
		extras:     extras,
	}
}

func (s *characterService) Create(ctx context.Context, userID int64, input domain.CharacterPatch) (*domain.Character, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	name := strings.TrimSpace(*input.Name)
	input.Name = &name
	if err := input.Validate(); err != nil {
		return nil, err
	}

	character := domain.NewCharacter(userID, name)
	input.Apply(&character)

	if _, err := s.characters.Create(ctx, &character); err != nil {
		return nil, err
	}
	return s.load(ctx, character.ID)
}

// Get returns a character visible to viewerID. includeAll also loads abilities and items.
func (s *characterService) Get(ctx context.Context, viewerID, id int64, includeAll bool) (*domain.Character, error) {
	character, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !character.IsPublic && character.UserID != viewerID {
		return nil, fmt.Errorf("%w: character is private", domain.ErrForbidden)
	}
	if includeAll {
		if err := s.attachExtras(ctx, character); err != nil {
			return nil, err
		}
	}
	return character, nil
}

func (s *characterService) ListMine(ctx context.Context, userID int64, includePublic bool, limit, offset int) ([]domain.Character, error) {
	limit, offset = normalizePage(limit, offset)
	return s.characters.ListByUser(ctx, userID, includePublic, limit, offset)
}

func (s *characterService) ListPublic(ctx context.Context, limit, offset int) ([]domain.Character, error) {
	limit, offset = normalizePage(limit, offset)
	return s.characters.ListPublic(ctx, limit, offset)
}

// Search only ever returns public characters or characters owned by viewerID.
func (s *characterService) Search(ctx context.Context, viewerID int64, filter domain.CharacterFilter) ([]domain.Character, error) {
	if filter.Limit < 0 || filter.Limit > maxPageSize {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
	}
	for _, v := range []int{filter.MinStrength, filter.MaxStrength} {
		if v != 0 && (v < 1 || v > 10) {
			return nil, fmt.Errorf("%w: strength bounds must be between 1 and 10", domain.ErrValidation)
		}
	}
	if filter.HairStyle != "" && !slices.Contains(domain.HairStyles, filter.HairStyle) {
		return nil, fmt.Errorf("%w: unknown hair style %q", domain.ErrValidation, filter.HairStyle)
	}

	filter.Name = strings.TrimSpace(filter.Name)
	filter.ViewerID = viewerID
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.characters.Search(ctx, filter)
}

func (s *characterService) Update(ctx context.Context, userID, id int64, patch domain.CharacterPatch) (*domain.Character, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := s.characters.Update(ctx, id, userID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: character not found or not owned", domain.ErrNotFound)
		}
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *characterService) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.characters.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: character not found or not owned", domain.ErrNotFound)
	}
	return nil
}

// Clone copies a public or owned character into a private character owned by userID.
func (s *characterService) Clone(ctx context.Context, userID, id int64) (*domain.Character, error) {
	source, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !source.IsPublic && source.UserID != userID {
		return nil, fmt.Errorf("%w: character cannot be cloned", domain.ErrForbidden)
	}

	clone := domain.Character{
		UserID:      userID,
		Name:        cloneName(source.Name),
		Attributes:  source.Attributes,
		Appearance:  source.Appearance,
		Personality: source.Personality,
		Backstory:   source.Backstory,
		IsPublic:    false,
	}
	if _, err := s.characters.Create(ctx, &clone); err != nil {
		return nil, err
	}
	return s.load(ctx, clone.ID)
}

func (s *characterService) AddAbility(ctx context.Context, userID, characterID int64, ability domain.Ability) (*domain.Ability, error) {
	if err := ability.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, userID, characterID); err != nil {
		return nil, err
	}
	ability.CharacterID = characterID
	if _, err := s.extras.AddAbility(ctx, &ability); err != nil {
		return nil, err
	}
	return &ability, nil
}

func (s *characterService) AddItem(ctx context.Context, userID, characterID int64, item domain.Item) (*domain.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, userID, characterID); err != nil {
		return nil, err
	}
	item.CharacterID = characterID
	if _, err := s.extras.AddItem(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *characterService) Stats(ctx context.Context) (domain.CharacterStats, error) {
	return s.characters.Stats(ctx)
}

func (s *characterService) load(ctx context.Context, id int64) (*domain.Character, error) {
	character, err := s.characters.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: character", domain.ErrNotFound)
		}
		return nil, err
	}
	return character, nil
}

func (s *characterService) attachExtras(ctx context.Context, character *domain.Character) error {
	abilities, err := s.extras.ListAbilities(ctx, character.ID)
	if err != nil {
		return err
	}
	items, err := s.extras.ListItems(ctx, character.ID)
	if err != nil {
		return err
	}
	character.Abilities = abilities
	character.Items = items
	return nil
}

func (s *characterService) requireOwner(ctx context.Context, userID, characterID int64) error {
	character, err := s.load(ctx, characterID)
	if err != nil {
		return err
	}
	if character.UserID != userID {
		return fmt.Errorf("%w: only the owner may modify this character", domain.ErrForbidden)
	}
	return nil
}

// cloneName appends the copy suffix, trimming the source so the result stays within 100 characters.
func cloneName(name string) string {
	limit := 100 - utf8.RuneCountInString(copySuffix)
	if utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name + copySuffix
}
