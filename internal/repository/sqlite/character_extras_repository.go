package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"character-creator/internal/domain"
	"character-creator/internal/repository"
)

const createCharacterExtrasTables = `
CREATE TABLE IF NOT EXISTS character_abilities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	character_id INTEGER NOT NULL,
	ability_name TEXT NOT NULL,
	ability_description TEXT NOT NULL DEFAULT '',
	ability_level INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY(character_id) REFERENCES characters(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_character_abilities_character_id ON character_abilities(character_id);
CREATE TABLE IF NOT EXISTS character_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	character_id INTEGER NOT NULL,
	item_name TEXT NOT NULL,
	item_type TEXT NOT NULL DEFAULT 'other',
	item_description TEXT NOT NULL DEFAULT '',
	item_value INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(character_id) REFERENCES characters(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_character_items_character_id ON character_items(character_id);
`

type CharacterExtrasRepository struct {
	db *sql.DB
}

func NewCharacterExtrasRepository(db *sql.DB) repository.CharacterExtrasRepository {
	return &CharacterExtrasRepository{db: db}
}

func (r *CharacterExtrasRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCharacterExtrasTables); err != nil {
		return fmt.Errorf("create character extras tables: %w", err)
	}
	return nil
}

func (r *CharacterExtrasRepository) AddAbility(ctx context.Context, ability *domain.Ability) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO character_abilities (character_id, ability_name, ability_description, ability_level)
VALUES (?, ?, ?, ?)`,
		ability.CharacterID,
		ability.Name,
		ability.Description,
		ability.Level,
	)
	if err != nil {
		return 0, fmt.Errorf("insert ability: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ability last insert id: %w", err)
	}
	ability.ID = id
	return id, nil
}

func (r *CharacterExtrasRepository) ListAbilities(ctx context.Context, characterID int64) ([]domain.Ability, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, character_id, ability_name, ability_description, ability_level
FROM character_abilities
WHERE character_id=?
ORDER BY ability_level DESC, id ASC`, characterID)
	if err != nil {
		return nil, fmt.Errorf("query abilities: %w", err)
	}
	defer rows.Close()

	abilities := []domain.Ability{}
	for rows.Next() {
		var a domain.Ability
		if err := rows.Scan(&a.ID, &a.CharacterID, &a.Name, &a.Description, &a.Level); err != nil {
			return nil, fmt.Errorf("scan ability: %w", err)
		}
		abilities = append(abilities, a)
	}

	return abilities, rows.Err()
}

func (r *CharacterExtrasRepository) AddItem(ctx context.Context, item *domain.Item) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO character_items (character_id, item_name, item_type, item_description, item_value)
VALUES (?, ?, ?, ?, ?)`,
		item.CharacterID,
		item.Name,
		item.Type,
		item.Description,
		item.Value,
	)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item last insert id: %w", err)
	}
	item.ID = id
	return id, nil
}

func (r *CharacterExtrasRepository) ListItems(ctx context.Context, characterID int64) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, character_id, item_name, item_type, item_description, item_value
FROM character_items
WHERE character_id=?
ORDER BY item_value DESC, id ASC`, characterID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.CharacterID, &it.Name, &it.Type, &it.Description, &it.Value); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}
