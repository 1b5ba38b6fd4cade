package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"character-creator/internal/domain"
	"character-creator/internal/repository"
)

const createCharactersTable = `
CREATE TABLE IF NOT EXISTS characters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	strength INTEGER NOT NULL DEFAULT 5,
	intelligence INTEGER NOT NULL DEFAULT 5,
	agility INTEGER NOT NULL DEFAULT 5,
	stamina INTEGER NOT NULL DEFAULT 5,
	charisma INTEGER NOT NULL DEFAULT 5,
	wisdom INTEGER NOT NULL DEFAULT 5,
	skin_color TEXT NOT NULL DEFAULT '#FFCC99',
	hair_color TEXT NOT NULL DEFAULT '#000000',
	hair_style TEXT NOT NULL DEFAULT 'short',
	eye_color TEXT NOT NULL DEFAULT '#000000',
	height INTEGER NOT NULL DEFAULT 170,
	weight INTEGER NOT NULL DEFAULT 70,
	personality TEXT NOT NULL DEFAULT '',
	backstory TEXT NOT NULL DEFAULT '',
	is_public INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_characters_user_id ON characters(user_id);
CREATE INDEX IF NOT EXISTS idx_characters_public ON characters(is_public);
`

const characterSelect = `
SELECT c.id, c.user_id, c.name, c.strength, c.intelligence, c.agility, c.stamina, c.charisma, c.wisdom,
	c.skin_color, c.hair_color, c.hair_style, c.eye_color, c.height, c.weight,
	c.personality, c.backstory, c.is_public, c.created_at, c.updated_at,
	u.username, u.email
FROM characters c
LEFT JOIN users u ON c.user_id = u.id`

// patchColumns maps the updatable patch fields to their column names, in a stable order.
var patchColumns = []struct {
	column string
	value  func(domain.CharacterPatch) (any, bool)
}{
	{"name", func(p domain.CharacterPatch) (any, bool) { return deref(p.Name) }},
	{"strength", func(p domain.CharacterPatch) (any, bool) { return deref(p.Strength) }},
	{"intelligence", func(p domain.CharacterPatch) (any, bool) { return deref(p.Intelligence) }},
	{"agility", func(p domain.CharacterPatch) (any, bool) { return deref(p.Agility) }},
	{"stamina", func(p domain.CharacterPatch) (any, bool) { return deref(p.Stamina) }},
	{"charisma", func(p domain.CharacterPatch) (any, bool) { return deref(p.Charisma) }},
	{"wisdom", func(p domain.CharacterPatch) (any, bool) { return deref(p.Wisdom) }},
	{"skin_color", func(p domain.CharacterPatch) (any, bool) { return deref(p.SkinColor) }},
	{"hair_color", func(p domain.CharacterPatch) (any, bool) { return deref(p.HairColor) }},
	{"hair_style", func(p domain.CharacterPatch) (any, bool) { return deref(p.HairStyle) }},
	{"eye_color", func(p domain.CharacterPatch) (any, bool) { return deref(p.EyeColor) }},
	{"height", func(p domain.CharacterPatch) (any, bool) { return deref(p.Height) }},
	{"weight", func(p domain.CharacterPatch) (any, bool) { return deref(p.Weight) }},
	{"personality", func(p domain.CharacterPatch) (any, bool) { return deref(p.Personality) }},
	{"backstory", func(p domain.CharacterPatch) (any, bool) { return deref(p.Backstory) }},
	{"is_public", func(p domain.CharacterPatch) (any, bool) { return deref(p.IsPublic) }},
}

type CharacterRepository struct {
	db *sql.DB
}

func NewCharacterRepository(db *sql.DB) repository.CharacterRepository {
	return &CharacterRepository{db: db}
}

func (r *CharacterRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCharactersTable); err != nil {
		return fmt.Errorf("create characters table: %w", err)
	}
	return nil
}

func (r *CharacterRepository) Create(ctx context.Context, character *domain.Character) (int64, error) {
	now := time.Now().UTC()
	character.CreatedAt = now
	character.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO characters (user_id, name, strength, intelligence, agility, stamina, charisma, wisdom,
	skin_color, hair_color, hair_style, eye_color, height, weight, personality, backstory, is_public, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		character.UserID,
		character.Name,
		character.Attributes.Strength,
		character.Attributes.Intelligence,
		character.Attributes.Agility,
		character.Attributes.Stamina,
		character.Attributes.Charisma,
		character.Attributes.Wisdom,
		character.Appearance.SkinColor,
		character.Appearance.HairColor,
		character.Appearance.HairStyle,
		character.Appearance.EyeColor,
		character.Appearance.Height,
		character.Appearance.Weight,
		character.Personality,
		character.Backstory,
		character.IsPublic,
		character.CreatedAt,
		character.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert character: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	character.ID = id
	return id, nil
}

func (r *CharacterRepository) Get(ctx context.Context, id int64) (*domain.Character, error) {
	row := r.db.QueryRowContext(ctx, characterSelect+`
WHERE c.id = ?`, id)
	return scanCharacter(row)
}

func (r *CharacterRepository) ListByUser(ctx context.Context, userID int64, includePublic bool, limit, offset int) ([]domain.Character, error) {
	where := `WHERE c.user_id = ?`
	if includePublic {
		where += ` OR c.is_public = 1`
	}
	return r.query(ctx, characterSelect+`
`+where+`
ORDER BY c.created_at DESC, c.id DESC
LIMIT ? OFFSET ?`, userID, limit, offset)
}

func (r *CharacterRepository) ListPublic(ctx context.Context, limit, offset int) ([]domain.Character, error) {
	return r.query(ctx, characterSelect+`
WHERE c.is_public = 1
ORDER BY c.created_at DESC, c.id DESC
LIMIT ? OFFSET ?`, limit, offset)
}

// Search assembles the WHERE clause from the non-zero filter fields; every
// value is bound as a parameter.
func (r *CharacterRepository) Search(ctx context.Context, filter domain.CharacterFilter) ([]domain.Character, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ViewerID > 0 {
		conditions = append(conditions, `(c.is_public = 1 OR c.user_id = ?)`)
		args = append(args, filter.ViewerID)
	}
	if filter.Name != "" {
		conditions = append(conditions, `c.name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Name)+"%")
	}
	if filter.UserID > 0 {
		conditions = append(conditions, `c.user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.MinStrength > 0 {
		conditions = append(conditions, `c.strength >= ?`)
		args = append(args, filter.MinStrength)
	}
	if filter.MaxStrength > 0 {
		conditions = append(conditions, `c.strength <= ?`)
		args = append(args, filter.MaxStrength)
	}
	if filter.HairStyle != "" {
		conditions = append(conditions, `c.hair_style = ?`)
		args = append(args, filter.HairStyle)
	}
	if filter.IsPublic != nil {
		conditions = append(conditions, `c.is_public = ?`)
		args = append(args, *filter.IsPublic)
	}

	query := characterSelect
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY c.created_at DESC, c.id DESC\nLIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.query(ctx, query, args...)
}

func (r *CharacterRepository) Update(ctx context.Context, id, userID int64, patch domain.CharacterPatch) error {
	var (
		sets []string
		args []any
	)
	for _, col := range patchColumns {
		if v, ok := col.value(patch); ok {
			sets = append(sets, col.column+"=?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: no updatable fields", domain.ErrValidation)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().UTC(), id, userID)

	query := fmt.Sprintf(`
UPDATE characters
SET %s
WHERE id=? AND user_id=?`, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update character: %w", err)
	}
	return requireAffected(res, "update character")
}

func (r *CharacterRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM characters WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete character: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("character delete rows affected: %w", err)
	}
	if aff == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM character_abilities WHERE character_id=?`, id); err != nil {
		return false, fmt.Errorf("delete character abilities: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM character_items WHERE character_id=?`, id); err != nil {
		return false, fmt.Errorf("delete character items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit character delete: %w", err)
	}
	return true, nil
}

func (r *CharacterRepository) Stats(ctx context.Context) (domain.CharacterStats, error) {
	var (
		stats                  domain.CharacterStats
		avgStr, avgInt, avgAgi sql.NullFloat64
		publicCount            sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	AVG(strength),
	AVG(intelligence),
	AVG(agility),
	COUNT(DISTINCT user_id),
	SUM(is_public)
FROM characters`).Scan(&stats.TotalCharacters, &avgStr, &avgInt, &avgAgi, &stats.UniqueUsers, &publicCount)
	if err != nil {
		return domain.CharacterStats{}, fmt.Errorf("query character stats: %w", err)
	}
	stats.AvgStrength = avgStr.Float64
	stats.AvgIntelligence = avgInt.Float64
	stats.AvgAgility = avgAgi.Float64
	stats.PublicCharacters = publicCount.Int64

	if stats.OldestCharacter, err = queryOptionalTime(ctx, r.db, `SELECT created_at FROM characters ORDER BY created_at ASC LIMIT 1`); err != nil {
		return domain.CharacterStats{}, fmt.Errorf("query oldest character: %w", err)
	}
	if stats.NewestCharacter, err = queryOptionalTime(ctx, r.db, `SELECT created_at FROM characters ORDER BY created_at DESC LIMIT 1`); err != nil {
		return domain.CharacterStats{}, fmt.Errorf("query newest character: %w", err)
	}

	if stats.PopularHairStyles, err = r.labelCounts(ctx, `
SELECT hair_style, COUNT(*) AS count
FROM characters
GROUP BY hair_style
ORDER BY count DESC, hair_style ASC
LIMIT 5`); err != nil {
		return domain.CharacterStats{}, fmt.Errorf("query popular hair styles: %w", err)
	}

	if stats.StrengthDistribution, err = r.labelCounts(ctx, `
SELECT
	CASE
		WHEN strength >= 8 THEN 'high'
		WHEN strength >= 5 THEN 'medium'
		ELSE 'low'
	END AS strength_level,
	COUNT(*)
FROM characters
GROUP BY strength_level
ORDER BY strength_level ASC`); err != nil {
		return domain.CharacterStats{}, fmt.Errorf("query strength distribution: %w", err)
	}

	return stats, nil
}

func (r *CharacterRepository) labelCounts(ctx context.Context, query string) ([]domain.LabelCount, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []domain.LabelCount{}
	for rows.Next() {
		var lc domain.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}

func (r *CharacterRepository) query(ctx context.Context, query string, args ...any) ([]domain.Character, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	characters := []domain.Character{}
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, *character)
	}

	return characters, rows.Err()
}

func scanCharacter(scanner interface {
	Scan(dest ...any) error
}) (*domain.Character, error) {
	var (
		c             domain.Character
		ownerUsername sql.NullString
		ownerEmail    sql.NullString
	)

	if err := scanner.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Attributes.Strength,
		&c.Attributes.Intelligence,
		&c.Attributes.Agility,
		&c.Attributes.Stamina,
		&c.Attributes.Charisma,
		&c.Attributes.Wisdom,
		&c.Appearance.SkinColor,
		&c.Appearance.HairColor,
		&c.Appearance.HairStyle,
		&c.Appearance.EyeColor,
		&c.Appearance.Height,
		&c.Appearance.Weight,
		&c.Personality,
		&c.Backstory,
		&c.IsPublic,
		&c.CreatedAt,
		&c.UpdatedAt,
		&ownerUsername,
		&ownerEmail,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan character: %w", err)
	}

	if ownerUsername.Valid {
		c.Owner = &domain.Owner{
			Username: ownerUsername.String,
			Email:    ownerEmail.String,
		}
	}
	return &c, nil
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
