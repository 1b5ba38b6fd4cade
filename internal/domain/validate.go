package domain

import (
	"fmt"
	"regexp"
	"slices"
	"unicode/utf8"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsHexColor reports whether s is a #RRGGBB color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// Apply copies every non-nil patch field onto c.
func (p CharacterPatch) Apply(c *Character) {
	set(&c.Name, p.Name)
	set(&c.Attributes.Strength, p.Strength)
	set(&c.Attributes.Intelligence, p.Intelligence)
	set(&c.Attributes.Agility, p.Agility)
	set(&c.Attributes.Stamina, p.Stamina)
	set(&c.Attributes.Charisma, p.Charisma)
	set(&c.Attributes.Wisdom, p.Wisdom)
	set(&c.Appearance.SkinColor, p.SkinColor)
	set(&c.Appearance.HairColor, p.HairColor)
	set(&c.Appearance.HairStyle, p.HairStyle)
	set(&c.Appearance.EyeColor, p.EyeColor)
	set(&c.Appearance.Height, p.Height)
	set(&c.Appearance.Weight, p.Weight)
	set(&c.Personality, p.Personality)
	set(&c.Backstory, p.Backstory)
	set(&c.IsPublic, p.IsPublic)
}

// Validate checks the bounds of every field present in the patch.
func (p CharacterPatch) Validate() error {
	if p.Name != nil {
		if err := lengthBetween("name", *p.Name, 2, 100); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name string
		v    *int
	}{
		{"strength", p.Strength},
		{"intelligence", p.Intelligence},
		{"agility", p.Agility},
		{"stamina", p.Stamina},
		{"charisma", p.Charisma},
		{"wisdom", p.Wisdom},
	} {
		if f.v != nil && (*f.v < 1 || *f.v > 10) {
			return fmt.Errorf("%w: %s must be between 1 and 10", ErrValidation, f.name)
		}
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"skinColor", p.SkinColor},
		{"hairColor", p.HairColor},
		{"eyeColor", p.EyeColor},
	} {
		if f.v != nil && !IsHexColor(*f.v) {
			return fmt.Errorf("%w: %s must be a #RRGGBB color", ErrValidation, f.name)
		}
	}
	if p.HairStyle != nil && !slices.Contains(HairStyles, *p.HairStyle) {
		return fmt.Errorf("%w: unknown hair style %q", ErrValidation, *p.HairStyle)
	}
	if p.Height != nil && (*p.Height < 120 || *p.Height > 250) {
		return fmt.Errorf("%w: height must be between 120 and 250", ErrValidation)
	}
	if p.Weight != nil && (*p.Weight < 40 || *p.Weight > 150) {
		return fmt.Errorf("%w: weight must be between 40 and 150", ErrValidation)
	}
	if p.Personality != nil {
		if err := lengthBetween("personality", *p.Personality, 0, 100); err != nil {
			return err
		}
	}
	if p.Backstory != nil {
		if err := lengthBetween("backstory", *p.Backstory, 0, 5000); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks an ability and fills in the default level.
func (a *Ability) Validate() error {
	if a.Level == 0 {
		a.Level = 1
	}
	if err := lengthBetween("ability name", a.Name, 2, 100); err != nil {
		return err
	}
	if err := lengthBetween("ability description", a.Description, 0, 500); err != nil {
		return err
	}
	if a.Level < 1 || a.Level > 5 {
		return fmt.Errorf("%w: ability level must be between 1 and 5", ErrValidation)
	}
	return nil
}

// Validate checks an item and fills in the default type.
func (it *Item) Validate() error {
	if it.Type == "" {
		it.Type = "other"
	}
	if err := lengthBetween("item name", it.Name, 2, 100); err != nil {
		return err
	}
	if err := lengthBetween("item description", it.Description, 0, 500); err != nil {
		return err
	}
	if !slices.Contains(ItemTypes, it.Type) {
		return fmt.Errorf("%w: unknown item type %q", ErrValidation, it.Type)
	}
	if it.Value < 0 {
		return fmt.Errorf("%w: item value must not be negative", ErrValidation)
	}
	return nil
}

func lengthBetween(field, s string, lo, hi int) error {
	n := utf8.RuneCountInString(s)
	if n < lo || n > hi {
		return fmt.Errorf("%w: %s must be %d to %d characters", ErrValidation, field, lo, hi)
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
