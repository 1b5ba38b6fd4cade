package domain

import "time"

// HairStyles lists the accepted appearance.hairStyle values.
var HairStyles = []string{"short", "medium", "long", "curly", "bald", "ponytail", "dreadlocks", "mohawk"}

// ItemTypes lists the accepted item type values.
var ItemTypes = []string{"weapon", "armor", "potion", "magic", "other"}

// Attributes are the six core character scores, each within 1..10.
type Attributes struct {
	Strength     int
	Intelligence int
	Agility      int
	Stamina      int
	Charisma     int
	Wisdom       int
}

// Appearance describes how a character looks.
type Appearance struct {
	SkinColor string
	HairColor string
	HairStyle string
	EyeColor  string
	Height    int
	Weight    int
}

// Owner is the public projection of the user owning a character.
type Owner struct {
	Username string
	Email    string
}

// Character is a user-owned game character.
type Character struct {
	ID          int64
	UserID      int64
	Name        string
	Attributes  Attributes
	Appearance  Appearance
	Personality string
	Backstory   string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Owner       *Owner
	Abilities   []Ability
	Items       []Item
}

// Ability is a named skill attached to a character.
type Ability struct {
	ID          int64
	CharacterID int64
	Name        string
	Description string
	Level       int
}

// Item is an inventory entry attached to a character.
type Item struct {
	ID          int64
	CharacterID int64
	Name        string
	Type        string
	Description string
	Value       int
}

// NewCharacter returns a character populated with the default attribute and appearance values.
func NewCharacter(userID int64, name string) Character {
	return Character{
		UserID: userID,
		Name:   name,
		Attributes: Attributes{
			Strength:     5,
			Intelligence: 5,
			Agility:      5,
			Stamina:      5,
			Charisma:     5,
			Wisdom:       5,
		},
		Appearance: Appearance{
			SkinColor: "#FFCC99",
			HairColor: "#000000",
			HairStyle: "short",
			EyeColor:  "#000000",
			Height:    170,
			Weight:    70,
		},
		IsPublic: true,
	}
}

// CharacterPatch lists the character columns an update may change. Nil fields are left untouched.
type CharacterPatch struct {
	Name         *string
	Strength     *int
	Intelligence *int
	Agility      *int
	Stamina      *int
	Charisma     *int
	Wisdom       *int
	SkinColor    *string
	HairColor    *string
	HairStyle    *string
	EyeColor     *string
	Height       *int
	Weight       *int
	Personality  *string
	Backstory    *string
	IsPublic     *bool
}

// CharacterFilter narrows a character search. Zero values disable a condition.
type CharacterFilter struct {
	Name        string
	UserID      int64
	MinStrength int
	MaxStrength int
	HairStyle   string
	IsPublic    *bool
	// ViewerID restricts results to public characters or those owned by the viewer.
	ViewerID int64
	Limit    int
	Offset   int
}

// CharacterStats summarizes the character catalog.
type CharacterStats struct {
	TotalCharacters      int64
	AvgStrength          float64
	AvgIntelligence      float64
	AvgAgility           float64
	UniqueUsers          int64
	PublicCharacters     int64
	OldestCharacter      *time.Time
	NewestCharacter      *time.Time
	PopularHairStyles    []LabelCount
	StrengthDistribution []LabelCount
}

// LabelCount is a grouped count row.
type LabelCount struct {
	Label string
	Count int64
}
