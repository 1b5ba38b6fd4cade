package http

import (
	"time"

	"character-creator/internal/auth"
	"character-creator/internal/domain"
	"character-creator/internal/service"
	"character-creator/internal/storage"
)

type UserResponse struct {
	ID                  int64   `json:"id"`
	Username            string  `json:"username"`
	Email               string  `json:"email"`
	IsActive            bool    `json:"isActive"`
	FailedLoginAttempts int     `json:"failedLoginAttempts"`
	LastLogin           *string `json:"lastLogin,omitempty"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

type UserStatsResponse struct {
	TotalUsers      int64   `json:"totalUsers"`
	ActiveUsers     int64   `json:"activeUsers"`
	InactiveUsers   int64   `json:"inactiveUsers"`
	AvgFailedLogins float64 `json:"avgFailedLogins"`
	LatestLogin     *string `json:"latestLogin,omitempty"`
}

type AttributesResponse struct {
	Strength     int `json:"strength"`
	Intelligence int `json:"intelligence"`
	Agility      int `json:"agility"`
	Stamina      int `json:"stamina"`
	Charisma     int `json:"charisma"`
	Wisdom       int `json:"wisdom"`
}

type AppearanceResponse struct {
	SkinColor string `json:"skinColor"`
	HairColor string `json:"hairColor"`
	HairStyle string `json:"hairStyle"`
	EyeColor  string `json:"eyeColor"`
	Height    int    `json:"height"`
	Weight    int    `json:"weight"`
}

type OwnerResponse struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type CharacterResponse struct {
	ID          int64              `json:"id"`
	UserID      int64              `json:"userId"`
	Name        string             `json:"name"`
	Attributes  AttributesResponse `json:"attributes"`
	Appearance  AppearanceResponse `json:"appearance"`
	Personality string             `json:"personality"`
	Backstory   string             `json:"backstory"`
	IsPublic    bool               `json:"isPublic"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
	Owner       *OwnerResponse     `json:"owner"`
	Abilities   []AbilityResponse  `json:"abilities"`
	Items       []ItemResponse     `json:"items"`
}

type AbilityResponse struct {
	ID          int64  `json:"id"`
	CharacterID int64  `json:"characterId"`
	Name        string `json:"abilityName"`
	Description string `json:"abilityDescription"`
	Level       int    `json:"abilityLevel"`
}

type ItemResponse struct {
	ID          int64  `json:"id"`
	CharacterID int64  `json:"characterId"`
	Name        string `json:"itemName"`
	Type        string `json:"itemType"`
	Description string `json:"itemDescription"`
	Value       int    `json:"itemValue"`
}

type PaginationResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type LabelCountResponse struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type CharacterStatsResponse struct {
	TotalCharacters      int64                `json:"totalCharacters"`
	AvgStrength          float64              `json:"avgStrength"`
	AvgIntelligence      float64              `json:"avgIntelligence"`
	AvgAgility           float64              `json:"avgAgility"`
	UniqueUsers          int64                `json:"uniqueUsers"`
	PublicCharacters     int64                `json:"publicCharacters"`
	OldestCharacter      *string              `json:"oldestCharacter,omitempty"`
	NewestCharacter      *string              `json:"newestCharacter,omitempty"`
	PopularHairStyles    []LabelCountResponse `json:"popularHairStyles"`
	StrengthDistribution []LabelCountResponse `json:"strengthDistribution"`
}

type ExportResponse struct {
	Key        string `json:"key"`
	Location   string `json:"location"`
	URL        string `json:"url"`
	Characters int    `json:"characters"`
	CreatedAt  string `json:"createdAt"`
	ExpiresAt  string `json:"expiresAt"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Location     string  `json:"location"`
	Size         int64   `json:"size"`
	LastModified *string `json:"lastModified,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:                  user.ID,
		Username:            user.Username,
		Email:               user.Email,
		IsActive:            user.IsActive,
		FailedLoginAttempts: user.FailedLoginAttempts,
		LastLogin:           formatOptionalTime(user.LastLogin),
		CreatedAt:           formatTime(user.CreatedAt),
		UpdatedAt:           formatTime(user.UpdatedAt),
	}
}

func tokensToResponse(pair *auth.TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    pair.TokenType,
	}
}

func userStatsToResponse(stats domain.UserStats) UserStatsResponse {
	return UserStatsResponse{
		TotalUsers:      stats.TotalUsers,
		ActiveUsers:     stats.ActiveUsers,
		InactiveUsers:   stats.InactiveUsers,
		AvgFailedLogins: stats.AvgFailedLogins,
		LatestLogin:     formatOptionalTime(stats.LatestLogin),
	}
}

func characterToResponse(c domain.Character) CharacterResponse {
	resp := CharacterResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Attributes:  AttributesResponse(c.Attributes),
		Appearance:  AppearanceResponse(c.Appearance),
		Personality: c.Personality,
		Backstory:   c.Backstory,
		IsPublic:    c.IsPublic,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
	if c.Owner != nil {
		resp.Owner = &OwnerResponse{Username: c.Owner.Username, Email: c.Owner.Email}
	}
	if c.Abilities != nil {
		resp.Abilities = make([]AbilityResponse, len(c.Abilities))
		for i, a := range c.Abilities {
			resp.Abilities[i] = abilityToResponse(a)
		}
	}
	if c.Items != nil {
		resp.Items = make([]ItemResponse, len(c.Items))
		for i, it := range c.Items {
			resp.Items[i] = itemToResponse(it)
		}
	}
	return resp
}

func charactersToResponse(characters []domain.Character) []CharacterResponse {
	resp := make([]CharacterResponse, len(characters))
	for i := range characters {
		resp[i] = characterToResponse(characters[i])
	}
	return resp
}

func abilityToResponse(a domain.Ability) AbilityResponse {
	return AbilityResponse(a)
}

func itemToResponse(it domain.Item) ItemResponse {
	return ItemResponse(it)
}

func labelCountsToResponse(rows []domain.LabelCount) []LabelCountResponse {
	resp := make([]LabelCountResponse, len(rows))
	for i, row := range rows {
		resp[i] = LabelCountResponse(row)
	}
	return resp
}

func characterStatsToResponse(stats domain.CharacterStats) CharacterStatsResponse {
	return CharacterStatsResponse{
		TotalCharacters:      stats.TotalCharacters,
		AvgStrength:          stats.AvgStrength,
		AvgIntelligence:      stats.AvgIntelligence,
		AvgAgility:           stats.AvgAgility,
		UniqueUsers:          stats.UniqueUsers,
		PublicCharacters:     stats.PublicCharacters,
		OldestCharacter:      formatOptionalTime(stats.OldestCharacter),
		NewestCharacter:      formatOptionalTime(stats.NewestCharacter),
		PopularHairStyles:    labelCountsToResponse(stats.PopularHairStyles),
		StrengthDistribution: labelCountsToResponse(stats.StrengthDistribution),
	}
}

func exportToResponse(res *service.ExportResult) ExportResponse {
	return ExportResponse{
		Key:        res.Key,
		Location:   res.Location,
		URL:        res.URL,
		Characters: res.Characters,
		CreatedAt:  formatTime(res.CreatedAt),
		ExpiresAt:  formatTime(res.ExpiresAt),
	}
}

func objectToResponse(bucket string, obj storage.ObjectInfo) StorageObjectResponse {
	return StorageObjectResponse{
		Key:          obj.Key,
		Location:     storage.Location(bucket, obj.Key),
		Size:         obj.Size,
		LastModified: formatOptionalTime(obj.LastModified),
	}
}
