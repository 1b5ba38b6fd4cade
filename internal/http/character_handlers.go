package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"character-creator/internal/domain"
)

// characterRequest is shared by create and update; nil fields keep their current or default value.
type characterRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=2,max=100"`
	Strength     *int    `json:"strength" binding:"omitempty,min=1,max=10"`
	Intelligence *int    `json:"intelligence" binding:"omitempty,min=1,max=10"`
	Agility      *int    `json:"agility" binding:"omitempty,min=1,max=10"`
	Stamina      *int    `json:"stamina" binding:"omitempty,min=1,max=10"`
	Charisma     *int    `json:"charisma" binding:"omitempty,min=1,max=10"`
	Wisdom       *int    `json:"wisdom" binding:"omitempty,min=1,max=10"`
	SkinColor    *string `json:"skinColor" binding:"omitempty,rgbcolor"`
	HairColor    *string `json:"hairColor" binding:"omitempty,rgbcolor"`
	HairStyle    *string `json:"hairStyle" binding:"omitempty,oneof=short medium long curly bald ponytail dreadlocks mohawk"`
	EyeColor     *string `json:"eyeColor" binding:"omitempty,rgbcolor"`
	Height       *int    `json:"height" binding:"omitempty,min=120,max=250"`
	Weight       *int    `json:"weight" binding:"omitempty,min=40,max=150"`
	Personality  *string `json:"personality" binding:"omitempty,max=100"`
	Backstory    *string `json:"backstory" binding:"omitempty,max=5000"`
	IsPublic     *bool   `json:"isPublic"`
}

func (r characterRequest) patch() domain.CharacterPatch {
	return domain.CharacterPatch{
		Name:         r.Name,
		Strength:     r.Strength,
		Intelligence: r.Intelligence,
		Agility:      r.Agility,
		Stamina:      r.Stamina,
		Charisma:     r.Charisma,
		Wisdom:       r.Wisdom,
		SkinColor:    r.SkinColor,
		HairColor:    r.HairColor,
		HairStyle:    r.HairStyle,
		EyeColor:     r.EyeColor,
		Height:       r.Height,
		Weight:       r.Weight,
		Personality:  r.Personality,
		Backstory:    r.Backstory,
		IsPublic:     r.IsPublic,
	}
}

type abilityRequest struct {
	Name        string `json:"abilityName" binding:"required,min=2,max=100"`
	Description string `json:"abilityDescription" binding:"omitempty,max=500"`
	Level       int    `json:"abilityLevel" binding:"omitempty,min=1,max=5"`
}

type itemRequest struct {
	Name        string `json:"itemName" binding:"required,min=2,max=100"`
	Type        string `json:"itemType" binding:"omitempty,oneof=weapon armor potion magic other"`
	Description string `json:"itemDescription" binding:"omitempty,max=500"`
	Value       int    `json:"itemValue" binding:"omitempty,min=0"`
}

type pageQuery struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

type listQuery struct {
	Limit         int  `form:"limit,default=50" binding:"min=1,max=200"`
	Offset        int  `form:"offset,default=0" binding:"min=0"`
	IncludePublic bool `form:"includePublic"`
}

type searchQuery struct {
	Limit       int    `form:"limit,default=50" binding:"min=1,max=200"`
	Offset      int    `form:"offset,default=0" binding:"min=0"`
	Name        string `form:"name" binding:"omitempty,max=100"`
	UserID      int64  `form:"userId" binding:"omitempty,min=1"`
	MinStrength int    `form:"minStrength" binding:"omitempty,min=1,max=10"`
	MaxStrength int    `form:"maxStrength" binding:"omitempty,min=1,max=10"`
	HairStyle   string `form:"hairStyle" binding:"omitempty,oneof=short medium long curly bald ponytail dreadlocks mohawk"`
	IsPublic    *bool  `form:"isPublic"`
}

type deleteExportRequest struct {
	Location string `json:"location" form:"location"`
}

func (h *Handler) createCharacter(c *gin.Context) {
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	character, err := h.characters.Create(c.Request.Context(), currentUser(c).ID, req.patch())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "character created",
		"character": characterToResponse(*character),
	})
}

func (h *Handler) listMyCharacters(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	characters, err := h.characters.ListMine(c.Request.Context(), currentUser(c).ID, q.IncludePublic, q.Limit, q.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCharacterPage(c, characters, q.Limit, q.Offset)
}

func (h *Handler) listPublicCharacters(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	characters, err := h.characters.ListPublic(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCharacterPage(c, characters, q.Limit, q.Offset)
}

func (h *Handler) searchCharacters(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	user := currentUser(c)
	characters, err := h.characters.Search(c.Request.Context(), user.ID, domain.CharacterFilter{
		Name:        q.Name,
		UserID:      q.UserID,
		MinStrength: q.MinStrength,
		MaxStrength: q.MaxStrength,
		HairStyle:   q.HairStyle,
		IsPublic:    q.IsPublic,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCharacterPage(c, characters, q.Limit, q.Offset)
}

func (h *Handler) characterStats(c *gin.Context) {
	stats, err := h.characters.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": characterStatsToResponse(stats)})
}

func (h *Handler) getCharacter(c *gin.Context) {
	id, ok := h.characterID(c)
	if !ok {
		return
	}

	character, err := h.characters.Get(c.Request.Context(), currentUser(c).ID, id, c.Query("include") == "all")
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "character": characterToResponse(*character)})
}

func (h *Handler) updateCharacter(c *gin.Context) {
	id, ok := h.characterID(c)
	if !ok {
		return
	}
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	character, err := h.characters.Update(c.Request.Context(), currentUser(c).ID, id, req.patch())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "character updated",
		"character": characterToResponse(*character),
	})
}

func (h *Handler) deleteCharacter(c *gin.Context) {
	id, ok := h.characterID(c)
	if !ok {
		return
	}

	if err := h.characters.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "character deleted"})
}

func (h *Handler) cloneCharacter(c *gin.Context) {
	id, ok := h.characterID(c)
	if !ok {
		return
	}

	character, err := h.characters.Clone(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "character cloned",
		"character": characterToResponse(*character),
	})
}

func (h *Handler) addAbility(c *gin.Context) {
	id, ok := h.characterID(c)
	if !ok {
		return
	}
	var req abilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	ability, err := h.characters.AddAbility(c.Request.Context(), currentUser(c).ID, id, domain.Ability{
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "ability added",
		"ability": abilityToResponse(*ability),
	})
}

func (h *Handler) addItem(c *gin.Context) {
	id, ok := h.characterID(c)
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	item, err := h.characters.AddItem(c.Request.Context(), currentUser(c).ID, id, domain.Item{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Value:       req.Value,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "item added",
		"item":    itemToResponse(*item),
	})
}

func (h *Handler) exportCharacters(c *gin.Context) {
	res, err := h.exports.Export(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "characters exported",
		"export":  exportToResponse(res),
	})
}

func (h *Handler) listExports(c *gin.Context) {
	objects, err := h.exports.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i, obj := range objects {
		resp[i] = objectToResponse(h.bucket, obj)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "exports": resp})
}

// deleteExports removes one snapshot when ?location= is given, answering 404 if it
// does not exist, otherwise all of the caller's snapshots.
func (h *Handler) deleteExports(c *gin.Context) {
	var req deleteExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	userID := currentUser(c).ID
	var err error
	if req.Location != "" {
		err = h.exports.Delete(c.Request.Context(), userID, req.Location)
	} else {
		err = h.exports.DeleteAll(c.Request.Context(), userID)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "exports deleted"})
}

func (h *Handler) characterID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, fmt.Errorf("%w: invalid character id %q", domain.ErrValidation, c.Param("id")))
		return 0, false
	}
	return id, true
}

func writeCharacterPage(c *gin.Context, characters []domain.Character, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"characters": charactersToResponse(characters),
		"pagination": PaginationResponse{
			Limit:  limit,
			Offset: offset,
			Total:  len(characters),
		},
	})
}
