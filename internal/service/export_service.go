package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"character-creator/internal/domain"
	"character-creator/internal/metrics"
	"character-creator/internal/repository"
	"character-creator/internal/storage"
)

const (
	DefaultExportPrefix    = "character-exports"
	DefaultExportURLExpiry = 15 * time.Minute
	// exportPageSize bounds each listing query while collecting a snapshot.
	exportPageSize = 200
)

// ExportResult describes an uploaded snapshot.
type ExportResult struct {
	Key        string
	Location   string
	URL        string
	Characters int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// ExportService writes JSON snapshots of a user's characters to object storage.
type ExportService interface {
	Export(ctx context.Context, user *domain.User) (*ExportResult, error)
	List(ctx context.Context, userID int64) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, userID int64, location string) error
	DeleteAll(ctx context.Context, userID int64) error
}

// ExportServiceConfig wires the export service. A nil Storage or empty Bucket
// disables exports.
type ExportServiceConfig struct {
	Storage    storage.Service
	Bucket     string
	KeyPrefix  string
	URLExpiry  time.Duration
	Characters repository.CharacterRepository
	Extras     repository.CharacterExtrasRepository
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
	Now        func() time.Time
}

type exportService struct {
	storage    storage.Service
	bucket     string
	prefix     string
	urlExpiry  time.Duration
	characters repository.CharacterRepository
	extras     repository.CharacterExtrasRepository
	metrics    *metrics.Metrics
	log        *logrus.Logger
	now        func() time.Time
}

func NewExportService(cfg ExportServiceConfig) ExportService {
	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix == "" {
		prefix = DefaultExportPrefix
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = DefaultExportURLExpiry
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetOutput(io.Discard)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &exportService{
		storage:    cfg.Storage,
		bucket:     cfg.Bucket,
		prefix:     prefix,
		urlExpiry:  cfg.URLExpiry,
		characters: cfg.Characters,
		extras:     cfg.Extras,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
}

type exportDocument struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Owner      exportOwner       `json:"owner"`
	Characters []exportCharacter `json:"characters"`
}

type exportOwner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type exportCharacter struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Attributes  exportAttributes `json:"attributes"`
	Appearance  exportAppearance `json:"appearance"`
	Personality string           `json:"personality"`
	Backstory   string           `json:"backstory"`
	IsPublic    bool             `json:"isPublic"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Abilities   []exportAbility  `json:"abilities"`
	Items       []exportItem     `json:"items"`
}

type exportAttributes struct {
	Strength     int `json:"strength"`
	Intelligence int `json:"intelligence"`
	Agility      int `json:"agility"`
	Stamina      int `json:"stamina"`
	Charisma     int `json:"charisma"`
	Wisdom       int `json:"wisdom"`
}

type exportAppearance struct {
	SkinColor string `json:"skinColor"`
	HairColor string `json:"hairColor"`
	HairStyle string `json:"hairStyle"`
	EyeColor  string `json:"eyeColor"`
	Height    int    `json:"height"`
	Weight    int    `json:"weight"`
}

type exportAbility struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"`
}

type exportItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Value       int    `json:"value"`
}

func (s *exportService) enabled() bool {
	return s.storage != nil && s.bucket != ""
}

func (s *exportService) userPrefix(userID int64) string {
	return path.Join(s.prefix, "user-"+strconv.FormatInt(userID, 10)) + "/"
}

// Export uploads every character owned by user, with abilities and items, as one JSON object.
func (s *exportService) Export(ctx context.Context, user *domain.User) (*ExportResult, error) {
	if !s.enabled() {
		return nil, domain.ErrStorageUnavailable
	}

	doc, err := s.snapshot(ctx, user)
	if err != nil {
		s.metrics.ObserveExport(false)
		return nil, err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.metrics.ObserveExport(false)
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := fmt.Sprintf("%s%s-%s.json", s.userPrefix(user.ID), doc.ExportedAt.Format("20060102T150405Z"), uuid.NewString())
	location, err := s.storage.PutObject(ctx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      s.bucket,
		Key:         key,
		ContentType: "application/json",
		Metadata: map[string]string{
			"user-id":    strconv.FormatInt(user.ID, 10),
			"characters": strconv.Itoa(len(doc.Characters)),
		},
	})
	if err != nil {
		s.metrics.ObserveExport(false)
		return nil, err
	}

	url, err := s.storage.GetObjectURL(ctx, s.bucket, key, s.urlExpiry)
	if err != nil {
		s.metrics.ObserveExport(false)
		return nil, err
	}

	s.metrics.ObserveExport(true)
	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"characters": len(doc.Characters),
		"location":   location,
	}).Info("characters exported")

	return &ExportResult{
		Key:        key,
		Location:   location,
		URL:        url,
		Characters: len(doc.Characters),
		CreatedAt:  doc.ExportedAt,
		ExpiresAt:  doc.ExportedAt.Add(s.urlExpiry),
	}, nil
}

func (s *exportService) snapshot(ctx context.Context, user *domain.User) (*exportDocument, error) {
	doc := &exportDocument{
		Version:    1,
		ExportedAt: s.now().UTC(),
		Owner:      exportOwner{ID: user.ID, Username: user.Username},
		Characters: []exportCharacter{},
	}

	for offset := 0; ; offset += exportPageSize {
		page, err := s.characters.ListByUser(ctx, user.ID, false, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			entry, err := s.exportCharacter(ctx, c)
			if err != nil {
				return nil, err
			}
			doc.Characters = append(doc.Characters, entry)
		}
		if len(page) < exportPageSize {
			return doc, nil
		}
	}
}

func (s *exportService) exportCharacter(ctx context.Context, c domain.Character) (exportCharacter, error) {
	abilities, err := s.extras.ListAbilities(ctx, c.ID)
	if err != nil {
		return exportCharacter{}, err
	}
	items, err := s.extras.ListItems(ctx, c.ID)
	if err != nil {
		return exportCharacter{}, err
	}

	entry := exportCharacter{
		ID:          c.ID,
		Name:        c.Name,
		Attributes:  exportAttributes(c.Attributes),
		Appearance:  exportAppearance(c.Appearance),
		Personality: c.Personality,
		Backstory:   c.Backstory,
		IsPublic:    c.IsPublic,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Abilities:   make([]exportAbility, len(abilities)),
		Items:       make([]exportItem, len(items)),
	}
	for i, a := range abilities {
		entry.Abilities[i] = exportAbility{Name: a.Name, Description: a.Description, Level: a.Level}
	}
	for i, it := range items {
		entry.Items[i] = exportItem{Name: it.Name, Type: it.Type, Description: it.Description, Value: it.Value}
	}
	return entry, nil
}

func (s *exportService) List(ctx context.Context, userID int64) ([]storage.ObjectInfo, error) {
	if !s.enabled() {
		return nil, domain.ErrStorageUnavailable
	}
	return s.storage.ListObjects(ctx, s.bucket, s.userPrefix(userID))
}

// Delete removes one snapshot. The location must point inside the caller's
// prefix and name an existing object.
func (s *exportService) Delete(ctx context.Context, userID int64, location string) error {
	if !s.enabled() {
		return domain.ErrStorageUnavailable
	}
	key, err := storage.ParseLocation(strings.TrimSpace(location), s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !strings.HasPrefix(key, s.userPrefix(userID)) || !strings.HasSuffix(key, ".json") {
		return fmt.Errorf("%w: export does not belong to user", domain.ErrForbidden)
	}

	objects, err := s.storage.ListObjects(ctx, s.bucket, key)
	if err != nil {
		return fmt.Errorf("list exports: %w", err)
	}
	if !slices.ContainsFunc(objects, func(o storage.ObjectInfo) bool { return o.Key == key }) {
		return fmt.Errorf("%w: export %s", domain.ErrNotFound, location)
	}
	return s.storage.DeletePrefix(ctx, s.bucket, key)
}

func (s *exportService) DeleteAll(ctx context.Context, userID int64) error {
	if !s.enabled() {
		return domain.ErrStorageUnavailable
	}
	return s.storage.DeletePrefix(ctx, s.bucket, s.userPrefix(userID))
}
