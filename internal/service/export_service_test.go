package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"character-creator/internal/domain"
	"character-creator/internal/storage/storagetest"
)

func newExportService(env *testEnv, store *storagetest.Memory, bucket string) ExportService {
	cfg := ExportServiceConfig{
		Bucket:     bucket,
		Characters: env.repos.Characters,
		Extras:     env.repos.Extras,
		Metrics:    env.metrics,
		Now:        func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	}
	if store != nil {
		cfg.Storage = store
	}
	return NewExportService(cfg)
}

func TestExportService_Disabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, svc := range []ExportService{
		newExportService(env, nil, "exports"),
		newExportService(env, storagetest.NewMemory(), ""),
	} {
		_, err := svc.Export(ctx, &domain.User{ID: 1})
		require.ErrorIs(t, err, domain.ErrStorageUnavailable)
		_, err = svc.List(ctx, 1)
		require.ErrorIs(t, err, domain.ErrStorageUnavailable)
		require.ErrorIs(t, svc.DeleteAll(ctx, 1), domain.ErrStorageUnavailable)
	}
}

func TestExportService_ExportSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "secret1")
	bob := env.register(t, "bob", "secret1")

	c := mustCreate(t, env, alice.User.ID, "Sorceress", false)
	_, err := env.characters.AddAbility(ctx, alice.User.ID, c.ID, domain.Ability{Name: "Frost", Level: 3})
	require.NoError(t, err)
	mustCreate(t, env, bob.User.ID, "Not Mine", true)

	store := storagetest.NewMemory()
	svc := newExportService(env, store, "exports")

	res, err := svc.Export(ctx, alice.User)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Characters)
	assert.True(t, strings.HasPrefix(res.Key, "character-exports/user-"))
	assert.Contains(t, res.Key, "/20260304T050607Z-")
	assert.True(t, strings.HasSuffix(res.Key, ".json"))
	assert.Equal(t, "s3://exports/"+res.Key, res.Location)
	assert.Contains(t, res.URL, "expires=900")
	assert.Equal(t, res.CreatedAt.Add(15*time.Minute), res.ExpiresAt)

	obj, ok := store.Get("exports", res.Key)
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.ContentType)

	var doc struct {
		Owner      struct{ Username string } `json:"owner"`
		Characters []struct {
			Name       string `json:"name"`
			Attributes struct {
				Strength int `json:"strength"`
			} `json:"attributes"`
			Abilities []struct {
				Name  string `json:"name"`
				Level int    `json:"level"`
			} `json:"abilities"`
			Items []json.RawMessage `json:"items"`
		} `json:"characters"`
	}
	require.NoError(t, json.Unmarshal(obj.Body, &doc))
	assert.Equal(t, "alice", doc.Owner.Username)
	require.Len(t, doc.Characters, 1)
	assert.Equal(t, "Sorceress", doc.Characters[0].Name)
	assert.Equal(t, 5, doc.Characters[0].Attributes.Strength)
	require.Len(t, doc.Characters[0].Abilities, 1)
	assert.Equal(t, 3, doc.Characters[0].Abilities[0].Level)
	assert.Empty(t, doc.Characters[0].Items)
}

func TestExportService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "secret1")
	bob := env.register(t, "bob", "secret1")

	store := storagetest.NewMemory()
	svc := newExportService(env, store, "exports")

	first, err := svc.Export(ctx, alice.User)
	require.NoError(t, err)
	_, err = svc.Export(ctx, alice.User)
	require.NoError(t, err)
	bobs, err := svc.Export(ctx, bob.User)
	require.NoError(t, err)

	objects, err := svc.List(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	err = svc.Delete(ctx, alice.User.ID, bobs.Location)
	require.ErrorIs(t, err, domain.ErrForbidden)
	err = svc.Delete(ctx, alice.User.ID, "http://nope")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Delete(ctx, alice.User.ID, first.Location))
	objects, err = svc.List(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 1)

	err = svc.Delete(ctx, alice.User.ID, first.Location)
	require.ErrorIs(t, err, domain.ErrNotFound)
	objects, err = svc.List(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 1, "a missing snapshot deletes nothing")

	require.NoError(t, svc.DeleteAll(ctx, alice.User.ID))
	objects, err = svc.List(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Empty(t, objects)

	objects, err = svc.List(ctx, bob.User.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestExportService_UploadFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "secret1")

	store := storagetest.NewMemory()
	store.PutErr = errors.New("bucket unreachable")
	svc := newExportService(env, store, "exports")

	_, err := svc.Export(ctx, alice.User)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
}
