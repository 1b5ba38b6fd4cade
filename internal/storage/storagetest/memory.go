// Package storagetest provides an in-memory storage.Service for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"character-creator/internal/storage"
)

// Object is a stored blob with its upload metadata.
type Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
	Modified    time.Time
}

// Memory keeps objects keyed by bucket and key.
type Memory struct {
	mu      sync.Mutex
	objects map[string]map[string]Object

	// PutErr, when set, is returned by PutObject.
	PutErr error
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]map[string]Object)}
}

func (m *Memory) PutObject(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	if m.PutErr != nil {
		return "", m.PutErr
	}
	if opts.Bucket == "" || opts.Key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[opts.Bucket] == nil {
		m.objects[opts.Bucket] = make(map[string]Object)
	}
	m.objects[opts.Bucket][opts.Key] = Object{
		Body:        data,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
		Modified:    time.Now().UTC(),
	}
	return storage.Location(opts.Bucket, opts.Key), nil
}

func (m *Memory) ListObjects(_ context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []storage.ObjectInfo{}
	for key, obj := range m.objects[bucket] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		modified := obj.Modified
		out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(obj.Body)), LastModified: &modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) DeletePrefix(_ context.Context, bucket, prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("prefix is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.objects[bucket] {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects[bucket], key)
		}
	}
	return nil
}

func (m *Memory) GetObjectURL(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.storage.test/%s?expires=%d", bucket, key, int64(expires.Seconds())), nil
}

// Get returns a stored object.
func (m *Memory) Get(bucket, key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucket][key]
	return obj, ok
}

// Reader returns the body of a stored object.
func (o Object) Reader() io.Reader {
	return bytes.NewReader(o.Body)
}

var _ storage.Service = (*Memory)(nil)
