package media

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryFile struct {
	contentType string
	data        []byte
}

// MemoryStore keeps images in process memory. It backs the memory store
// driver and uses the same URL scheme as GridFSStore.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[primitive.ObjectID]memoryFile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[primitive.ObjectID]memoryFile)}
}

func (s *MemoryStore) Store(ctx context.Context, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := primitive.NewObjectID()
	s.mu.Lock()
	s.files[id] = memoryFile{
		contentType: mimetype.Detect(data).String(),
		data:        append([]byte(nil), data...),
	}
	s.mu.Unlock()
	return URLPrefix + id.Hex(), nil
}

func (s *MemoryStore) Delete(_ context.Context, url string) error {
	id, err := parseURL(url)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *MemoryStore) Open(_ context.Context, hexID string) (io.ReadCloser, string, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, "", ErrNotFound
	}
	s.mu.RLock()
	f, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(f.data)), f.contentType, nil
}
