package inmem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type blobObject struct {
	data        []byte
	contentType string
}

// Blobs is an in-memory BlobStore. FailDeletes lets cascade-deletion tests
// force individual delete failures; Deleted records every delete attempt in
// order.
type Blobs struct {
	mu          sync.Mutex
	objects     map[string]blobObject
	FailDeletes map[string]bool
	Deleted     []string
}

func NewBlobs() *Blobs {
	return &Blobs{
		objects:     make(map[string]blobObject),
		FailDeletes: make(map[string]bool),
	}
}

func (s *Blobs) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = blobObject{data: data, contentType: contentType}
	return nil
}

func (s *Blobs) Get(_ context.Context, key string) (*store.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, store.ErrNotFound)
	}
	return &store.Blob{
		Content:     io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *Blobs) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, key)
	if s.FailDeletes[key] {
		return fmt.Errorf("remove object %s: forced failure", key)
	}
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are currently stored.
func (s *Blobs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
