package semantic

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/afs"
)

// ErrNotFound is returned by a Loader when no unit exists under an ID.
var ErrNotFound = errors.New("unit not found")

// Loader reads the source text of a unit that is not held in memory.
type Loader interface {
	Load(ctx context.Context, id string) (string, error)
}

// AFSLoader reads units through an afs.Service, so IDs may be local paths
// or any URL scheme afs understands.
type AFSLoader struct {
	fs afs.Service
}

// NewAFSLoader creates a loader over the default afs service.
func NewAFSLoader() *AFSLoader {
	return &AFSLoader{fs: afs.New()}
}

// Load returns the text stored under id.
func (l *AFSLoader) Load(ctx context.Context, id string) (string, error) {
	ok, err := l.fs.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", id, err)
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	data, err := l.fs.DownloadWithURL(ctx, id)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", id, err)
	}
	return string(data), nil
}

// MapLoader serves units from memory.
type MapLoader map[string]string

// Load returns the text stored under id.
func (m MapLoader) Load(_ context.Context, id string) (string, error) {
	text, ok := m[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return text, nil
}

// ChainLoader tries each loader in order and returns the first text found.
// Errors other than ErrNotFound stop the search.
type ChainLoader []Loader

// Load returns the text of id from the first loader that has it.
func (c ChainLoader) Load(ctx context.Context, id string) (string, error) {
	for _, l := range c {
		text, err := l.Load(ctx, id)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", id, ErrNotFound)
}
