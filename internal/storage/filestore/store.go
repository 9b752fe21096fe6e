// Package filestore keeps each key as a JSON file under a base directory.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
)

// Store implements interfaces.KeyValueStore using the local filesystem.
// Key "stocksApp" maps to "{basePath}/stocksApp.json".
type Store struct {
	basePath string
	logger   *common.Logger
}

// NewStore creates a new file-based store.
func NewStore(logger *common.Logger, basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", basePath, err)
	}
	logger.Debug().Str("path", basePath).Msg("File store initialized")
	return &Store{basePath: basePath, logger: logger}, nil
}

// sanitizeKey flattens a key into a single safe file name.
func sanitizeKey(key string) string {
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "..", "__")
	if clean == "" || clean == "." {
		clean = "_"
	}
	return clean
}

func (s *Store) keyToPath(key string) string {
	return filepath.Join(s.basePath, sanitizeKey(key)+".json")
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return data, nil
}

// Set writes atomically using temp file + rename.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	path := s.keyToPath(key)

	tmpFile, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, bytes.NewReader(value)); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug().Str("path", path).Int("bytes", len(value)).Msg("File key written")
	return nil
}

// Delete removes a key. No error if not found.
func (s *Store) Delete(_ context.Context, key string) error {
	err := os.Remove(s.keyToPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error { return nil }

var _ interfaces.KeyValueStore = (*Store)(nil)
