// Package storage persists the portfolio snapshot on a pluggable key-value backend.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
	"github.com/bobmcallan/cartera/internal/storage/badger"
	"github.com/bobmcallan/cartera/internal/storage/filestore"
	"github.com/bobmcallan/cartera/internal/storage/sqlitedb"
)

// Backend type constants.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// NewKeyValueStore creates the raw store selected by config.
// Supported backends: "badger" (default), "sqlite", "file", "memory".
func NewKeyValueStore(logger *common.Logger, config common.StorageConfig) (interfaces.KeyValueStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendBadger
	}

	var (
		store interfaces.KeyValueStore
		err   error
	)
	switch backend {
	case BackendBadger:
		store, err = badger.NewStore(logger, config.Path)

	case BackendSQLite:
		path := config.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "cartera.db")
		}
		store, err = sqlitedb.NewStore(logger, path)

	case BackendFile:
		store, err = filestore.NewStore(logger, config.Path)

	case BackendMemory:
		store = NewMemoryStore()

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: badger, sqlite, file, memory)", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", backend, err)
	}

	logger.Info().Str("backend", backend).Str("path", config.Path).Msg("Storage initialized")
	return store, nil
}
