package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
	"github.com/bobmcallan/cartera/internal/models"
)

// DefaultSnapshotKey matches the key the browser app stored its blob under.
const DefaultSnapshotKey = "stocksApp"

// SnapshotStore implements interfaces.PortfolioStore by encoding the whole
// portfolio as one versioned JSON document under a single key.
type SnapshotStore struct {
	kv     interfaces.KeyValueStore
	key    string
	logger *common.Logger
	newID  func() string
}

// SnapshotOption configures a SnapshotStore.
type SnapshotOption func(*SnapshotStore)

// WithKey overrides the storage key.
func WithKey(key string) SnapshotOption {
	return func(s *SnapshotStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithIDGenerator sets the identity source used when migrating legacy rows.
func WithIDGenerator(fn func() string) SnapshotOption {
	return func(s *SnapshotStore) {
		s.newID = fn
	}
}

// NewSnapshotStore wraps a raw key-value store.
func NewSnapshotStore(kv interfaces.KeyValueStore, logger *common.Logger, opts ...SnapshotOption) *SnapshotStore {
	s := &SnapshotStore{
		kv:     kv,
		key:    DefaultSnapshotKey,
		logger: logger,
		newID:  newInvestmentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored portfolio. A missing key yields an empty portfolio;
// an undecodable blob is logged and also yields an empty portfolio.
// Only backend read failures are returned as errors.
func (s *SnapshotStore) Load(ctx context.Context) (*models.Portfolio, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		s.logger.Debug().Str("key", s.key).Msg("No stored snapshot, starting empty")
		return models.NewPortfolio(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	p, err := Decode(data, s.newID)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Int("bytes", len(data)).Msg("Stored snapshot unreadable, starting empty")
		return models.NewPortfolio(), nil
	}

	s.logger.Debug().Str("key", s.key).Int("wallets", len(p.Wallets)).Int("investments", p.Count()).Msg("Snapshot loaded")
	return p, nil
}

// Save overwrites the stored snapshot with p.
func (s *SnapshotStore) Save(ctx context.Context, p *models.Portfolio) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	s.logger.Debug().Str("key", s.key).Int("bytes", len(data)).Msg("Snapshot saved")
	return nil
}

// Clear deletes the stored snapshot. Clearing a missing key is not an error.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	s.logger.Info().Str("key", s.key).Msg("Snapshot cleared")
	return nil
}

var _ interfaces.PortfolioStore = (*SnapshotStore)(nil)

// Encode serializes p at the current schema version. Output is deterministic
// for a given portfolio.
func Encode(p *models.Portfolio) ([]byte, error) {
	if p == nil {
		p = models.NewPortfolio()
	}
	data, err := json.MarshalIndent(models.NewSnapshot(p), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses any known snapshot shape into a portfolio. Rows from legacy
// shapes receive identities from newID. Errors wrap models.ErrPersistenceCorrupt.
func Decode(data []byte, newID func() string) (*models.Portfolio, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", models.ErrPersistenceCorrupt)
	}

	var probe struct {
		Version *int            `json:"version"`
		Wallets json.RawMessage `json:"wallets"`
		Stocks  json.RawMessage `json:"stocks"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceCorrupt, err)
	}

	switch {
	case probe.Version != nil && *probe.Version == models.SnapshotVersion:
		return decodeCurrent(data, newID)
	case probe.Version != nil:
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", models.ErrPersistenceCorrupt, *probe.Version)
	case probe.Wallets != nil:
		return migrateWallets(data, newID)
	case probe.Stocks != nil:
		return migrateStocks(data, newID)
	}
	return nil, fmt.Errorf("%w: unrecognised snapshot shape", models.ErrPersistenceCorrupt)
}

func decodeCurrent(data []byte, newID func() string) (*models.Portfolio, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceCorrupt, err)
	}
	p := snap.Portfolio()
	for wi, w := range p.Wallets {
		name, err := models.WalletName(w.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: wallet %d: %v", models.ErrPersistenceCorrupt, wi, err)
		}
		w.Name = name
		for ii, inv := range w.Investments {
			if err := inv.Validate(); err != nil {
				return nil, fmt.Errorf("%w: wallet %d investment %d: %v", models.ErrPersistenceCorrupt, wi, ii, err)
			}
			if inv.ID == "" {
				inv.ID = newID()
			}
		}
	}
	return p, nil
}
