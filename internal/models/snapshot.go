package models

// SnapshotVersion is the schema version written by Save.
// Version 1 is the unversioned browser blob ({"wallets":[{"name","inversiones"}]}).
const SnapshotVersion = 2

// Snapshot is the persisted form of a Portfolio.
type Snapshot struct {
	Version int       `json:"version"`
	Wallets []*Wallet `json:"wallets"`
}

// NewSnapshot captures p at the current schema version.
func NewSnapshot(p *Portfolio) *Snapshot {
	wallets := p.Clone().Wallets
	if wallets == nil {
		wallets = []*Wallet{}
	}
	return &Snapshot{Version: SnapshotVersion, Wallets: wallets}
}

// Portfolio rebuilds the in-memory portfolio, replacing nil slices and
// dropping nil entries so indices stay dense.
func (s *Snapshot) Portfolio() *Portfolio {
	p := NewPortfolio()
	for _, w := range s.Wallets {
		if w == nil {
			continue
		}
		nw := &Wallet{Name: w.Name, Investments: []*Investment{}}
		for _, inv := range w.Investments {
			if inv != nil {
				nw.Investments = append(nw.Investments, inv.Clone())
			}
		}
		p.Wallets = append(p.Wallets, nw)
	}
	return p
}
