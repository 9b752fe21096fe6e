package models

import "strings"

// Wallet is a named, ordered group of investments.
type Wallet struct {
	Name        string        `json:"name"`
	Investments []*Investment `json:"investments"`
}

// WalletName trims name and rejects it when blank.
func WalletName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "wallet name is required"}
	}
	return name, nil
}

// Holdings returns the wallet's investments in stored order.
func (w *Wallet) Holdings() []*Investment {
	return w.Investments
}

// Clone returns a deep copy of the wallet.
func (w *Wallet) Clone() *Wallet {
	c := &Wallet{Name: w.Name, Investments: make([]*Investment, len(w.Investments))}
	for i, inv := range w.Investments {
		c.Investments[i] = inv.Clone()
	}
	return c
}

// Portfolio is the aggregate root: every wallet the user tracks.
type Portfolio struct {
	Wallets []*Wallet `json:"wallets"`
}

// NewPortfolio returns an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{Wallets: []*Wallet{}}
}

// Holdings flattens all wallets into one slice, wallets in stored order and
// investments in stored order within each wallet.
func (p *Portfolio) Holdings() []*Investment {
	var all []*Investment
	for _, w := range p.Wallets {
		all = append(all, w.Investments...)
	}
	return all
}

// Count returns the total number of investments across wallets.
func (p *Portfolio) Count() int {
	n := 0
	for _, w := range p.Wallets {
		n += len(w.Investments)
	}
	return n
}

// Find locates an investment by identity.
func (p *Portfolio) Find(id string) (walletIndex, investmentIndex int, ok bool) {
	for wi, w := range p.Wallets {
		for ii, inv := range w.Investments {
			if inv.ID == id {
				return wi, ii, true
			}
		}
	}
	return -1, -1, false
}

// Clone returns a deep copy of the portfolio.
func (p *Portfolio) Clone() *Portfolio {
	c := &Portfolio{Wallets: make([]*Wallet, len(p.Wallets))}
	for i, w := range p.Wallets {
		c.Wallets[i] = w.Clone()
	}
	return c
}
