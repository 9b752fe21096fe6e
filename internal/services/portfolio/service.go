// Package portfolio owns the mutable wallet/investment model.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
	"github.com/bobmcallan/cartera/internal/models"
)

// DateLayout is the accepted purchase-date format.
const DateLayout = "2006-01-02"

// Service implements interfaces.PortfolioService.
// All state lives behind mu; events are dispatched after mu is released.
// pubMu is held by every publishing mutation from the change until its
// events are delivered, so subscribers see events in commit order.
type Service struct {
	pubMu     sync.Mutex
	mu        sync.RWMutex
	portfolio *models.Portfolio
	store     interfaces.PortfolioStore
	logger    *common.Logger
	newID     func() string

	subsMu  sync.Mutex
	subs    map[int]func(models.Event)
	nextSub int
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the uuid identity source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates an empty portfolio service. store may be nil, in which
// case Load and Save fail.
func NewService(store interfaces.PortfolioStore, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		portfolio: models.NewPortfolio(),
		store:     store,
		logger:    logger,
		newID:     uuid.NewString,
		subs:      make(map[int]func(models.Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every event published after this call.
// Subscribers run synchronously in subscription order. A subscriber may read
// the model or use the refresh write path, but must not call a mutation that
// publishes events.
func (s *Service) Subscribe(fn func(models.Event)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Service) publish(events []models.Event) {
	if len(events) == 0 {
		return
	}
	s.subsMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(models.Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (s *Service) wallet(index int) (*models.Wallet, error) {
	if index < 0 || index >= len(s.portfolio.Wallets) {
		return nil, &models.IndexError{Kind: "wallet", Index: index, Len: len(s.portfolio.Wallets)}
	}
	return s.portfolio.Wallets[index], nil
}

func checkInvestmentIndex(w *models.Wallet, index int) error {
	if index < 0 || index >= len(w.Investments) {
		return &models.IndexError{Kind: "investment", Index: index, Len: len(w.Investments)}
	}
	return nil
}

// AddWallet appends a wallet holding one empty placeholder investment and
// returns its index.
func (s *Service) AddWallet(name string) (int, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	name, err := models.WalletName(name)
	if err != nil {
		return -1, err
	}

	s.mu.Lock()
	placeholder := &models.Investment{ID: s.newID()}
	s.portfolio.Wallets = append(s.portfolio.Wallets, &models.Wallet{
		Name:        name,
		Investments: []*models.Investment{placeholder},
	})
	wi := len(s.portfolio.Wallets) - 1
	s.mu.Unlock()

	s.logger.Debug().Str("wallet", name).Int("index", wi).Msg("Wallet added")
	s.publish([]models.Event{{Kind: models.EventInvestmentAdded, WalletIndex: wi, InvestmentIndex: 0, InvestmentID: placeholder.ID}})
	return wi, nil
}

// RenameWallet changes a wallet's name.
func (s *Service) RenameWallet(walletIndex int, name string) error {
	name, err := models.WalletName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.wallet(walletIndex)
	if err != nil {
		return err
	}
	w.Name = name
	return nil
}

// RemoveWallet deletes a wallet and every investment in it.
func (s *Service) RemoveWallet(walletIndex int) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	w, err := s.wallet(walletIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	events := make([]models.Event, 0, len(w.Investments))
	for ii, inv := range w.Investments {
		events = append(events, models.Event{Kind: models.EventInvestmentRemoved, WalletIndex: walletIndex, InvestmentIndex: ii, InvestmentID: inv.ID})
	}
	s.portfolio.Wallets = append(s.portfolio.Wallets[:walletIndex], s.portfolio.Wallets[walletIndex+1:]...)
	s.mu.Unlock()

	s.logger.Debug().Str("wallet", w.Name).Int("investments", len(events)).Msg("Wallet removed")
	s.publish(events)
	return nil
}

// AddInvestment appends a copy of data to the wallet with a fresh identity.
// A nil data appends an empty row.
func (s *Service) AddInvestment(walletIndex int, data *models.Investment) (int, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	inv := &models.Investment{}
	if data != nil {
		inv = data.Clone()
		inv.Symbol = strings.TrimSpace(inv.Symbol)
		inv.Market = inv.Market.Normalize()
		if err := inv.Validate(); err != nil {
			return -1, err
		}
	}

	s.mu.Lock()
	w, err := s.wallet(walletIndex)
	if err != nil {
		s.mu.Unlock()
		return -1, err
	}
	inv.ID = s.newID()
	w.Investments = append(w.Investments, inv)
	ii := len(w.Investments) - 1
	s.mu.Unlock()

	s.publish([]models.Event{{Kind: models.EventInvestmentAdded, WalletIndex: walletIndex, InvestmentIndex: ii, InvestmentID: inv.ID}})
	return ii, nil
}

// RemoveInvestment deletes one row.
func (s *Service) RemoveInvestment(walletIndex, investmentIndex int) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	w, err := s.wallet(walletIndex)
	if err == nil {
		err = checkInvestmentIndex(w, investmentIndex)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	removed := w.Investments[investmentIndex]
	w.Investments = removeAt(w.Investments, investmentIndex)
	s.mu.Unlock()

	s.publish([]models.Event{{Kind: models.EventInvestmentRemoved, WalletIndex: walletIndex, InvestmentIndex: investmentIndex, InvestmentID: removed.ID}})
	return nil
}

// MoveInvestment relocates a row. Within one wallet the row keeps its
// identity and no events are published. Across wallets the row is copied
// into the target under a new identity and removed from the source, which
// publishes Removed then Added. All indices are checked before anything
// changes. dstIndex may equal the target length to append.
func (s *Service) MoveInvestment(srcWallet, srcIndex, dstWallet, dstIndex int) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	src, err := s.wallet(srcWallet)
	if err == nil {
		err = checkInvestmentIndex(src, srcIndex)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	dst, err := s.wallet(dstWallet)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	limit := len(dst.Investments)
	if srcWallet == dstWallet {
		limit--
	}
	if dstIndex < 0 || dstIndex > limit {
		s.mu.Unlock()
		return &models.IndexError{Kind: "investment", Index: dstIndex, Len: limit + 1}
	}

	moved := src.Investments[srcIndex]
	if srcWallet == dstWallet {
		rest := removeAt(src.Investments, srcIndex)
		src.Investments = insertAt(rest, dstIndex, moved)
		s.mu.Unlock()
		return nil
	}

	cp := moved.Clone()
	cp.ID = s.newID()
	src.Investments = removeAt(src.Investments, srcIndex)
	dst.Investments = insertAt(dst.Investments, dstIndex, cp)
	s.mu.Unlock()

	s.logger.Debug().Str("from", moved.ID).Str("to", cp.ID).Int("src_wallet", srcWallet).Int("dst_wallet", dstWallet).Msg("Investment moved across wallets")
	s.publish([]models.Event{
		{Kind: models.EventInvestmentRemoved, WalletIndex: srcWallet, InvestmentIndex: srcIndex, InvestmentID: moved.ID},
		{Kind: models.EventInvestmentAdded, WalletIndex: dstWallet, InvestmentIndex: dstIndex, InvestmentID: cp.ID},
	})
	return nil
}

// SetField applies a user edit. An empty value clears optional fields.
func (s *Service) SetField(walletIndex, investmentIndex int, field models.Field, value string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if _, ok := models.ParseField(string(field)); !ok {
		return &models.ValidationError{Field: string(field), Reason: "not an editable field"}
	}
	value = strings.TrimSpace(value)

	s.mu.Lock()
	w, err := s.wallet(walletIndex)
	if err == nil {
		err = checkInvestmentIndex(w, investmentIndex)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	inv := w.Investments[investmentIndex]
	normalized, err := applyField(inv, field, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	id := inv.ID
	s.mu.Unlock()

	s.publish([]models.Event{{
		Kind:            models.EventFieldEdited,
		WalletIndex:     walletIndex,
		InvestmentIndex: investmentIndex,
		InvestmentID:    id,
		Field:           field,
		Value:           normalized,
	}})
	return nil
}

// SetCurrentPrice records a fetched price on the row with the given identity.
func (s *Service) SetCurrentPrice(id string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return &models.ValidationError{Field: string(models.FieldCurrentPrice), Reason: "must be a non-negative number"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wi, ii, ok := s.portfolio.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrInvestmentNotFound, id)
	}
	s.portfolio.Wallets[wi].Investments[ii].CurrentPrice = models.Float(price)
	return nil
}

// ClearPurchasePrice unsets the purchase price of the row with the given identity.
func (s *Service) ClearPurchasePrice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wi, ii, ok := s.portfolio.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrInvestmentNotFound, id)
	}
	s.portfolio.Wallets[wi].Investments[ii].PurchasePrice = nil
	return nil
}

// Investment returns a copy of the row with the given identity.
func (s *Service) Investment(id string) (*models.Investment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wi, ii, ok := s.portfolio.Find(id)
	if !ok {
		return nil, false
	}
	return s.portfolio.Wallets[wi].Investments[ii].Clone(), true
}

// InvestmentIDs lists every identity in stored order.
func (s *Service) InvestmentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, s.portfolio.Count())
	for _, inv := range s.portfolio.Holdings() {
		ids = append(ids, inv.ID)
	}
	return ids
}

// Snapshot returns a deep copy of the portfolio.
func (s *Service) Snapshot() *models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portfolio.Clone()
}

// Load replaces the in-memory portfolio with the stored one. Subscribers see
// every previous row removed and every loaded row added.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("no portfolio store configured")
	}
	p, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	events := investmentEvents(s.portfolio, models.EventInvestmentRemoved)
	s.portfolio = p
	events = append(events, investmentEvents(p, models.EventInvestmentAdded)...)
	s.mu.Unlock()

	s.logger.Info().Int("wallets", len(p.Wallets)).Int("investments", p.Count()).Msg("Portfolio loaded")
	s.publish(events)
	return nil
}

// Save writes the whole portfolio to the store.
func (s *Service) Save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("no portfolio store configured")
	}
	snap := s.Snapshot()
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	s.logger.Info().Int("wallets", len(snap.Wallets)).Int("investments", snap.Count()).Msg("Portfolio saved")
	return nil
}

var _ interfaces.PortfolioService = (*Service)(nil)

func investmentEvents(p *models.Portfolio, kind models.EventKind) []models.Event {
	var events []models.Event
	for wi, w := range p.Wallets {
		for ii, inv := range w.Investments {
			events = append(events, models.Event{Kind: kind, WalletIndex: wi, InvestmentIndex: ii, InvestmentID: inv.ID})
		}
	}
	return events
}

func removeAt(s []*models.Investment, i int) []*models.Investment {
	out := make([]*models.Investment, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func insertAt(s []*models.Investment, i int, inv *models.Investment) []*models.Investment {
	out := make([]*models.Investment, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, inv)
	return append(out, s[i:]...)
}

// applyField writes value into field and returns the canonical string form.
func applyField(inv *models.Investment, field models.Field, value string) (string, error) {
	switch field {
	case models.FieldSymbol:
		inv.Symbol = value
		return value, nil

	case models.FieldMarket:
		inv.Market = models.Market(value).Normalize()
		return string(inv.Market), nil

	case models.FieldQuantity, models.FieldPurchasePrice, models.FieldReferenceRate:
		v, err := parseAmount(field, value)
		if err != nil {
			return "", err
		}
		switch field {
		case models.FieldQuantity:
			inv.Quantity = v
		case models.FieldPurchasePrice:
			inv.PurchasePrice = v
		default:
			inv.ReferenceRateAtPurchase = v
		}
		if v == nil {
			return "", nil
		}
		return strconv.FormatFloat(*v, 'f', -1, 64), nil

	case models.FieldPurchaseDate:
		if value == "" {
			inv.PurchaseDate = nil
			return "", nil
		}
		d, err := time.Parse(DateLayout, value)
		if err != nil {
			return "", &models.ValidationError{Field: string(field), Reason: "expected YYYY-MM-DD"}
		}
		inv.PurchaseDate = &d
		return d.Format(DateLayout), nil
	}
	return "", &models.ValidationError{Field: string(field), Reason: "not an editable field"}
}

func parseAmount(field models.Field, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &models.ValidationError{Field: string(field), Reason: "must be a number"}
	}
	if field == models.FieldReferenceRate {
		if v <= 0 {
			return nil, &models.ValidationError{Field: string(field), Reason: "must be positive"}
		}
	} else if v < 0 {
		return nil, &models.ValidationError{Field: string(field), Reason: "must not be negative"}
	}
	return &v, nil
}
