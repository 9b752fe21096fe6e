// Package refresh keeps current prices up to date: debounced fetches after
// edits and a poll loop per investment.
package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
	"github.com/bobmcallan/cartera/internal/models"
)

const (
	DefaultDebounce     = time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultFetchTimeout = 15 * time.Second
)

// Fetch reasons. A debounced fetch follows an edit and only needs a symbol;
// polls and one-shot refreshes need both symbol and market.
const (
	reasonDebounce = "debounce"
	reasonPoll     = "poll"
	reasonRefresh  = "refresh"
)

type timerKey struct {
	id    string
	field models.Field
}

// Scheduler subscribes to portfolio events and issues price fetches.
// Every timer and poll loop is registered by investment identity so removal
// tears it down.
type Scheduler struct {
	portfolio interfaces.PortfolioService
	quotes    interfaces.QuoteService
	logger    *common.Logger

	debounce     time.Duration
	pollInterval time.Duration
	fetchTimeout time.Duration
	autoPrice    atomic.Bool

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	running     bool
	polls       map[string]context.CancelFunc
	timers      map[timerKey]*time.Timer
	unsubscribe func()
	wg          sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce sets the quiet period after an edit.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithPollInterval sets the per-investment poll period.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithFetchTimeout bounds each quote request.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithAutoPrice sets the initial auto-price toggle.
func WithAutoPrice(on bool) Option {
	return func(s *Scheduler) {
		s.autoPrice.Store(on)
	}
}

// NewScheduler creates a stopped scheduler. Auto-price is on by default.
func NewScheduler(portfolio interfaces.PortfolioService, quotes interfaces.QuoteService, logger *common.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		portfolio:    portfolio,
		quotes:       quotes,
		logger:       logger,
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		fetchTimeout: DefaultFetchTimeout,
		polls:        make(map[string]context.CancelFunc),
		timers:       make(map[timerKey]*time.Timer),
	}
	s.autoPrice.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAutoPrice toggles whether fetched prices are written back.
func (s *Scheduler) SetAutoPrice(on bool) {
	s.autoPrice.Store(on)
	s.logger.Info().Bool("auto_price", on).Msg("Auto price toggled")
}

// AutoPrice reports the auto-price toggle.
func (s *Scheduler) AutoPrice() bool {
	return s.autoPrice.Load()
}

// Start subscribes to portfolio events and starts polling every investment
// already present. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	unsubscribe := s.portfolio.Subscribe(s.handle)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	for _, id := range s.portfolio.InvestmentIDs() {
		s.startPollingLocked(id)
	}
	n := len(s.polls)
	s.mu.Unlock()

	s.logger.Info().
		Int("investments", n).
		Dur("debounce", s.debounce).
		Dur("poll_interval", s.pollInterval).
		Bool("auto_price", s.AutoPrice()).
		Msg("Refresh scheduler started")
}

// Stop cancels every timer and poll loop and waits for in-flight fetches.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	for id, cancel := range s.polls {
		cancel()
		delete(s.polls, id)
	}
	s.cancel()
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Refresh scheduler stopped")
}

// Polling reports whether id has a registered poll loop.
func (s *Scheduler) Polling(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.polls[id]
	return ok
}

// PendingTimers returns the number of armed debounce timers.
func (s *Scheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) handle(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	switch ev.Kind {
	case models.EventInvestmentAdded:
		s.startPollingLocked(ev.InvestmentID)

	case models.EventInvestmentRemoved:
		s.forgetLocked(ev.InvestmentID)

	case models.EventFieldEdited:
		switch ev.Field {
		case models.FieldSymbol, models.FieldMarket, models.FieldQuantity:
			s.armLocked(timerKey{id: ev.InvestmentID, field: ev.Field})
		}
	}
}

// armLocked (re)starts the debounce timer for key. When it fires the
// investment is read afresh, so the fetch uses the latest edit.
func (s *Scheduler) armLocked(key timerKey) {
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		s.fetch(key.id, reasonDebounce)
	})
	s.timers[key] = t
}

func (s *Scheduler) startPollingLocked(id string) {
	if _, ok := s.polls[id]; ok || id == "" {
		return
	}
	if _, ok := s.portfolio.Investment(id); !ok {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.polls[id] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.fetch(id, reasonPoll)
			}
		}
	}()
}

func (s *Scheduler) forgetLocked(id string) {
	if cancel, ok := s.polls[id]; ok {
		cancel()
		delete(s.polls, id)
	}
	for key, t := range s.timers {
		if key.id == id {
			t.Stop()
			delete(s.timers, key)
		}
	}
}

// fetch requests a price in the background. Errors are logged, never returned.
func (s *Scheduler) fetch(id, reason string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.fetchOne(ctx, id, reason)
	}()
}

// fetchOne fetches and writes one price. It reports whether the row's price
// was updated.
func (s *Scheduler) fetchOne(ctx context.Context, id, reason string) bool {
	inv, ok := s.portfolio.Investment(id)
	if !ok {
		return false
	}
	quotable := inv.HasQuoteKey()
	if reason == reasonDebounce {
		quotable = inv.HasSymbol()
	}
	if !quotable {
		return false
	}

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	price, err := s.quotes.FetchPrice(fctx, inv.Symbol, inv.Market)
	if err != nil {
		s.logger.Debug().Err(err).Str("investment", id).Str("reason", reason).Msg("Price fetch failed, keeping previous price")
		return false
	}
	if !s.AutoPrice() {
		s.logger.Debug().Str("investment", id).Float64("price", price).Msg("Auto price off, fetched price discarded")
		return false
	}
	if err := s.portfolio.SetCurrentPrice(id, price); err != nil {
		if !errors.Is(err, models.ErrInvestmentNotFound) {
			s.logger.Warn().Err(err).Str("investment", id).Msg("Failed to record price")
		}
		return false
	}
	s.logger.Debug().
		Str("investment", id).
		Str("symbol", inv.Symbol).
		Str("market", string(inv.Market)).
		Float64("price", price).
		Str("reason", reason).
		Msg("Price updated")
	return true
}

// RefreshNow fetches every investment once, synchronously, regardless of
// whether the scheduler is running.
func (s *Scheduler) RefreshNow(ctx context.Context) (updated, skipped int) {
	ids := s.portfolio.InvestmentIDs()
	var wg sync.WaitGroup
	var n atomic.Int64
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if s.fetchOne(ctx, id, reasonRefresh) {
				n.Add(1)
			}
		}(id)
	}
	wg.Wait()
	updated = int(n.Load())
	return updated, len(ids) - updated
}
