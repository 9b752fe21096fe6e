// Package quote provides the price and reference-rate port used by refresh.
package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
	"github.com/bobmcallan/cartera/internal/models"
)

// Service implements interfaces.QuoteService on top of a price client and a
// reference-rate client. It remembers the last good reference rate.
type Service struct {
	prices interfaces.QuoteClient
	rates  interfaces.RateClient
	logger *common.Logger
	now    func() time.Time // injectable clock for testing

	mu       sync.RWMutex
	rate     float64
	rateAsOf time.Time
	override bool
}

// NewService creates a new quote service.
// rates may be nil; FetchReferenceRate then always fails unless a manual
// rate was set.
func NewService(prices interfaces.QuoteClient, rates interfaces.RateClient, logger *common.Logger) *Service {
	return &Service{
		prices: prices,
		rates:  rates,
		logger: logger,
		now:    time.Now,
	}
}

// FetchPrice asks the provider for the latest price. An empty market is
// passed through, so the symbol is quoted as is. Any failure, including a
// non-positive price, is reported as models.ErrQuoteUnavailable.
func (s *Service) FetchPrice(ctx context.Context, symbol string, market models.Market) (float64, error) {
	symbol = strings.TrimSpace(symbol)
	market = market.Normalize()
	if symbol == "" {
		return 0, fmt.Errorf("%w: symbol is required", models.ErrQuoteUnavailable)
	}

	price, err := s.prices.GetPrice(ctx, symbol, market)
	if err != nil {
		return 0, fmt.Errorf("%w: %s/%s: %v", models.ErrQuoteUnavailable, symbol, market, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %s/%s: non-positive price %v", models.ErrQuoteUnavailable, symbol, market, price)
	}
	return price, nil
}

// FetchReferenceRate refreshes the reference rate from the provider.
// While a manual override is set the provider is not consulted.
func (s *Service) FetchReferenceRate(ctx context.Context) (float64, error) {
	s.mu.RLock()
	if s.override {
		r := s.rate
		s.mu.RUnlock()
		return r, nil
	}
	s.mu.RUnlock()

	if s.rates == nil {
		return 0, fmt.Errorf("%w: no rate provider configured", models.ErrRateUnavailable)
	}

	r, err := s.rates.GetReferenceRate(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrRateUnavailable, err)
	}
	if r <= 0 {
		return 0, fmt.Errorf("%w: non-positive rate %v", models.ErrRateUnavailable, r)
	}

	s.mu.Lock()
	if !s.override {
		s.rate = r
		s.rateAsOf = s.now()
	}
	s.mu.Unlock()

	s.logger.Debug().Float64("rate", r).Msg("Reference rate refreshed")
	return r, nil
}

// ReferenceRate returns the last known rate and when it was obtained.
func (s *Service) ReferenceRate() (float64, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate, s.rateAsOf, s.rate > 0
}

// SetReferenceRate pins the reference rate to a user-supplied value.
// A value <= 0 clears the override and the cached rate.
func (s *Service) SetReferenceRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate <= 0 {
		s.override = false
		s.rate = 0
		s.rateAsOf = time.Time{}
		return
	}
	s.override = true
	s.rate = rate
	s.rateAsOf = s.now()
	s.logger.Info().Float64("rate", rate).Msg("Reference rate set manually")
}

var _ interfaces.QuoteService = (*Service)(nil)
