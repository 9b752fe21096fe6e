package app

import (
	"context"
	"time"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
)

// startRateScheduler refreshes the reference rate immediately and then on a
// fixed interval until ctx is done.
func startRateScheduler(ctx context.Context, quotes interfaces.QuoteService, logger *common.Logger, interval time.Duration) {
	refreshRate(ctx, quotes, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Rate scheduler: stopped")
			return
		case <-ticker.C:
			refreshRate(ctx, quotes, logger)
		}
	}
}

func refreshRate(ctx context.Context, quotes interfaces.QuoteService, logger *common.Logger) {
	start := time.Now()
	rate, err := quotes.FetchReferenceRate(ctx)
	if err != nil {
		if _, asOf, ok := quotes.ReferenceRate(); ok {
			logger.Warn().Err(err).Time("last_good", asOf).Msg("Rate refresh failed, keeping last rate")
		} else {
			logger.Warn().Err(err).Msg("Rate refresh failed, USD totals unavailable")
		}
		return
	}
	logger.Info().Float64("rate", rate).Dur("elapsed", time.Since(start)).Msg("Rate refresh: complete")
}
