package portfolio

import (
	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/models"
)

// InvalidatePurchasePriceOnMarketChange subscribes a rule that clears a
// row's purchase price whenever its market is edited. It returns the
// unsubscribe function.
func InvalidatePurchasePriceOnMarketChange(s *Service, logger *common.Logger) func() {
	return s.Subscribe(func(ev models.Event) {
		if ev.Kind != models.EventFieldEdited || ev.Field != models.FieldMarket {
			return
		}
		if err := s.ClearPurchasePrice(ev.InvestmentID); err != nil {
			logger.Debug().Err(err).Str("investment", ev.InvestmentID).Msg("Purchase price not cleared")
			return
		}
		logger.Debug().Str("investment", ev.InvestmentID).Str("market", ev.Value).Msg("Market changed, purchase price cleared")
	})
}
