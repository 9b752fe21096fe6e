package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/models"
	"github.com/bobmcallan/cartera/internal/services/portfolio"
)

// --- Stubs ---

type fetchCall struct {
	symbol string
	market models.Market
}

type stubQuotes struct {
	mu    sync.Mutex
	calls []fetchCall
	price float64
	err   error
}

func (q *stubQuotes) FetchPrice(_ context.Context, symbol string, market models.Market) (float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, fetchCall{symbol: symbol, market: market})
	if q.err != nil {
		return 0, q.err
	}
	return q.price, nil
}

func (q *stubQuotes) FetchReferenceRate(_ context.Context) (float64, error) { return 0, nil }

func (q *stubQuotes) ReferenceRate() (float64, time.Time, bool) { return 0, time.Time{}, false }

func (q *stubQuotes) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.calls)
}

func (q *stubQuotes) last() fetchCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[len(q.calls)-1]
}

func (q *stubQuotes) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

const (
	testDebounce = 60 * time.Millisecond
	longPoll     = time.Hour
)

func setup(t *testing.T, poll time.Duration, opts ...Option) (*Scheduler, *portfolio.Service, *stubQuotes) {
	t.Helper()
	svc := portfolio.NewService(nil, common.NewSilentLogger())
	quotes := &stubQuotes{price: 42}
	opts = append([]Option{WithDebounce(testDebounce), WithPollInterval(poll), WithFetchTimeout(time.Second)}, opts...)
	s := NewScheduler(svc, quotes, common.NewSilentLogger(), opts...)
	t.Cleanup(s.Stop)
	return s, svc, quotes
}

// addRow creates wallet 0 (placeholder removed) holding one quotable row.
func addRow(t *testing.T, svc *portfolio.Service, symbol string, market models.Market) string {
	t.Helper()
	if len(svc.Snapshot().Wallets) == 0 {
		_, err := svc.AddWallet("W")
		require.NoError(t, err)
		require.NoError(t, svc.RemoveInvestment(0, 0))
	}
	ii, err := svc.AddInvestment(0, &models.Investment{Symbol: symbol, Market: market, Quantity: models.Float(1)})
	require.NoError(t, err)
	return svc.Snapshot().Wallets[0].Investments[ii].ID
}

func currentPrice(svc *portfolio.Service, id string) *float64 {
	inv, ok := svc.Investment(id)
	if !ok {
		return nil
	}
	return inv.CurrentPrice
}

// --- Debounce ---

func TestDebounce_ThreeEditsOneFetchWithLastValue(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	id := addRow(t, svc, "", "NYSE")

	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "Y"))
	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "YP"))
	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "YPF"))
	assert.Equal(t, 0, quotes.count(), "nothing fires inside the window")

	require.Eventually(t, func() bool { return quotes.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, quotes.count(), "earlier edits are superseded")
	assert.Equal(t, fetchCall{symbol: "YPF", market: "NYSE"}, quotes.last())

	require.Eventually(t, func() bool {
		p := currentPrice(svc, id)
		return p != nil && *p == 42
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.PendingTimers())
}

func TestDebounce_IgnoresOtherFields(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	addRow(t, svc, "YPF", "NYSE")

	require.NoError(t, svc.SetField(0, 0, models.FieldPurchasePrice, "10"))
	require.NoError(t, svc.SetField(0, 0, models.FieldPurchaseDate, "2024-01-02"))
	assert.Equal(t, 0, s.PendingTimers())
	time.Sleep(2 * testDebounce)
	assert.Equal(t, 0, quotes.count())
}

func TestDebounce_NoFetchWithoutQuoteKey(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	addRow(t, svc, "", "")

	require.NoError(t, svc.SetField(0, 0, models.FieldQuantity, "5"))
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 0, quotes.count())
}

func TestDebounce_SameWalletMoveKeepsTimer(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	addRow(t, svc, "AAPL", "NASDAQ")
	id := addRow(t, svc, "GGAL", "BCBA")

	require.NoError(t, svc.SetField(0, 1, models.FieldQuantity, "3"))
	require.NoError(t, svc.MoveInvestment(0, 1, 0, 0))
	assert.Equal(t, 1, s.PendingTimers())
	assert.True(t, s.Polling(id))

	require.Eventually(t, func() bool { return quotes.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, fetchCall{symbol: "GGAL", market: models.MarketBCBA}, quotes.last())
}

func TestDebounce_CrossWalletMoveDropsOldIdentity(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	id := addRow(t, svc, "GGAL", "BCBA")
	_, err := svc.AddWallet("Other")
	require.NoError(t, err)

	require.NoError(t, svc.SetField(0, 0, models.FieldQuantity, "3"))
	require.NoError(t, svc.MoveInvestment(0, 0, 1, 0))

	assert.False(t, s.Polling(id))
	assert.Equal(t, 0, s.PendingTimers())
	newID := svc.Snapshot().Wallets[1].Investments[0].ID
	assert.True(t, s.Polling(newID))

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 0, quotes.count())
}

// --- Polling ---

func TestPolling_StartsForExistingAndNewInvestments(t *testing.T) {
	s, svc, quotes := setup(t, 20*time.Millisecond)
	existing := addRow(t, svc, "AAPL", "NASDAQ")

	s.Start(context.Background())
	assert.True(t, s.Polling(existing))

	added := addRow(t, svc, "GGAL", "BCBA")
	assert.True(t, s.Polling(added))

	require.Eventually(t, func() bool {
		a, b := currentPrice(svc, existing), currentPrice(svc, added)
		return a != nil && b != nil
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, quotes.count(), 2)
}

func TestPolling_RemovalTearsDown(t *testing.T) {
	s, svc, quotes := setup(t, 20*time.Millisecond)
	s.Start(context.Background())
	id := addRow(t, svc, "AAPL", "NASDAQ")

	require.Eventually(t, func() bool { return quotes.count() >= 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.RemoveInvestment(0, 0))
	assert.False(t, s.Polling(id))

	time.Sleep(30 * time.Millisecond)
	settled := quotes.count()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, quotes.count(), "removed investment must not be polled")
}

func TestPolling_RemoveWalletTearsDownAll(t *testing.T) {
	s, svc, _ := setup(t, longPoll)
	s.Start(context.Background())
	a := addRow(t, svc, "AAPL", "NASDAQ")
	b := addRow(t, svc, "YPF", "NYSE")

	require.NoError(t, svc.RemoveWallet(0))
	assert.False(t, s.Polling(a))
	assert.False(t, s.Polling(b))
}

// --- Fetch semantics ---

func TestAutoPriceOff_DiscardsResult(t *testing.T) {
	s, svc, quotes := setup(t, longPoll, WithAutoPrice(false))
	s.Start(context.Background())
	id := addRow(t, svc, "YPF", "NYSE")
	assert.False(t, s.AutoPrice())

	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "YPF"))
	require.Eventually(t, func() bool { return quotes.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, currentPrice(svc, id))

	s.SetAutoPrice(true)
	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "YPF"))
	require.Eventually(t, func() bool { return currentPrice(svc, id) != nil }, time.Second, 5*time.Millisecond)
}

func TestFetchFailure_RetainsPreviousPrice(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	id := addRow(t, svc, "YPF", "NYSE")
	require.NoError(t, svc.SetCurrentPrice(id, 19.5))

	quotes.setErr(models.ErrQuoteUnavailable)
	require.NoError(t, svc.SetField(0, 0, models.FieldMarket, "NYSE"))
	require.Eventually(t, func() bool { return quotes.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	p := currentPrice(svc, id)
	require.NotNil(t, p)
	assert.Equal(t, 19.5, *p)
}

// --- Lifecycle ---

func TestStop_CancelsTimersAndIsIdempotent(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	s.Start(context.Background())
	id := addRow(t, svc, "YPF", "NYSE")
	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "YPF"))

	s.Stop()
	s.Stop()
	assert.False(t, s.Polling(id))
	assert.Equal(t, 0, s.PendingTimers())

	time.Sleep(2 * testDebounce)
	assert.Equal(t, 0, quotes.count())

	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "YPF"))
	time.Sleep(2 * testDebounce)
	assert.Equal(t, 0, quotes.count(), "stopped scheduler ignores events")
}

func TestRefreshNow(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	a := addRow(t, svc, "AAPL", "NASDAQ")
	addRow(t, svc, "", "")
	b := addRow(t, svc, "GGAL", "BCBA")

	updated, skipped := s.RefreshNow(context.Background())
	assert.Equal(t, 2, updated)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, quotes.count())
	assert.Equal(t, 42.0, *currentPrice(svc, a))
	assert.Equal(t, 42.0, *currentPrice(svc, b))

	quotes.setErr(errors.New("down"))
	updated, _ = s.RefreshNow(context.Background())
	assert.Equal(t, 0, updated)
	assert.Equal(t, 42.0, *currentPrice(svc, a))
}

func TestScheduler_RemovalDuringSlowDeliveryLeavesNoPoll(t *testing.T) {
	s, svc, _ := setup(t, longPoll)
	_, err := svc.AddWallet("W")
	require.NoError(t, err)

	entered := make(chan string)
	release := make(chan struct{})
	var once sync.Once
	svc.Subscribe(func(ev models.Event) {
		if ev.Kind == models.EventInvestmentAdded {
			once.Do(func() {
				entered <- ev.InvestmentID
				<-release
			})
		}
	})
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		_, _ = svc.AddInvestment(0, &models.Investment{Symbol: "GGAL", Market: models.MarketBCBA})
		close(done)
	}()
	id := <-entered

	removed := make(chan error, 1)
	go func() { removed <- svc.RemoveInvestment(0, 1) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	<-done
	require.NoError(t, <-removed)

	_, exists := svc.Investment(id)
	assert.False(t, exists)
	assert.False(t, s.Polling(id), "removed row must not keep a poll loop")

	ids := svc.InvestmentIDs()
	require.Len(t, ids, 1)
	assert.True(t, s.Polling(ids[0]))
}

func TestDebounce_SymbolWithoutMarketFetches(t *testing.T) {
	s, svc, quotes := setup(t, longPoll)
	s.Start(context.Background())
	id := addRow(t, svc, "", "")

	require.NoError(t, svc.SetField(0, 0, models.FieldSymbol, "AAPL"))
	require.Eventually(t, func() bool { return quotes.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, fetchCall{symbol: "AAPL", market: ""}, quotes.last())
	require.Eventually(t, func() bool {
		p := currentPrice(svc, id)
		return p != nil && *p == 42
	}, time.Second, 5*time.Millisecond)
}

func TestPolling_NeedsMarket(t *testing.T) {
	s, svc, quotes := setup(t, 20*time.Millisecond)
	addRow(t, svc, "AAPL", "")
	s.Start(context.Background())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, quotes.count())
}
