package service

import (
	"attribution/internal/calculator"
	"attribution/internal/domain"
	"attribution/internal/logger"
	"attribution/internal/repository"
	"attribution/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

/**

read-through cache in front of the market data provider. historical lookups
never change once fetched, so they are kept forever; anything dated today or
later is refetched once it is older than RefreshAfter. misses are cached too,
so a carry-forward walk over a missing week does not hit the provider again.

sector and beta are not fetched, they are set by the attribution run and
read back by later runs.

*/

type MarketDataService interface {
	GetPrice(ctx context.Context, ticker string, date time.Time) (float64, error)
	GetFxRate(ctx context.Context, base, quote string, date time.Time) (float64, error)
	GetSector(ctx context.Context, ticker string) (string, bool)
	SetSector(ctx context.Context, ticker, sector string)
	GetBeta(ctx context.Context, ticker string) (float64, bool)
	SetBeta(ctx context.Context, ticker string, beta float64)
	Prefetch(ctx context.Context, requests []PrefetchRequest, start, end time.Time) error
	PriceFunc(ctx context.Context) calculator.PriceFunc
	FxFunc(ctx context.Context) calculator.FxFunc
}

type PrefetchRequest struct {
	Kind   domain.ReferenceKind
	Symbol string
}

func PricePrefetch(ticker string) PrefetchRequest {
	return PrefetchRequest{Kind: domain.ReferencePrice, Symbol: ticker}
}

func FxPrefetch(base, quote string) PrefetchRequest {
	return PrefetchRequest{Kind: domain.ReferenceFx, Symbol: repository.FxSymbol(base, quote)}
}

type MarketDataServiceConfig struct {
	RefreshAfter        time.Duration
	PrefetchConcurrency int
	// how far back a prefetched range is searched for the previous close
	LookbackDays int
}

// ReferenceCache is keyed by kind|symbol|date
type ReferenceCache map[string]domain.ReferenceEntry

type marketDataServiceHandler struct {
	MarketDataRepository repository.MarketDataRepository
	// optional
	CacheRepository repository.MarketDataCacheRepository
	Config          MarketDataServiceConfig

	Cache     ReferenceCache
	ReadMutex *sync.RWMutex
	// symbol key -> date range already loaded by Prefetch
	covered map[string]domain.Period
	now     func() time.Time
}

func NewMarketDataService(
	marketDataRepository repository.MarketDataRepository,
	cacheRepository repository.MarketDataCacheRepository,
	cfg MarketDataServiceConfig,
) MarketDataService {
	if cfg.RefreshAfter <= 0 {
		cfg.RefreshAfter = util.DefaultCacheRefreshAfter
	}
	if cfg.PrefetchConcurrency <= 0 {
		cfg.PrefetchConcurrency = util.DefaultPrefetchConcurrency
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = util.DefaultCarryForwardDays
	}
	return &marketDataServiceHandler{
		MarketDataRepository: marketDataRepository,
		CacheRepository:      cacheRepository,
		Config:               cfg,
		Cache:                make(ReferenceCache),
		ReadMutex:            &sync.RWMutex{},
		covered:              map[string]domain.Period{},
		now:                  time.Now,
	}
}

func cacheKey(kind domain.ReferenceKind, symbol string, date time.Time) string {
	return string(kind) + "|" + symbol + "|" + util.DateKey(date)
}

func coverageKey(kind domain.ReferenceKind, symbol string) string {
	return string(kind) + "|" + symbol
}

func (h *marketDataServiceHandler) getFromCache(key string) (domain.ReferenceEntry, bool) {
	h.ReadMutex.RLock()
	defer h.ReadMutex.RUnlock()
	e, ok := h.Cache[key]
	return e, ok
}

func (h *marketDataServiceHandler) addToCache(entries ...domain.ReferenceEntry) {
	h.ReadMutex.Lock()
	defer h.ReadMutex.Unlock()
	for _, e := range entries {
		h.Cache[cacheKey(e.Kind, e.Symbol, e.Date)] = e
	}
}

// isFresh reports whether a cached entry can be served for date
func (h *marketDataServiceHandler) isFresh(e domain.ReferenceEntry, date time.Time) bool {
	today := util.DateOnly(h.now())
	if date.Before(today) {
		return true
	}
	return h.now().Sub(e.FetchedAt) < h.Config.RefreshAfter
}

func (h *marketDataServiceHandler) persist(ctx context.Context, entries []domain.ReferenceEntry) {
	if h.CacheRepository == nil || len(entries) == 0 {
		return
	}
	if err := h.CacheRepository.Add(entries); err != nil {
		logger.FromContext(ctx).Warnf("failed to persist %d market data cache entries: %s", len(entries), err.Error())
	}
}

func (h *marketDataServiceHandler) GetPrice(ctx context.Context, ticker string, date time.Time) (float64, error) {
	date = util.DateOnly(date)
	return h.readThrough(ctx, domain.ReferencePrice, ticker, date, func() (float64, error) {
		return h.MarketDataRepository.GetPrice(ctx, ticker, date)
	})
}

func (h *marketDataServiceHandler) GetFxRate(ctx context.Context, base, quote string, date time.Time) (float64, error) {
	if strings.EqualFold(base, quote) {
		return 1, nil
	}
	date = util.DateOnly(date)
	return h.readThrough(ctx, domain.ReferenceFx, repository.FxSymbol(base, quote), date, func() (float64, error) {
		return h.MarketDataRepository.GetFxRate(ctx, base, quote, date)
	})
}

func (h *marketDataServiceHandler) readThrough(
	ctx context.Context,
	kind domain.ReferenceKind,
	symbol string,
	date time.Time,
	fetch func() (float64, error),
) (float64, error) {
	key := cacheKey(kind, symbol, date)
	if e, ok := h.getFromCache(key); ok && h.isFresh(e, date) {
		return entryValue(e)
	}

	if e, ok := h.fromPrefetched(kind, symbol, date); ok {
		h.addToCache(e)
		return entryValue(e)
	}

	if h.CacheRepository != nil {
		e, err := h.CacheRepository.Get(kind, symbol, date)
		if err != nil {
			logger.FromContext(ctx).Warnf("failed to read market data cache: %s", err.Error())
		} else if e != nil && h.isFresh(*e, date) {
			h.addToCache(*e)
			return entryValue(*e)
		}
	}

	v, err := fetch()
	entry := domain.ReferenceEntry{
		Kind:      kind,
		Symbol:    symbol,
		Date:      date,
		FetchedAt: h.now(),
	}
	switch {
	case err == nil:
		entry.Value = v
		entry.Found = true
	case errors.Is(err, domain.ErrPriceNotFound):
		entry.Found = false
	default:
		return 0, fmt.Errorf("failed to get %s for %s on %s: %w", kind, symbol, util.DateKey(date), err)
	}

	h.addToCache(entry)
	h.persist(ctx, []domain.ReferenceEntry{entry})

	return entryValue(entry)
}

// fromPrefetched resolves a date inside a prefetched range to the closest
// close on or before it, without going back to the provider
func (h *marketDataServiceHandler) fromPrefetched(kind domain.ReferenceKind, symbol string, date time.Time) (domain.ReferenceEntry, bool) {
	h.ReadMutex.RLock()
	defer h.ReadMutex.RUnlock()

	rng, ok := h.covered[coverageKey(kind, symbol)]
	if !ok || !rng.Contains(date) {
		return domain.ReferenceEntry{}, false
	}

	for back := 0; back <= h.Config.LookbackDays; back++ {
		d := date.AddDate(0, 0, -back)
		if d.Before(rng.Start) {
			break
		}
		if e, ok := h.Cache[cacheKey(kind, symbol, d)]; ok && e.Found {
			e.Date = date
			return e, true
		}
	}

	// the range was loaded and holds nothing close enough
	return domain.ReferenceEntry{
		Kind:      kind,
		Symbol:    symbol,
		Date:      date,
		Found:     false,
		FetchedAt: h.now(),
	}, true
}

func entryValue(e domain.ReferenceEntry) (float64, error) {
	if !e.Found {
		return 0, fmt.Errorf("%s for %s on %s: %w", e.Kind, e.Symbol, util.DateKey(e.Date), domain.ErrPriceNotFound)
	}
	return e.Value, nil
}

func (h *marketDataServiceHandler) GetSector(ctx context.Context, ticker string) (string, bool) {
	e, ok := h.getUndated(ctx, domain.ReferenceSector, ticker)
	return e.Text, ok
}

func (h *marketDataServiceHandler) SetSector(ctx context.Context, ticker, sector string) {
	h.setUndated(ctx, domain.ReferenceEntry{
		Kind:   domain.ReferenceSector,
		Symbol: ticker,
		Text:   sector,
		Found:  true,
	})
}

func (h *marketDataServiceHandler) GetBeta(ctx context.Context, ticker string) (float64, bool) {
	e, ok := h.getUndated(ctx, domain.ReferenceBeta, ticker)
	return e.Value, ok
}

func (h *marketDataServiceHandler) SetBeta(ctx context.Context, ticker string, beta float64) {
	h.setUndated(ctx, domain.ReferenceEntry{
		Kind:   domain.ReferenceBeta,
		Symbol: ticker,
		Value:  beta,
		Found:  true,
	})
}

func (h *marketDataServiceHandler) getUndated(ctx context.Context, kind domain.ReferenceKind, symbol string) (domain.ReferenceEntry, bool) {
	if e, ok := h.getFromCache(cacheKey(kind, symbol, time.Time{})); ok {
		return e, e.Found
	}
	if h.CacheRepository == nil {
		return domain.ReferenceEntry{}, false
	}

	e, err := h.CacheRepository.Get(kind, symbol, time.Time{})
	if err != nil {
		logger.FromContext(ctx).Warnf("failed to read cached %s for %s: %s", kind, symbol, err.Error())
		return domain.ReferenceEntry{}, false
	}
	if e == nil {
		return domain.ReferenceEntry{}, false
	}
	h.addToCache(*e)
	return *e, e.Found
}

// last write wins
func (h *marketDataServiceHandler) setUndated(ctx context.Context, e domain.ReferenceEntry) {
	e.Date = time.Time{}
	e.FetchedAt = h.now()
	h.addToCache(e)
	h.persist(ctx, []domain.ReferenceEntry{e})
}

// Prefetch loads whole date ranges with one provider call per symbol, using a
// fixed pool of workers. Failures are logged and do not stop other symbols.
func (h *marketDataServiceHandler) Prefetch(ctx context.Context, requests []PrefetchRequest, start, end time.Time) error {
	log := logger.FromContext(ctx)
	start = util.DateOnly(start).AddDate(0, 0, -h.Config.LookbackDays)
	end = util.DateOnly(end)

	inputCh := make(chan PrefetchRequest, len(requests))
	var wg sync.WaitGroup
	for _, r := range requests {
		wg.Add(1)
		inputCh <- r
	}
	close(inputCh)

	var errMutex sync.Mutex
	errs := []error{}

	// every queued request is marked done, even after ctx is cancelled, so
	// the wait below always returns
	for i := 0; i < h.Config.PrefetchConcurrency; i++ {
		go func() {
			for r := range inputCh {
				if err := h.prefetchOne(ctx, r, start, end); err != nil && ctx.Err() == nil {
					log.Warnf("failed to prefetch %s for %s: %s", r.Kind, r.Symbol, err.Error())
					errMutex.Lock()
					errs = append(errs, err)
					errMutex.Unlock()
				}
				wg.Done()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to prefetch %d/%d symbols. first err: %w", len(errs), len(requests), errs[0])
	}
	return nil
}

func (h *marketDataServiceHandler) prefetchOne(ctx context.Context, r PrefetchRequest, start, end time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prices, err := h.MarketDataRepository.ListPrices(ctx, r.Symbol, start, end)
	if err != nil {
		return err
	}

	fetchedAt := h.now()
	entries := make([]domain.ReferenceEntry, 0, len(prices))
	for _, p := range prices {
		entries = append(entries, domain.ReferenceEntry{
			Kind:      r.Kind,
			Symbol:    r.Symbol,
			Date:      util.DateOnly(p.Date),
			Value:     p.Price,
			Found:     true,
			FetchedAt: fetchedAt,
		})
	}

	h.ReadMutex.Lock()
	for _, e := range entries {
		h.Cache[cacheKey(e.Kind, e.Symbol, e.Date)] = e
	}
	rng := domain.Period{Start: start, End: end}
	// today's bars are still moving, so only cover up to yesterday
	if today := util.DateOnly(h.now()); !rng.End.Before(today) {
		rng.End = today.AddDate(0, 0, -1)
	}
	if !rng.End.Before(rng.Start) {
		h.covered[coverageKey(r.Kind, r.Symbol)] = rng
	}
	h.ReadMutex.Unlock()

	h.persist(ctx, entries)
	return nil
}

func (h *marketDataServiceHandler) PriceFunc(ctx context.Context) calculator.PriceFunc {
	return func(ticker string, date time.Time) (float64, error) {
		return h.GetPrice(ctx, ticker, date)
	}
}

func (h *marketDataServiceHandler) FxFunc(ctx context.Context) calculator.FxFunc {
	return func(base, quote string, date time.Time) (float64, error) {
		return h.GetFxRate(ctx, base, quote, date)
	}
}
