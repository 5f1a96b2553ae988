package repository

import (
	"attribution/internal/db/models/postgres/public/model"
	"attribution/internal/db/models/postgres/public/table"
	"attribution/internal/domain"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
)

// MarketDataCacheRepository persists reference lookups so a restarted
// process does not refetch history from the provider
type MarketDataCacheRepository interface {
	Add(entries []domain.ReferenceEntry) error
	Get(kind domain.ReferenceKind, symbol string, date time.Time) (*domain.ReferenceEntry, error)
}

type marketDataCacheRepositoryHandler struct {
	Db *sql.DB
}

func NewMarketDataCacheRepository(db *sql.DB) MarketDataCacheRepository {
	return marketDataCacheRepositoryHandler{Db: db}
}

func (h marketDataCacheRepositoryHandler) Add(entries []domain.ReferenceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	models := make([]model.MarketDataCache, 0, len(entries))
	for _, e := range entries {
		models = append(models, referenceEntryToModel(e))
	}

	t := table.MarketDataCache
	query := t.
		INSERT(t.MutableColumns).
		MODELS(models).
		ON_CONFLICT(
			t.Ticker, t.Kind, t.Date,
		).DO_UPDATE(
		postgres.SET(
			t.Value.SET(t.EXCLUDED.Value),
			t.TextValue.SET(t.EXCLUDED.TextValue),
			t.Found.SET(t.EXCLUDED.Found),
			t.FetchedAt.SET(t.EXCLUDED.FetchedAt),
		),
	)

	_, err := query.Exec(h.Db)
	if err != nil {
		return fmt.Errorf("failed to add %d market data cache entries: %w", len(entries), err)
	}

	return nil
}

// Get returns nil when nothing was ever cached for the key
func (h marketDataCacheRepositoryHandler) Get(kind domain.ReferenceKind, symbol string, date time.Time) (*domain.ReferenceEntry, error) {
	t := table.MarketDataCache
	query := t.
		SELECT(t.AllColumns).
		WHERE(
			postgres.AND(
				t.Ticker.EQ(postgres.String(symbol)),
				t.Kind.EQ(postgres.String(string(kind))),
				t.Date.EQ(postgres.DateT(date)),
			),
		).
		LIMIT(1)

	result := model.MarketDataCache{}
	err := query.Query(h.Db, &result)
	if errors.Is(err, qrm.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached %s for %s on %s: %w", kind, symbol, date.Format(time.DateOnly), err)
	}

	out := modelToReferenceEntry(result)
	return &out, nil
}

func referenceEntryToModel(e domain.ReferenceEntry) model.MarketDataCache {
	m := model.MarketDataCache{
		Ticker:    e.Symbol,
		Kind:      string(e.Kind),
		Date:      e.Date,
		Found:     e.Found,
		FetchedAt: e.FetchedAt,
	}
	if e.Found {
		switch e.Kind {
		case domain.ReferenceSector:
			text := e.Text
			m.TextValue = &text
		default:
			value := e.Value
			m.Value = &value
		}
	}
	return m
}

func modelToReferenceEntry(m model.MarketDataCache) domain.ReferenceEntry {
	e := domain.ReferenceEntry{
		Kind:      domain.ReferenceKind(m.Kind),
		Symbol:    m.Ticker,
		Date:      m.Date,
		Found:     m.Found,
		FetchedAt: m.FetchedAt,
	}
	if m.Value != nil {
		e.Value = *m.Value
	}
	if m.TextValue != nil {
		e.Text = *m.TextValue
	}
	return e
}
