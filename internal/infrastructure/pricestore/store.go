// Package pricestore is a local cache of current market prices, fed by
// whatever market-data client the application wires in (or by the user, via
// the CLI). It implements ports.PriceSource for the unrealized-gain
// computation.
package pricestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
)

// Quote is one cached price point for an asset symbol.
type Quote struct {
	Asset     string          `badgerhold:"key"`
	PriceEUR  decimal.Decimal `json:"priceEur"`
	UpdatedAt int64           `json:"updatedAt"`
}

// PriceStore is a badgerhold-backed PriceSource that also accepts updates.
type PriceStore interface {
	ports.PriceSource

	SetPrice(asset string, price decimal.Decimal) error
	RemovePrice(asset string) error
	AllQuotes() ([]Quote, error)
	Close()
}

type priceStore struct {
	store *badgerhold.Store
}

// NewPriceStore opens (or creates) the price cache at dbDir. An empty dbDir
// opens an in-memory cache.
func NewPriceStore(dbDir string, logger badger.Logger) (PriceStore, error) {
	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening prices db: %w", err)
	}
	return &priceStore{store}, nil
}

func (p *priceStore) Price(asset string) (decimal.Decimal, bool) {
	var quote Quote
	if err := p.store.Get(normalizeAsset(asset), &quote); err != nil {
		return decimal.Zero, false
	}
	return quote.PriceEUR, true
}

func (p *priceStore) Prices(assets []string) map[string]decimal.Decimal {
	prices := map[string]decimal.Decimal{}
	for _, asset := range assets {
		if price, ok := p.Price(asset); ok {
			prices[normalizeAsset(asset)] = price
		}
	}
	return prices
}

func (p *priceStore) SetPrice(asset string, price decimal.Decimal) error {
	quote := Quote{
		Asset:     normalizeAsset(asset),
		PriceEUR:  price,
		UpdatedAt: time.Now().UnixMilli(),
	}
	return p.store.Upsert(quote.Asset, &quote)
}

func (p *priceStore) RemovePrice(asset string) error {
	if err := p.store.Delete(normalizeAsset(asset), Quote{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (p *priceStore) AllQuotes() ([]Quote, error) {
	var quotes []Quote
	if err := p.store.Find(&quotes, nil); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (p *priceStore) Close() {
	p.store.Close()
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
