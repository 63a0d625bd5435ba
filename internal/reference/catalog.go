// Package reference provides a read-only lookup of known instruments used as
// the last-resort quote fallback and to label holdings created from imports.
package reference

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument is a static description of a listed instrument.
type Instrument struct {
	Ticker        string          `json:"ticker"`
	Name          string          `json:"name"`
	Sector        string          `json:"sector"`
	AssetType     string          `json:"asset_type"`
	Price         decimal.Decimal `json:"current_price"`
	DividendYield decimal.Decimal `json:"dividend_yield"`
}

// Catalog looks up instruments by canonical ticker.
type Catalog interface {
	Lookup(ticker string) (Instrument, bool)
}

// StaticCatalog is an immutable in-memory Catalog.
type StaticCatalog struct {
	byTicker map[string]Instrument
}

// NewStaticCatalog builds a catalog from the given instruments. Later entries
// win on duplicate tickers.
func NewStaticCatalog(instruments []Instrument) *StaticCatalog {
	c := &StaticCatalog{byTicker: make(map[string]Instrument, len(instruments))}
	for _, in := range instruments {
		c.byTicker[strings.ToUpper(in.Ticker)] = in
	}
	return c
}

// Lookup implements Catalog.
func (c *StaticCatalog) Lookup(ticker string) (Instrument, bool) {
	in, ok := c.byTicker[strings.ToUpper(strings.TrimSpace(ticker))]
	return in, ok
}

// Len returns the number of instruments in the catalog.
func (c *StaticCatalog) Len() int { return len(c.byTicker) }

func inst(ticker, name, sector, assetType, price, yield string) Instrument {
	return Instrument{
		Ticker:        ticker,
		Name:          name,
		Sector:        sector,
		AssetType:     assetType,
		Price:         decimal.RequireFromString(price),
		DividendYield: decimal.RequireFromString(yield),
	}
}

// DefaultInstruments returns the built-in reference table of popular B3 listings.
func DefaultInstruments() []Instrument {
	return []Instrument{
		inst("PETR4", "Petrobras PN", "Petróleo", "stock", "38.50", "12.5"),
		inst("VALE3", "Vale ON", "Mineração", "stock", "62.30", "8.2"),
		inst("ITUB4", "Itaú Unibanco PN", "Bancos", "stock", "32.80", "5.1"),
		inst("BBDC4", "Bradesco PN", "Bancos", "stock", "14.20", "4.8"),
		inst("BBAS3", "Banco do Brasil ON", "Bancos", "stock", "28.90", "9.3"),
		inst("WEGE3", "WEG ON", "Bens Industriais", "stock", "42.50", "1.2"),
		inst("RENT3", "Localiza ON", "Consumo", "stock", "45.60", "2.1"),
		inst("MGLU3", "Magazine Luiza ON", "Varejo", "stock", "2.15", "0"),
		inst("ABEV3", "Ambev ON", "Bebidas", "stock", "12.80", "5.5"),
		inst("EGIE3", "Engie Brasil ON", "Energia", "stock", "43.20", "7.8"),
		inst("TAEE11", "Taesa Unit", "Energia", "unit", "35.40", "9.5"),
		inst("BBSE3", "BB Seguridade ON", "Seguros", "stock", "35.20", "8.0"),
		inst("BOVA11", "iShares Ibovespa", "Índice", "etf", "120.00", "0"),
		inst("MXRF11", "Maxi Renda FII", "Papel", "fii", "10.20", "12.0"),
		inst("HGLG11", "CSHG Logística FII", "Logística", "fii", "160.00", "8.5"),
	}
}

// NewDefaultCatalog returns a StaticCatalog over DefaultInstruments.
func NewDefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(DefaultInstruments())
}
