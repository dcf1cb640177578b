package marketdata

import "encoding/json"

// Quote mirrors the upstream provider's quote schema.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Candles is the upstream candle response: parallel OHLCV arrays plus a
// status string ("ok" or "no_data").
type Candles struct {
	Close      []float64 `json:"c"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Open       []float64 `json:"o"`
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Volume     []float64 `json:"v"`
}

// NewsArticle is a single company or general news item.
type NewsArticle struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// SymbolLookup is a single symbol search match.
type SymbolLookup struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

// SearchResult is the upstream symbol search response.
type SearchResult struct {
	Count  int            `json:"count"`
	Result []SymbolLookup `json:"result"`
}

// IndexQuote is one slot of an indices fan-out result. Slots keep the
// order of the requested symbol list. A slot either carries Data or an
// Error marker; a failing symbol does not fail the batch.
type IndexQuote struct {
	Symbol string          `json:"symbol"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}
