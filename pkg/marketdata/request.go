package marketdata

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TimeBound is a from/to range bound. News endpoints use calendar dates
// (YYYY-MM-DD strings on the wire), candle endpoints use Unix seconds
// (numbers on the wire). A TimeBound carries whichever form arrived.
type TimeBound struct {
	Date string
	Unix int64
}

// IsZero reports whether the bound was left unset.
func (b TimeBound) IsZero() bool {
	return b.Date == "" && b.Unix == 0
}

// UnmarshalJSON accepts either a number (Unix seconds) or a string (date).
func (b *TimeBound) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		unix, err := n.Int64()
		if err != nil {
			return fmt.Errorf("time bound: %w", err)
		}
		b.Unix = unix
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time bound must be a date string or unix seconds: %w", err)
	}
	b.Date = s
	return nil
}

// MarshalJSON emits the Unix form if set, otherwise the date form.
func (b TimeBound) MarshalJSON() ([]byte, error) {
	if b.Unix != 0 {
		return []byte(strconv.FormatInt(b.Unix, 10)), nil
	}
	return json.Marshal(b.Date)
}

// Request is the wire shape posted to the proxy and produced by the SDK.
// Endpoint selects the data type; the remaining fields are the
// endpoint-specific parameter bag.
type Request struct {
	Endpoint   string     `json:"endpoint"`
	Symbol     string     `json:"symbol,omitempty"`
	Symbols    []string   `json:"symbols,omitempty"`
	Query      string     `json:"query,omitempty"`
	Category   string     `json:"category,omitempty"`
	From       *TimeBound `json:"from,omitempty"`
	To         *TimeBound `json:"to,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
	SkipCache  bool       `json:"skipCache,omitempty"`
}

// Params returns the resolved parameter bag for this request.
func (r Request) Params() Params {
	p := Params{
		Symbol:     r.Symbol,
		Symbols:    r.Symbols,
		Query:      r.Query,
		Category:   r.Category,
		Resolution: r.Resolution,
		SkipCache:  r.SkipCache,
	}
	if r.From != nil {
		p.From = *r.From
	}
	if r.To != nil {
		p.To = *r.To
	}
	return p
}

// Params is the ephemeral parameter bag for one resolution. Constructed
// per call, never persisted.
type Params struct {
	Symbol     string
	Symbols    []string
	Query      string
	Category   string
	From       TimeBound
	To         TimeBound
	Resolution string
	SkipCache  bool
}

// Validate checks that the parameters required by dt are present.
func (p Params) Validate(dt DataType) error {
	switch dt {
	case TypeQuote, TypeCandles:
		if p.Symbol == "" {
			return &ValidationError{DataType: dt, Field: "symbol"}
		}
	case TypeSearch:
		if p.Query == "" {
			return &ValidationError{DataType: dt, Field: "query"}
		}
	}
	return nil
}

// CacheSymbol returns the value stored in the symbol slot of the cache
// key: the symbol for per-symbol endpoints, the query for search, and
// empty for endpoint-wide data (general news, the default index batch).
func (p Params) CacheSymbol(dt DataType) string {
	switch dt {
	case TypeSearch:
		return p.Query
	case TypeIndices:
		return ""
	default:
		return p.Symbol
	}
}
