package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// refreshConcurrency bounds the parallel requests in Refresh.
const refreshConcurrency = 5

// GetQuote fetches the current quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	payload, err := c.Fetch(ctx, marketdata.Request{
		Endpoint: string(marketdata.TypeQuote),
		Symbol:   symbol,
	}, DefaultFetchOptions())
	if err != nil {
		return nil, err
	}

	var quote marketdata.Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &quote, nil
}

// SearchSymbols looks up symbols matching a free-text query.
func (c *Client) SearchSymbols(ctx context.Context, query string) (*marketdata.SearchResult, error) {
	payload, err := c.Fetch(ctx, marketdata.Request{
		Endpoint: string(marketdata.TypeSearch),
		Query:    query,
	}, DefaultFetchOptions())
	if err != nil {
		return nil, err
	}

	var result marketdata.SearchResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	return &result, nil
}

// GetMarketNews fetches general market news for a category, truncated
// client-side to at most count articles. count <= 0 means no truncation.
func (c *Client) GetMarketNews(ctx context.Context, category string, count int) ([]marketdata.NewsArticle, error) {
	payload, err := c.Fetch(ctx, marketdata.Request{
		Endpoint: string(marketdata.TypeNews),
		Category: category,
	}, DefaultFetchOptions())
	if err != nil {
		return nil, err
	}

	var articles []marketdata.NewsArticle
	if err := json.Unmarshal(payload, &articles); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}
	if count > 0 && len(articles) > count {
		articles = articles[:count]
	}
	return articles, nil
}

// GetCompanyNews fetches news for one symbol over a date range.
// Empty bounds default to the last 30 days server-side.
func (c *Client) GetCompanyNews(ctx context.Context, symbol, from, to string) ([]marketdata.NewsArticle, error) {
	req := marketdata.Request{
		Endpoint: string(marketdata.TypeNews),
		Symbol:   symbol,
	}
	if from != "" {
		req.From = &marketdata.TimeBound{Date: from}
	}
	if to != "" {
		req.To = &marketdata.TimeBound{Date: to}
	}

	payload, err := c.Fetch(ctx, req, DefaultFetchOptions())
	if err != nil {
		return nil, err
	}

	var articles []marketdata.NewsArticle
	if err := json.Unmarshal(payload, &articles); err != nil {
		return nil, fmt.Errorf("decode company news: %w", err)
	}
	return articles, nil
}

// GetIndices fetches quotes for the given index symbols, or the default
// major-index list when none are given. Slot order matches the request.
func (c *Client) GetIndices(ctx context.Context, symbols ...string) ([]marketdata.IndexQuote, error) {
	payload, err := c.Fetch(ctx, marketdata.Request{
		Endpoint: string(marketdata.TypeIndices),
		Symbols:  symbols,
	}, DefaultFetchOptions())
	if err != nil {
		return nil, err
	}

	var indices []marketdata.IndexQuote
	if err := json.Unmarshal(payload, &indices); err != nil {
		return nil, fmt.Errorf("decode indices: %w", err)
	}
	return indices, nil
}

// GetCandles fetches historical OHLCV data for a symbol. Zero bounds
// default to the last 30 days server-side.
func (c *Client) GetCandles(ctx context.Context, symbol, resolution string, from, to int64) (*marketdata.Candles, error) {
	req := marketdata.Request{
		Endpoint:   string(marketdata.TypeCandles),
		Symbol:     symbol,
		Resolution: resolution,
	}
	if from != 0 {
		req.From = &marketdata.TimeBound{Unix: from}
	}
	if to != 0 {
		req.To = &marketdata.TimeBound{Unix: to}
	}

	payload, err := c.Fetch(ctx, req, DefaultFetchOptions())
	if err != nil {
		return nil, err
	}

	var candles marketdata.Candles
	if err := json.Unmarshal(payload, &candles); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	return &candles, nil
}

// Refresh fires skip-cache requests for each entry in parallel to warm
// the proxy cache. It is best-effort: individual failures are logged and
// ignored, never failing the batch. Returns the number of successful
// refreshes.
func (c *Client) Refresh(ctx context.Context, reqs []marketdata.Request) int {
	var succeeded atomic.Int64

	var g errgroup.Group
	g.SetLimit(refreshConcurrency)

	for _, req := range reqs {
		g.Go(func() error {
			req.SkipCache = true
			_, err := c.Fetch(ctx, req, FetchOptions{Retries: 0, Notify: false})
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("endpoint", req.Endpoint).
					Str("symbol", req.Symbol).
					Msg("Cache refresh failed")
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(succeeded.Load())
}
