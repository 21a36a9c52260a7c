// Package finnhub wraps the Finnhub market data API as engine tools.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Client is a thin Finnhub API client shared by the tools built on it.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, BaseURL: defaultBaseURL, HTTPClient: http.DefaultClient}
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("token", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Quote holds a real-time quote for one ticker.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Current   float64 `json:"current"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	PrevClose float64 `json:"prev_close"`
	Timestamp int64   `json:"timestamp"`
}

// Quote fetches the latest real-time quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	var raw struct {
		C  float64 `json:"c"`
		H  float64 `json:"h"`
		L  float64 `json:"l"`
		O  float64 `json:"o"`
		PC float64 `json:"pc"`
		T  int64   `json:"t"`
	}
	if err := c.getJSON(ctx, "/quote", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return Quote{}, err
	}
	return Quote{
		Symbol:    symbol,
		Current:   raw.C,
		High:      raw.H,
		Low:       raw.L,
		Open:      raw.O,
		PrevClose: raw.PC,
		Timestamp: raw.T,
	}, nil
}

// Article is one company news item.
type Article struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Time     int64  `json:"time"`
}

// CompanyNews fetches company news for symbol within the from/to date window
// (YYYY-MM-DD), capped at limit items.
func (c *Client) CompanyNews(ctx context.Context, symbol, from, to string, limit int) ([]Article, error) {
	var raw []struct {
		Headline string `json:"headline"`
		Summary  string `json:"summary"`
		Source   string `json:"source"`
		URL      string `json:"url"`
		Datetime int64  `json:"datetime"`
	}
	params := url.Values{"symbol": {symbol}, "from": {from}, "to": {to}}
	if err := c.getJSON(ctx, "/company-news", params, &raw); err != nil {
		return nil, err
	}
	out := make([]Article, 0, limit)
	for i, n := range raw {
		if i >= limit {
			break
		}
		out = append(out, Article{Headline: n.Headline, Summary: n.Summary, Source: n.Source, URL: n.URL, Time: n.Datetime})
	}
	return out, nil
}

func symbolArg(args map[string]any) (string, error) {
	s, _ := args["symbol"].(string)
	if s == "" {
		return "", fmt.Errorf("symbol argument required")
	}
	return s, nil
}

// PriceTool exposes real-time quotes as the get_stock_price tool.
type PriceTool struct{ Client *Client }

func (t PriceTool) Name() string { return "get_stock_price" }
func (t PriceTool) Description() string {
	return "real-time quote (current, high, low, open, previous close)"
}
func (t PriceTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	return t.Client.Quote(ctx, symbol)
}

// NewsTool exposes recent company news as the get_stock_news tool.
type NewsTool struct{ Client *Client }

func (t NewsTool) Name() string        { return "get_stock_news" }
func (t NewsTool) Description() string { return "recent company news headlines" }
func (t NewsTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	return t.Client.CompanyNews(ctx, symbol, "2025-01-01", "2026-12-31", 5)
}

// OldNewsTool exposes historical company news as the get_old_news tool.
type OldNewsTool struct{ Client *Client }

func (t OldNewsTool) Name() string        { return "get_old_news" }
func (t OldNewsTool) Description() string { return "historical company news (2020-2024)" }
func (t OldNewsTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	return t.Client.CompanyNews(ctx, symbol, "2020-01-01", "2024-12-31", 5)
}
