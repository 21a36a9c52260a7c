// Package alphavantage wraps the Alpha Vantage API as engine tools covering
// daily prices, sentiment news, fundamentals, earnings and commodities.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// Client is a thin Alpha Vantage API client shared by the tools built on it.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, BaseURL: defaultBaseURL, HTTPClient: http.DefaultClient}
}

func (c *Client) query(ctx context.Context, function string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("function", function)
	params.Set("apikey", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alphavantage returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// DailyBar is the most recent daily OHLCV entry for a ticker.
type DailyBar struct {
	Date     string `json:"date"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	AdjClose string `json:"adj_close"`
	Volume   string `json:"volume"`
}

// LatestDaily fetches the newest daily adjusted bar for symbol.
func (c *Client) LatestDaily(ctx context.Context, symbol string) (DailyBar, error) {
	var raw struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := c.query(ctx, "TIME_SERIES_DAILY_ADJUSTED", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return DailyBar{}, err
	}
	if len(raw.Series) == 0 {
		return DailyBar{}, fmt.Errorf("no daily series for %s", symbol)
	}
	dates := make([]string, 0, len(raw.Series))
	for d := range raw.Series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	latest := raw.Series[dates[0]]
	return DailyBar{
		Date:     dates[0],
		Open:     latest["1. open"],
		High:     latest["2. high"],
		Low:      latest["3. low"],
		Close:    latest["4. close"],
		AdjClose: latest["5. adjusted close"],
		Volume:   latest["6. volume"],
	}, nil
}

// Overview holds company fundamentals and valuation metrics.
type Overview struct {
	Name         string `json:"name"`
	Sector       string `json:"sector"`
	MarketCap    string `json:"market_cap"`
	PE           string `json:"pe"`
	EPS          string `json:"eps"`
	Revenue      string `json:"revenue"`
	ProfitMargin string `json:"profit_margin"`
}

// CompanyOverview fetches fundamentals for symbol.
func (c *Client) CompanyOverview(ctx context.Context, symbol string) (Overview, error) {
	var raw struct {
		Name      string `json:"Name"`
		Sector    string `json:"Sector"`
		MarketCap string `json:"MarketCapitalization"`
		PERatio   string `json:"PERatio"`
		EPS       string `json:"EPS"`
		Revenue   string `json:"RevenueTTM"`
		Margin    string `json:"ProfitMargin"`
	}
	if err := c.query(ctx, "OVERVIEW", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return Overview{}, err
	}
	if raw.Name == "" {
		return Overview{}, fmt.Errorf("no overview data for %s", symbol)
	}
	return Overview{
		Name:         raw.Name,
		Sector:       raw.Sector,
		MarketCap:    raw.MarketCap,
		PE:           raw.PERatio,
		EPS:          raw.EPS,
		Revenue:      raw.Revenue,
		ProfitMargin: raw.Margin,
	}, nil
}

// ChartPoint is one intraday sample for the dashboard chart.
type ChartPoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// IntradayChart fetches the 5-minute intraday series for symbol, returning at
// most the last 50 points in chronological order.
func (c *Client) IntradayChart(ctx context.Context, symbol string) ([]ChartPoint, error) {
	var raw struct {
		Series map[string]map[string]string `json:"Time Series (5min)"`
	}
	params := url.Values{"symbol": {symbol}, "interval": {"5min"}, "outputsize": {"small"}}
	if err := c.query(ctx, "TIME_SERIES_INTRADAY", params, &raw); err != nil {
		return nil, err
	}
	stamps := make([]string, 0, len(raw.Series))
	for ts := range raw.Series {
		stamps = append(stamps, ts)
	}
	sort.Strings(stamps)
	if len(stamps) > 50 {
		stamps = stamps[len(stamps)-50:]
	}
	points := make([]ChartPoint, 0, len(stamps))
	for _, ts := range stamps {
		price, _ := strconv.ParseFloat(raw.Series[ts]["1. open"], 64)
		hhmm := ts
		if parts := strings.SplitN(ts, " ", 2); len(parts) == 2 && len(parts[1]) >= 5 {
			hhmm = parts[1][:5]
		}
		points = append(points, ChartPoint{Time: hhmm, Price: price})
	}
	return points, nil
}

func symbolArg(args map[string]any) (string, error) {
	s, _ := args["symbol"].(string)
	if s == "" {
		return "", fmt.Errorf("symbol argument required")
	}
	return s, nil
}

// DailyPriceTool exposes the latest daily OHLCV bar as get_stock_price2.
type DailyPriceTool struct{ Client *Client }

func (t DailyPriceTool) Name() string        { return "get_stock_price2" }
func (t DailyPriceTool) Description() string { return "latest daily OHLCV bar" }
func (t DailyPriceTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	return t.Client.LatestDaily(ctx, symbol)
}

// SentimentNewsTool exposes the sentiment-scored news feed as get_stock_news2.
type SentimentNewsTool struct{ Client *Client }

func (t SentimentNewsTool) Name() string        { return "get_stock_news2" }
func (t SentimentNewsTool) Description() string { return "sentiment scored news feed" }
func (t SentimentNewsTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Feed []map[string]any `json:"feed"`
	}
	if err := t.Client.query(ctx, "NEWS_SENTIMENT", url.Values{"tickers": {symbol}}, &raw); err != nil {
		return nil, err
	}
	if len(raw.Feed) > 5 {
		raw.Feed = raw.Feed[:5]
	}
	return raw.Feed, nil
}

// TranscriptTool exposes earnings call transcripts as company_inside_news.
type TranscriptTool struct{ Client *Client }

func (t TranscriptTool) Name() string        { return "company_inside_news" }
func (t TranscriptTool) Description() string { return "earnings call transcript for a quarter" }
func (t TranscriptTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	quarter, _ := args["quarter"].(string)
	if quarter == "" {
		quarter = "2024Q1"
	}
	var raw map[string]any
	if err := t.Client.query(ctx, "EARNINGS_CALL_TRANSCRIPT", url.Values{"symbol": {symbol}, "quarter": {quarter}}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// TopMoversTool exposes market movers as top_gainers.
type TopMoversTool struct{ Client *Client }

func (t TopMoversTool) Name() string        { return "top_gainers" }
func (t TopMoversTool) Description() string { return "top gaining, losing and most active stocks" }
func (t TopMoversTool) Call(ctx context.Context, args map[string]any) (any, error) {
	var raw struct {
		Gainers []map[string]any `json:"top_gainers"`
		Losers  []map[string]any `json:"top_losers"`
		Active  []map[string]any `json:"most_actively_traded"`
	}
	if err := t.Client.query(ctx, "TOP_GAINERS_LOSERS", nil, &raw); err != nil {
		return nil, err
	}
	capped := func(in []map[string]any) []map[string]any {
		if len(in) > 5 {
			return in[:5]
		}
		return in
	}
	return map[string]any{
		"gainers": capped(raw.Gainers),
		"losers":  capped(raw.Losers),
		"active":  capped(raw.Active),
	}, nil
}

// OverviewTool exposes company fundamentals as company_overview.
type OverviewTool struct{ Client *Client }

func (t OverviewTool) Name() string        { return "company_overview" }
func (t OverviewTool) Description() string { return "fundamentals and valuation metrics" }
func (t OverviewTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	return t.Client.CompanyOverview(ctx, symbol)
}

// IncomeStatementTool exposes income statements as annual_income_statement.
type IncomeStatementTool struct{ Client *Client }

func (t IncomeStatementTool) Name() string        { return "annual_income_statement" }
func (t IncomeStatementTool) Description() string { return "annual and quarterly income statements" }
func (t IncomeStatementTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Annual    []map[string]any `json:"annualReports"`
		Quarterly []map[string]any `json:"quarterlyReports"`
	}
	if err := t.Client.query(ctx, "INCOME_STATEMENT", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return nil, err
	}
	capped := func(in []map[string]any) []map[string]any {
		if len(in) > 3 {
			return in[:3]
		}
		return in
	}
	return map[string]any{"annual": capped(raw.Annual), "quarterly": capped(raw.Quarterly)}, nil
}

// EstimatesTool exposes analyst projections as earning_estimate.
type EstimatesTool struct{ Client *Client }

func (t EstimatesTool) Name() string        { return "earning_estimate" }
func (t EstimatesTool) Description() string { return "analyst earnings estimates and projections" }
func (t EstimatesTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := t.Client.query(ctx, "EARNINGS_ESTIMATES", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CalendarTool exposes the earnings calendar as future_expected_earning.
type CalendarTool struct{ Client *Client }

func (t CalendarTool) Name() string        { return "future_expected_earning" }
func (t CalendarTool) Description() string { return "upcoming earnings calendar events" }
func (t CalendarTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := t.Client.query(ctx, "EARNINGS_CALENDAR", url.Values{"symbol": {symbol}, "horizon": {"3month"}}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CommoditiesTool exposes gold and silver spot prices as get_gold_silver_price.
type CommoditiesTool struct{ Client *Client }

func (t CommoditiesTool) Name() string        { return "get_gold_silver_price" }
func (t CommoditiesTool) Description() string { return "current gold and silver spot prices" }
func (t CommoditiesTool) Call(ctx context.Context, args map[string]any) (any, error) {
	var raw map[string]any
	if err := t.Client.query(ctx, "GOLD_SILVER_SPOT", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// IntradayChartTool exposes the 5-minute chart series as
// get_stock_intraday_chart.
type IntradayChartTool struct{ Client *Client }

func (t IntradayChartTool) Name() string        { return "get_stock_intraday_chart" }
func (t IntradayChartTool) Description() string { return "intraday 5-minute chart series" }
func (t IntradayChartTool) Call(ctx context.Context, args map[string]any) (any, error) {
	symbol, err := symbolArg(args)
	if err != nil {
		return nil, err
	}
	return t.Client.IntradayChart(ctx, symbol)
}
