package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/stockpilot/tools"
	"github.com/mohammad-safakhou/stockpilot/tools/alphavantage"
)

// DashboardHandler serves the aggregated widget payload for a ticker. It
// calls the data providers directly, bypassing the LLM for speed and quota,
// and caches results in Redis when a cache is configured.
type DashboardHandler struct {
	Clients tools.Clients
	Cache   *redis.Client
	TTL     time.Duration
	Logger  *log.Logger
}

func (h *DashboardHandler) Register(e *echo.Echo) {
	e.GET("/dashboard/:symbol", h.dashboard)
}

// DashboardPayload mirrors what the frontend widget renders.
type DashboardPayload struct {
	Symbol     string                    `json:"symbol"`
	Company    string                    `json:"company"`
	Price      float64                   `json:"price"`
	Change     float64                   `json:"change"`
	Percent    float64                   `json:"percent"`
	AfterHours *float64                  `json:"after_hours"`
	Open       float64                   `json:"open"`
	High       float64                   `json:"high"`
	Low        float64                   `json:"low"`
	PrevClose  float64                   `json:"prev_close"`
	MarketCap  string                    `json:"market_cap"`
	Chart      []alphavantage.ChartPoint `json:"chart"`
}

func (h *DashboardHandler) dashboard(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symbol required")
	}
	ctx := c.Request().Context()

	if cached, ok := h.fromCache(ctx, symbol); ok {
		return c.JSONBlob(http.StatusOK, cached)
	}

	payload := h.consolidate(ctx, symbol)

	if body, err := json.Marshal(payload); err == nil {
		h.toCache(ctx, symbol, body)
		return c.JSONBlob(http.StatusOK, body)
	}
	return c.JSON(http.StatusOK, payload)
}

// consolidate gathers quote, chart and overview, tolerating partial upstream
// failures: a dashboard with gaps beats a 502.
func (h *DashboardHandler) consolidate(ctx context.Context, symbol string) DashboardPayload {
	payload := DashboardPayload{Symbol: symbol, Company: symbol}

	quote, err := h.Clients.Finnhub.Quote(ctx, symbol)
	if err != nil {
		h.Logger.Printf("quote %s: %v", symbol, err)
	} else {
		payload.Price = quote.Current
		payload.Open = quote.Open
		payload.High = quote.High
		payload.Low = quote.Low
		payload.PrevClose = quote.PrevClose
		if quote.Current != 0 && quote.PrevClose != 0 {
			payload.Change = quote.Current - quote.PrevClose
			payload.Percent = (quote.Current - quote.PrevClose) / quote.PrevClose * 100
		}
	}

	if chart, err := h.Clients.AlphaVantage.IntradayChart(ctx, symbol); err != nil {
		h.Logger.Printf("chart %s: %v", symbol, err)
	} else {
		payload.Chart = chart
	}

	if overview, err := h.Clients.AlphaVantage.CompanyOverview(ctx, symbol); err != nil {
		h.Logger.Printf("overview %s: %v", symbol, err)
	} else {
		payload.Company = overview.Name
		payload.MarketCap = overview.MarketCap
	}
	return payload
}

func cacheKey(symbol string) string { return "dashboard:" + symbol }

func (h *DashboardHandler) fromCache(ctx context.Context, symbol string) ([]byte, bool) {
	if h.Cache == nil {
		return nil, false
	}
	body, err := h.Cache.Get(ctx, cacheKey(symbol)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.Logger.Printf("cache get %s: %v", symbol, err)
		}
		return nil, false
	}
	return body, true
}

func (h *DashboardHandler) toCache(ctx context.Context, symbol string, body []byte) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Set(ctx, cacheKey(symbol), body, h.TTL).Err(); err != nil {
		h.Logger.Printf("cache set %s: %v", symbol, err)
	}
}
