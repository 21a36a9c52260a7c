// Package websearch provides a live web search tool backed by the DuckDuckGo
// instant answer API, for questions the market data APIs cannot cover.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://api.duckduckgo.com/"

// SearchTool implements the search_tool callable.
type SearchTool struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSearchTool() *SearchTool {
	return &SearchTool{BaseURL: defaultBaseURL, HTTPClient: http.DefaultClient}
}

func (t *SearchTool) Name() string        { return "search_tool" }
func (t *SearchTool) Description() string { return "general web search" }

func (t *SearchTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		// The analyst occasionally passes the query under "symbol".
		query, _ = args["symbol"].(string)
	}
	if query == "" {
		return nil, fmt.Errorf("query argument required")
	}

	params := url.Values{"q": {query}, "format": {"json"}, "no_html": {"1"}, "skip_disambig": {"1"}}
	req, err := http.NewRequestWithContext(ctx, "GET", t.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	var raw struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var parts []string
	if raw.Answer != "" {
		parts = append(parts, raw.Answer)
	}
	if raw.AbstractText != "" {
		parts = append(parts, raw.AbstractText)
	}
	for i, rt := range raw.RelatedTopics {
		if i >= 5 || rt.Text == "" {
			break
		}
		parts = append(parts, rt.Text)
	}
	if len(parts) == 0 {
		return "No results found.", nil
	}
	return strings.Join(parts, "\n"), nil
}
