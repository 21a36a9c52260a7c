package finnhub

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	srv := httptest.NewServer(handler)
	return &Client{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()}, srv.Close
}

func TestQuote(t *testing.T) {
	client, closeSrv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "test-key" {
			t.Error("missing api token")
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("unexpected symbol %q", r.URL.Query().Get("symbol"))
		}
		io.WriteString(w, `{"c":123.45,"h":125.0,"l":120.0,"o":121.0,"pc":120.0,"t":1700000000}`)
	})
	defer closeSrv()

	quote, err := client.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Symbol != "AAPL" || quote.Current != 123.45 || quote.PrevClose != 120.0 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestQuoteUpstreamError(t *testing.T) {
	client, closeSrv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer closeSrv()

	if _, err := client.Quote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error on non-200")
	}
}

func TestCompanyNewsCapped(t *testing.T) {
	client, closeSrv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company-news" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `[
			{"headline":"a","summary":"s1","source":"x","url":"u1","datetime":1},
			{"headline":"b","summary":"s2","source":"x","url":"u2","datetime":2},
			{"headline":"c","summary":"s3","source":"x","url":"u3","datetime":3}
		]`)
	})
	defer closeSrv()

	articles, err := client.CompanyNews(context.Background(), "AAPL", "2025-01-01", "2025-12-31", 2)
	if err != nil {
		t.Fatalf("CompanyNews: %v", err)
	}
	if len(articles) != 2 || articles[0].Headline != "a" || articles[1].Time != 2 {
		t.Fatalf("unexpected articles: %+v", articles)
	}
}

func TestPriceToolRequiresSymbol(t *testing.T) {
	tool := PriceTool{Client: NewClient("k")}
	if _, err := tool.Call(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error without symbol")
	}
}

func TestNewsToolCall(t *testing.T) {
	client, closeSrv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if from := r.URL.Query().Get("from"); from != "2025-01-01" {
			t.Errorf("unexpected from date %q", from)
		}
		io.WriteString(w, `[{"headline":"h","summary":"s","source":"x","url":"u","datetime":1}]`)
	})
	defer closeSrv()

	result, err := NewsTool{Client: client}.Call(context.Background(), map[string]any{"symbol": "AAPL"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	articles, ok := result.([]Article)
	if !ok || len(articles) != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
}
