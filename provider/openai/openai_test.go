package openai_provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
)

func TestCompleteMapsRoles(t *testing.T) {
	var captured request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, `{"choices":[{"message":{"content":"the answer"}}]}`)
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "test-model", 0.2, 512, 5*time.Second)
	out, err := client.Complete(context.Background(), "system prompt", []workflow.Turn{
		{Role: workflow.RoleUser, Content: "price of AAPL?"},
		{Role: workflow.RoleAssistant, Content: "checking"},
		{Role: workflow.RoleObservation, Content: "Observation from get_stock_price: {...}"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "the answer" {
		t.Fatalf("unexpected output: %q", out)
	}

	if captured.Model != "test-model" || captured.MaxTokens != 512 {
		t.Fatalf("unexpected request: %+v", captured)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(captured.Messages) != len(wantRoles) {
		t.Fatalf("unexpected message count: %+v", captured.Messages)
	}
	for i, role := range wantRoles {
		if captured.Messages[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, captured.Messages[i].Role, role)
		}
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, "m", 0, 0, 5*time.Second)
	if _, err := client.Complete(context.Background(), "", nil); err == nil {
		t.Fatal("expected error on non-200")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, "m", 0, 0, 5*time.Second)
	if _, err := client.Complete(context.Background(), "", nil); err == nil {
		t.Fatal("expected error on empty choices")
	}
}
