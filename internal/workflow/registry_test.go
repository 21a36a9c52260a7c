package workflow

import (
	"reflect"
	"strings"
	"testing"
)

func TestRegistryLookupAndNames(t *testing.T) {
	r, err := NewRegistry(
		&stubTool{name: "get_stock_price"},
		&stubTool{name: "search_tool"},
		&stubTool{name: "company_overview"},
		nil, // nil entries are skipped
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := r.Lookup("get_stock_price"); !ok {
		t.Fatal("expected lookup hit")
	}
	if _, ok := r.Lookup("GET_STOCK_PRICE"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
	want := []string{"company_overview", "get_stock_price", "search_tool"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(&stubTool{name: "x"}, &stubTool{name: "x"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if _, err := NewRegistry(&stubTool{name: ""}); err == nil {
		t.Fatal("expected empty name error")
	}
}

func TestRegistryCatalog(t *testing.T) {
	r, err := NewRegistry(&stubTool{name: "get_stock_price"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	catalog := r.Catalog()
	if !strings.Contains(catalog, "get_stock_price") || !strings.Contains(catalog, "stub") {
		t.Fatalf("unexpected catalog: %q", catalog)
	}
}
