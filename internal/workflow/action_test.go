package workflow

import (
	"errors"
	"testing"
)

func TestParseActionSuccess(t *testing.T) {
	action, err := ParseAction(`{"action":"tool","tool":"get_stock_price","args":{"symbol":"AAPL"}}`)
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if action.Tool != "get_stock_price" {
		t.Fatalf("unexpected tool: %q", action.Tool)
	}
	if sym, _ := action.Args["symbol"].(string); sym != "AAPL" {
		t.Fatalf("unexpected args: %v", action.Args)
	}
}

func TestParseActionSurroundingNoise(t *testing.T) {
	// The parser takes first '{' to last '}', so prose around the object
	// still decodes.
	action, err := ParseAction("Sure thing:\n{\"action\":\"tool\",\"tool\":\"top_gainers\"}\n")
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if action.Tool != "top_gainers" {
		t.Fatalf("unexpected tool: %q", action.Tool)
	}
	if action.Args == nil || len(action.Args) != 0 {
		t.Fatalf("expected empty args map, got %v", action.Args)
	}
}

func TestParseActionMalformed(t *testing.T) {
	cases := map[string]string{
		"no braces":      "just some prose about AAPL",
		"truncated json": `{"action":"tool","tool":"get_stock_price"`,
		"stray brace":    "look at this { thing",
		"missing marker": `{"tool":"get_stock_price","args":{}}`,
		"wrong marker":   `{"action":"answer","tool":"get_stock_price"}`,
		"missing tool":   `{"action":"tool","args":{"symbol":"AAPL"}}`,
		"empty text":     "",
	}
	for name, text := range cases {
		if _, err := ParseAction(text); !errors.Is(err, ErrMalformedAction) {
			t.Errorf("%s: expected ErrMalformedAction, got %v", name, err)
		}
	}
}
