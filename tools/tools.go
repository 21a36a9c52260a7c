// Package tools assembles the data provider tool catalog offered to the
// analyst model.
package tools

import (
	"github.com/mohammad-safakhou/stockpilot/config"
	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
	"github.com/mohammad-safakhou/stockpilot/tools/alphavantage"
	"github.com/mohammad-safakhou/stockpilot/tools/finnhub"
	"github.com/mohammad-safakhou/stockpilot/tools/websearch"
)

// Clients bundles the upstream API clients so the HTTP layer can reuse them
// for direct dashboard fetches without going through the engine.
type Clients struct {
	Finnhub      *finnhub.Client
	AlphaVantage *alphavantage.Client
}

// NewClients constructs the upstream clients from configuration.
func NewClients(cfg config.ToolsConfig) Clients {
	return Clients{
		Finnhub:      finnhub.NewClient(cfg.FinnhubAPIKey),
		AlphaVantage: alphavantage.NewClient(cfg.AlphaVantageAPIKey),
	}
}

// BuildRegistry wires every data tool into an engine registry.
func BuildRegistry(clients Clients) (*workflow.Registry, error) {
	return workflow.NewRegistry(
		finnhub.PriceTool{Client: clients.Finnhub},
		finnhub.NewsTool{Client: clients.Finnhub},
		finnhub.OldNewsTool{Client: clients.Finnhub},
		alphavantage.DailyPriceTool{Client: clients.AlphaVantage},
		alphavantage.SentimentNewsTool{Client: clients.AlphaVantage},
		alphavantage.TranscriptTool{Client: clients.AlphaVantage},
		alphavantage.TopMoversTool{Client: clients.AlphaVantage},
		alphavantage.OverviewTool{Client: clients.AlphaVantage},
		alphavantage.IncomeStatementTool{Client: clients.AlphaVantage},
		alphavantage.EstimatesTool{Client: clients.AlphaVantage},
		alphavantage.CalendarTool{Client: clients.AlphaVantage},
		alphavantage.CommoditiesTool{Client: clients.AlphaVantage},
		alphavantage.IntradayChartTool{Client: clients.AlphaVantage},
		websearch.NewSearchTool(),
	)
}
