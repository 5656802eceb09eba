// Package strategy holds the concrete caption extraction strategies.
package strategy

import (
	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// Build returns the enabled strategies in their fixed execution order.
func Build(cfg *config.Config, identities Identities) []extraction.Strategy {
	var strategies []extraction.Strategy
	for _, name := range config.StrategyOrder {
		if !cfg.Extraction.Enabled(name) {
			continue
		}
		switch name {
		case config.StrategyTranscriptAPI:
			strategies = append(strategies, NewTranscriptAPI(nil))
		case config.StrategyInnertube:
			strategies = append(strategies, NewInnertube(identities, nil))
		case config.StrategyPageScrape:
			strategies = append(strategies, NewPageScrape(identities, ""))
		case config.StrategyYtDLP:
			strategies = append(strategies, NewYtDLP(identities, cfg.YtDLP.WorkDir, nil))
		case config.StrategyBrowser:
			strategies = append(strategies, NewBrowser(identities, BrowserOptions{
				ChromePath: cfg.Browser.ChromePath,
				Headless:   cfg.Browser.Headless,
				Timeout:    cfg.Browser.Timeout,
				Cooldown:   cfg.Browser.Cooldown,
			}, nil))
		case config.StrategyRelay:
			strategies = append(strategies, NewRelay(identities, cfg.Relay.BaseURL, cfg.Relay.APIKey))
		}
	}
	return strategies
}
