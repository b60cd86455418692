package chunk

import (
	"strings"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

// SettingsFromConfig maps the chunker section of the application config.
func SettingsFromConfig(cfg *appconfig.ChunkerConfig) Settings {
	if cfg == nil {
		return Settings{Strategy: StrategyProtected}
	}
	patterns := make([]string, 0, len(cfg.ProtectedPatterns))
	for _, p := range cfg.ProtectedPatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return Settings{
		Strategy:               strings.ToLower(strings.TrimSpace(cfg.Strategy)),
		TargetSize:             cfg.TargetSize,
		OverlapRatio:           cfg.OverlapRatio,
		ProtectedPatterns:      patterns,
		ReplaceDefaultPatterns: cfg.ReplaceDefaultPatterns,
	}
}
