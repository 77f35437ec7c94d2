package factory

import (
	"fmt"

	"github.com/tsuzuri-app/tsuzuri/internal/config"
	"github.com/tsuzuri-app/tsuzuri/internal/tags"
)

// NewTagProvider returns the generator selected by cfg.TagProvider, or
// nil for "none" (tag generation disabled).
func NewTagProvider(cfg *config.Config) (tags.Generator, error) {
	switch cfg.TagProvider {
	case "ollama":
		return tags.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel), nil
	case "keyword":
		return tags.NewKeywordProvider(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown TAG_PROVIDER: %s", cfg.TagProvider)
	}
}
