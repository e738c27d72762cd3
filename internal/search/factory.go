package search

import (
	"fmt"

	"ilmhub/internal/config"
	"ilmhub/internal/ilm"
)

// NewIndexerFromConfig builds the search indexer and a shutdown function
// that drains pending index jobs. The "database" and "none" types return a
// nil indexer so the service searches the store directly.
func NewIndexerFromConfig(cfg config.SearchConfig, logger ilm.Logger) (ilm.Indexer, func(), error) {
	switch cfg.Type {
	case "database", "none", "":
		return nil, func() {}, nil
	case "meilisearch":
		if cfg.MeiliURL == "" {
			return nil, nil, fmt.Errorf("meilisearch search requires meili_url to be set")
		}
		m, err := NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.IndexName)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Workers <= 0 {
			return m, func() {}, nil
		}
		q := NewQueue(m, logger, cfg.Workers, cfg.QueueSize)
		q.Start()
		return q, q.Shutdown, nil
	default:
		return nil, nil, fmt.Errorf("unknown search type: %s", cfg.Type)
	}
}
