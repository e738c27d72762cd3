package slugindex

import (
	"fmt"

	"ilmhub/internal/config"
	"ilmhub/internal/ilm"
)

// NewSlugIndexFromConfig selects the slug index. store backs the "database"
// type; "none" returns nil, leaving the allocator on time-based slugs.
func NewSlugIndexFromConfig(cfg config.SlugIndexConfig, store ilm.SlugIndex) (ilm.SlugIndex, error) {
	switch cfg.Type {
	case "database", "":
		return store, nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis slug index requires redis_url to be set")
		}
		idx, err := NewRedisIndex(cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "memory":
		return NewMemoryIndex(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown slug index type: %s", cfg.Type)
	}
}
