package ilm

import (
	"context"
	"fmt"
	"strings"
)

const defaultSearchLimit = 20

// Search finds live nodes whose title or content matches query. The search
// index is used when one is configured, otherwise the store answers.
func (s *ILMService) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("empty search query")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.indexer != nil {
		hits, err := s.indexer.Search(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("searching index: %w", err)
		}
		return hits, nil
	}

	hits, err := s.store.SearchNodes(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}
	return hits, nil
}

// Reindex pushes every live node to the search index and returns the count.
func (s *ILMService) Reindex(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}
	nodes, err := s.store.FindAllNodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing nodes: %w", err)
	}
	for _, n := range nodes {
		if err := s.indexer.IndexNode(ctx, n); err != nil {
			return 0, fmt.Errorf("indexing node %s: %w", n.Slug, err)
		}
	}
	return len(nodes), nil
}

// index and unindex keep the search index in step with writes. The index is
// derived data, so failures are logged and never fail the write.
func (s *ILMService) index(ctx context.Context, node *Node) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexNode(ctx, node); err != nil {
		s.logger.Warn("search index update failed", "node", node.ID, "error", err)
	}
}

func (s *ILMService) unindex(ctx context.Context, nodeID string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.RemoveNode(ctx, nodeID); err != nil {
		s.logger.Warn("search index removal failed", "node", nodeID, "error", err)
	}
}

func (s *ILMService) reindexSubtree(ctx context.Context, path string) {
	if s.indexer == nil {
		return
	}
	nodes, err := s.store.FindSubtree(ctx, path)
	if err != nil {
		s.logger.Warn("loading moved subtree for indexing failed", "path", path, "error", err)
		return
	}
	for _, n := range nodes {
		s.index(ctx, n)
	}
}
