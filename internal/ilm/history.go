package ilm

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// CommitContent appends a version holding newBlocks and updates the node's
// live content and reference indexes in the same write. A write that loses
// the revision race is retried against the fresh node; after
// Options.CommitRetries losses the call fails with ErrConcurrentModification.
func (s *ILMService) CommitContent(ctx context.Context, nodeID string, newBlocks []Block, actor string) (node *Node, err error) {
	ctx, span := startSpan(ctx, "ilm.CommitContent", attribute.String("node_id", nodeID))
	defer func() { finishSpan(span, err) }()

	if err := ValidateBlocks(newBlocks); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.opts.CommitRetries; attempt++ {
		node, err = s.loadLive(ctx, nodeID)
		if err != nil {
			return nil, err
		}

		commit := PrepareCommit(s.opts.DiffMode, node, newBlocks, actor, s.clock.Now())
		err = s.store.AppendVersion(ctx, node.ID, commit, node.Revision)
		if errors.Is(err, ErrRevisionConflict) {
			s.logger.Debug("commit lost revision race, retrying", "node", node.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("appending version: %w", err)
		}

		commit.Apply(node)
		node.Revision++
		span.SetAttributes(
			attribute.Int("version_id", commit.Version.VersionID),
			attribute.Int("changes", len(commit.Version.Changes)),
		)
		s.logger.Info("version committed",
			"node", node.ID, "version", commit.Version.Label(),
			"changes", len(commit.Version.Changes), "actor", actor)
		s.index(ctx, node)
		return node, nil
	}

	return nil, fmt.Errorf("%w: node %s after %d attempts", ErrConcurrentModification, nodeID, s.opts.CommitRetries)
}

// GetVersion returns one version of a live node.
func (s *ILMService) GetVersion(ctx context.Context, nodeID string, versionID int) (*Version, error) {
	node, err := s.loadLive(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	v, err := s.store.FindVersion(ctx, node.ID, versionID)
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	if v == nil {
		return nil, notFound("version v%d of node %q", versionID, nodeID)
	}
	return v, nil
}

// ListVersions returns every version of a live node, oldest first.
func (s *ILMService) ListVersions(ctx context.Context, nodeID string) ([]*Version, error) {
	node, err := s.loadLive(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

// Revert commits the content of an earlier version as a new version. History
// is never rewritten.
func (s *ILMService) Revert(ctx context.Context, nodeID string, versionID int, actor string) (*Node, error) {
	v, err := s.GetVersion(ctx, nodeID, versionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reverting node", "node", nodeID, "to", v.Label(), "actor", actor)
	return s.CommitContent(ctx, nodeID, v.ContentBlocks, actor)
}
