package ilm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// PathSeparator joins slugs in a materialized path.
const PathSeparator = "/"

// ComputePath returns the level and path of a node with the given segment
// placed under parent. A nil parent makes a root.
func ComputePath(parent *Node, segment string) (int, string) {
	if parent == nil {
		return 0, PathSeparator + segment
	}
	return parent.Level + 1, parent.Path + PathSeparator + segment
}

// ParentPath strips the last segment from path. A root path yields "".
func ParentPath(path string) string {
	if i := strings.LastIndex(path, PathSeparator); i > 0 {
		return path[:i]
	}
	return ""
}

// PathSegments splits a materialized path into its slugs, root first.
func PathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, PathSeparator) {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// IsWithin reports whether path equals ancestor or lies below it.
func IsWithin(path, ancestor string) bool {
	return path == ancestor || strings.HasPrefix(path, ancestor+PathSeparator)
}

// ResolveParent returns the live node a new child will hang under.
func (s *ILMService) ResolveParent(ctx context.Context, parentID string) (*Node, error) {
	parent, err := s.store.FindNodeByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("finding parent: %w", err)
	}
	if parent == nil || parent.IsDeleted {
		return nil, notFound("parent %q", parentID)
	}
	return parent, nil
}

// Children returns the live direct children of a node.
func (s *ILMService) Children(ctx context.Context, nodeID string) ([]*Node, error) {
	node, err := s.loadLive(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	children, err := s.store.FindChildren(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("finding children: %w", err)
	}
	return children, nil
}

// Subtree returns the live nodes at and below path, ordered by level then
// title. An unknown path yields an empty result.
func (s *ILMService) Subtree(ctx context.Context, path string) (nodes []*Node, err error) {
	ctx, span := startSpan(ctx, "ilm.Subtree", attribute.String("path", path))
	defer func() { finishSpan(span, err) }()

	if !strings.HasPrefix(path, PathSeparator) || len(PathSegments(path)) == 0 {
		return nil, invalid("path %q must start with %q", path, PathSeparator)
	}
	nodes, err = s.store.FindSubtree(ctx, strings.TrimSuffix(path, PathSeparator))
	if err != nil {
		return nil, fmt.Errorf("finding subtree: %w", err)
	}
	return nodes, nil
}

// Breadcrumb returns the (slug, title) trail from the root down to the node,
// resolved with one batched lookup of the path's segments. Deleted ancestors
// are left out.
func (s *ILMService) Breadcrumb(ctx context.Context, nodeID string) (crumbs []Crumb, err error) {
	ctx, span := startSpan(ctx, "ilm.Breadcrumb", attribute.String("node_id", nodeID))
	defer func() { finishSpan(span, err) }()

	node, err := s.loadLive(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	segs := PathSegments(node.Path)
	found, err := s.store.FindNodesBySlugs(ctx, segs)
	if err != nil {
		return nil, fmt.Errorf("resolving path segments: %w", err)
	}

	bySlug := make(map[string]*Node, len(found))
	for _, n := range found {
		bySlug[n.Slug] = n
	}

	crumbs = make([]Crumb, 0, len(segs))
	for _, seg := range segs {
		if n, ok := bySlug[seg]; ok {
			crumbs = append(crumbs, Crumb{Slug: n.Slug, Title: n.Title})
		}
	}
	return crumbs, nil
}

// KnowledgeTree returns every live node nested under its parent. Nodes whose
// parent is deleted are dropped together with their descendants.
func (s *ILMService) KnowledgeTree(ctx context.Context) ([]*TreeNode, error) {
	nodes, err := s.store.FindAllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return BuildTree(nodes), nil
}

// BuildTree nests a flat node list by parent id, keeping input order among
// siblings.
func BuildTree(nodes []*Node) []*TreeNode {
	byID := make(map[string]*TreeNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = &TreeNode{
			Slug:           n.Slug,
			Title:          n.Title,
			ReferenceCount: len(n.References),
			Children:       []*TreeNode{},
		}
	}

	roots := []*TreeNode{}
	for _, n := range nodes {
		t := byID[n.ID]
		if n.ParentID == "" {
			roots = append(roots, t)
			continue
		}
		if p, ok := byID[n.ParentID]; ok {
			p.Children = append(p.Children, t)
			p.HasChildren = true
		}
	}
	return roots
}

// Reparent moves a node, and everything below it, under newParentID (empty
// for root). Paths and levels of the whole subtree are rewritten in a single
// store transaction. Moving a node under itself or its descendants is a
// ConstraintViolation, as is moving a node with descendants when subtree
// moves are disabled.
func (s *ILMService) Reparent(ctx context.Context, nodeID, newParentID, actor string) (node *Node, err error) {
	ctx, span := startSpan(ctx, "ilm.Reparent",
		attribute.String("node_id", nodeID), attribute.String("parent_id", newParentID))
	defer func() { finishSpan(span, err) }()

	for attempt := 0; attempt < s.opts.CommitRetries; attempt++ {
		node, err = s.loadLive(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if node.ParentID == newParentID {
			return node, nil
		}

		var parent *Node
		if newParentID != "" {
			parent, err = s.ResolveParent(ctx, newParentID)
			if err != nil {
				return nil, err
			}
			if IsWithin(parent.Path, node.Path) {
				return nil, constraint("cannot move %s under its own subtree %s", node.Slug, parent.Path)
			}
		}

		if !s.opts.AllowSubtreeMoves {
			n, err := s.store.CountDescendants(ctx, node.Path)
			if err != nil {
				return nil, fmt.Errorf("counting descendants: %w", err)
			}
			if n > 0 {
				return nil, constraint("node %s has %d descendants and subtree moves are disabled", node.Slug, n)
			}
		}

		level, path := ComputePath(parent, node.Slug)
		oldPath := node.Path
		err = s.store.MoveSubtree(ctx, node, parent, path, level, s.clock.Now().UTC(), node.Revision)
		if errors.Is(err, ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("moving subtree: %w", err)
		}

		s.logger.Info("node moved", "node", node.ID, "from", oldPath, "to", path, "actor", actor)
		s.reindexSubtree(ctx, path)
		return s.loadLive(ctx, nodeID)
	}
	return nil, fmt.Errorf("%w: node %s", ErrConcurrentModification, nodeID)
}

// VerifyHierarchy checks that the stored level and path of a node agree with
// its parent. A mismatch is a ConstraintViolation.
func (s *ILMService) VerifyHierarchy(ctx context.Context, nodeID string) error {
	node, err := s.store.FindNodeByID(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("finding node: %w", err)
	}
	if node == nil {
		return notFound("node %q", nodeID)
	}

	var parent *Node
	if node.ParentID != "" {
		parent, err = s.store.FindNodeByID(ctx, node.ParentID)
		if err != nil {
			return fmt.Errorf("finding parent: %w", err)
		}
		if parent == nil {
			return constraint("node %s points at missing parent %s", node.Slug, node.ParentID)
		}
	}

	level, path := ComputePath(parent, node.Slug)
	if node.Level != level || node.Path != path {
		return constraint("node %s has level %d path %q, want level %d path %q",
			node.Slug, node.Level, node.Path, level, path)
	}
	return nil
}
