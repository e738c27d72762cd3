package ilm

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Options tunes the service. Zero fields take the defaults from DefaultOptions.
type Options struct {
	Allocator         AllocatorOptions
	DiffMode          DiffMode
	CommitRetries     int
	AllowSubtreeMoves bool
}

// DefaultOptions returns the options used when config leaves them unset.
func DefaultOptions() Options {
	return Options{
		Allocator:         DefaultAllocatorOptions(),
		DiffMode:          DiffPositional,
		CommitRetries:     5,
		AllowSubtreeMoves: true,
	}
}

// ILMService is the orchestration layer over identity allocation, the
// hierarchy and the version engine. It holds no mutable state between calls;
// all coordination goes through the store.
type ILMService struct {
	store   Store
	slugs   *SlugAllocator
	indexer Indexer
	vault   Vault
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	opts    Options
}

// NewILMService creates a new ILMService with the provided dependencies.
// slugIndex may be nil (time+random slugs only), indexer may be nil (search
// falls back to the store) and vault may be nil (archives unavailable).
func NewILMService(store Store, slugIndex SlugIndex, indexer Indexer, vault Vault, logger Logger, clock Clock, idgen IDGenerator, opts Options) *ILMService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = KSUIDGenerator{}
	}
	if opts.DiffMode == "" {
		opts.DiffMode = DiffPositional
	}
	if opts.CommitRetries <= 0 {
		opts.CommitRetries = DefaultOptions().CommitRetries
	}
	return &ILMService{
		store:   store,
		slugs:   NewSlugAllocator(slugIndex, clock, opts.Allocator, logger),
		indexer: indexer,
		vault:   vault,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		opts:    opts,
	}
}

// NewNode describes a node to create. Title doubles as the slug seed.
type NewNode struct {
	ParentID string
	Title    string
	Summary  string
	Status   Status
	Content  []Block
	Actor    string
}

// CreateNode allocates a slug, resolves the parent, computes path and level
// and persists the node. Non-empty initial content becomes version 1.
func (s *ILMService) CreateNode(ctx context.Context, req NewNode) (node *Node, err error) {
	ctx, span := startSpan(ctx, "ilm.CreateNode", attribute.String("parent_id", req.ParentID))
	defer func() { finishSpan(span, err) }()

	status, err := ParseStatus(string(req.Status))
	if err != nil {
		return nil, err
	}
	if err := ValidateBlocks(req.Content); err != nil {
		return nil, err
	}

	var parent *Node
	if req.ParentID != "" {
		parent, err = s.ResolveParent(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
	}

	id := s.idgen.New()
	now := s.clock.Now().UTC()

	var (
		slug       string
		collisions int
		moves      int
	)
	for {
		if slug == "" {
			slug, err = s.slugs.Allocate(ctx, req.Title, id)
			if err != nil {
				return nil, fmt.Errorf("allocating slug: %w", err)
			}
		}

		level, path := ComputePath(parent, slug)
		node = &Node{
			ID:          id,
			Slug:        slug,
			Title:       req.Title,
			Summary:     req.Summary,
			Status:      status,
			Level:       level,
			Path:        path,
			LiveContent: []Block{},
			References:  []string{},
			Debates:     []string{},
			CreatedBy:   req.Actor,
			CreatedAt:   now,
			UpdatedAt:   now,
			Revision:    1,
		}
		if parent != nil {
			node.ParentID = parent.ID
		}

		var commit *Commit
		if len(req.Content) > 0 {
			commit = PrepareCommit(s.opts.DiffMode, node, req.Content, req.Actor, now)
			commit.Apply(node)
		}

		err = s.store.CreateNode(ctx, node, commit)
		switch {
		case err == nil:
			s.logger.Info("node created", "id", node.ID, "slug", node.Slug, "path", node.Path)
			s.index(ctx, node)
			return node, nil

		case errors.Is(err, ErrSlugTaken):
			collisions++
			s.logger.Warn("slug collided at insert, reallocating", "slug", slug, "attempt", collisions)
			s.yieldSlug(ctx, slug)
			slug = ""
			if collisions >= s.slugs.candidates() {
				return nil, ErrSlugExhausted
			}

		case errors.Is(err, ErrRevisionConflict) && parent != nil:
			moves++
			if moves >= s.opts.CommitRetries {
				s.releaseSlug(ctx, slug)
				return nil, fmt.Errorf("%w: parent %s kept moving", ErrConcurrentModification, parent.ID)
			}
			s.logger.Debug("parent moved during create, retrying", "parent", parent.ID, "attempt", moves)
			if parent, err = s.ResolveParent(ctx, parent.ID); err != nil {
				s.releaseSlug(ctx, slug)
				return nil, err
			}

		default:
			s.releaseSlug(ctx, slug)
			return nil, fmt.Errorf("creating node: %w", err)
		}
	}
}

func (s *ILMService) releaseSlug(ctx context.Context, slug string) {
	if err := s.slugs.Release(ctx, slug); err != nil {
		s.logger.Warn("releasing slug failed", "slug", slug, "error", err)
	}
}

// yieldSlug hands a slug the store rejected over to the node that holds it,
// so the index stops offering it.
func (s *ILMService) yieldSlug(ctx context.Context, slug string) {
	holder, err := s.store.FindNodeBySlug(ctx, slug)
	if err != nil || holder == nil {
		s.releaseSlug(ctx, slug)
		return
	}
	if err := s.slugs.Yield(ctx, slug, holder.ID); err != nil {
		s.logger.Warn("recording slug holder failed", "slug", slug, "error", err)
	}
}

// GetNode looks a live node up by slug first, then by id.
func (s *ILMService) GetNode(ctx context.Context, slugOrID string) (node *Node, err error) {
	ctx, span := startSpan(ctx, "ilm.GetNode", attribute.String("key", slugOrID))
	defer func() { finishSpan(span, err) }()

	node, err = s.store.FindNodeBySlug(ctx, slugOrID)
	if err != nil {
		return nil, fmt.Errorf("finding node by slug: %w", err)
	}
	if node == nil {
		node, err = s.store.FindNodeByID(ctx, slugOrID)
		if err != nil {
			return nil, fmt.Errorf("finding node by id: %w", err)
		}
	}
	if node == nil || node.IsDeleted {
		return nil, notFound("node %q", slugOrID)
	}
	return node, nil
}

// loadLive returns a live node by id.
func (s *ILMService) loadLive(ctx context.Context, nodeID string) (*Node, error) {
	node, err := s.store.FindNodeByID(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("finding node: %w", err)
	}
	if node == nil || node.IsDeleted {
		return nil, notFound("node %q", nodeID)
	}
	return node, nil
}

// MetadataUpdate lists the metadata fields to change; nil fields are kept.
// Slug is accepted only so that a changed slug can be rejected.
type MetadataUpdate struct {
	Title   *string
	Summary *string
	Status  *Status
	Slug    *string
}

// UpdateMetadata edits title, summary or status. It never creates a version.
func (s *ILMService) UpdateMetadata(ctx context.Context, nodeID string, upd MetadataUpdate) (node *Node, err error) {
	ctx, span := startSpan(ctx, "ilm.UpdateMetadata", attribute.String("node_id", nodeID))
	defer func() { finishSpan(span, err) }()

	var status Status
	if upd.Status != nil {
		if status, err = ParseStatus(string(*upd.Status)); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < s.opts.CommitRetries; attempt++ {
		node, err = s.loadLive(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if upd.Slug != nil && *upd.Slug != node.Slug {
			return nil, fmt.Errorf("%w: node %s", ErrSlugImmutable, node.Slug)
		}

		if upd.Title != nil {
			node.Title = *upd.Title
		}
		if upd.Summary != nil {
			node.Summary = *upd.Summary
		}
		if upd.Status != nil {
			node.Status = status
		}
		node.UpdatedAt = s.clock.Now().UTC()

		err = s.store.UpdateNodeMetadata(ctx, node, node.Revision)
		if errors.Is(err, ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("updating metadata: %w", err)
		}
		node.Revision++
		s.index(ctx, node)
		return node, nil
	}
	return nil, fmt.Errorf("%w: node %s", ErrConcurrentModification, nodeID)
}

// RecordView increments the node's view counter.
func (s *ILMService) RecordView(ctx context.Context, nodeID string) error {
	if err := s.store.IncrementViewCount(ctx, nodeID); err != nil {
		return fmt.Errorf("recording view: %w", err)
	}
	return nil
}

// DeleteNode soft-deletes a node. History is kept; the node disappears from
// hierarchy and search queries.
func (s *ILMService) DeleteNode(ctx context.Context, nodeID, actor string) (err error) {
	ctx, span := startSpan(ctx, "ilm.DeleteNode", attribute.String("node_id", nodeID))
	defer func() { finishSpan(span, err) }()

	for attempt := 0; attempt < s.opts.CommitRetries; attempt++ {
		node, err := s.loadLive(ctx, nodeID)
		if err != nil {
			return err
		}
		err = s.store.SetNodeDeleted(ctx, node.ID, true, s.clock.Now().UTC(), node.Revision)
		if errors.Is(err, ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("deleting node: %w", err)
		}
		s.logger.Info("node deleted", "id", node.ID, "slug", node.Slug, "actor", actor)
		s.unindex(ctx, node.ID)
		return nil
	}
	return fmt.Errorf("%w: node %s", ErrConcurrentModification, nodeID)
}

// History returns the most recent mutating operations.
func (s *ILMService) History(ctx context.Context, limit int) ([]*Operation, error) {
	ops, err := s.store.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
