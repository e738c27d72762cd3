package ilm

import (
	"context"
	"time"
)

// Store is the durable record store under the service. Lookups return
// (nil, nil) when nothing matches. Writes that take an expected revision are
// compare-and-swap: they fail with ErrRevisionConflict when the stored
// revision differs, and bump the revision on success.
type Store interface {
	// Node operations

	// CreateNode inserts a node and, when commit is non-nil, its first
	// version in one transaction. Returns ErrSlugTaken on a slug collision
	// and ErrRevisionConflict when the parent is no longer live at the path
	// node.Path was computed from.
	CreateNode(ctx context.Context, node *Node, commit *Commit) error

	// FindNodeByID returns a node by id, including soft-deleted nodes.
	FindNodeByID(ctx context.Context, id string) (*Node, error)

	// FindNodeBySlug returns a node by slug, including soft-deleted nodes.
	FindNodeBySlug(ctx context.Context, slug string) (*Node, error)

	// FindNodesBySlugs returns the live nodes matching any of the slugs in a
	// single lookup. Order is unspecified.
	FindNodesBySlugs(ctx context.Context, slugs []string) ([]*Node, error)

	// FindChildren returns live nodes whose parent is parentID, oldest first.
	FindChildren(ctx context.Context, parentID string) ([]*Node, error)

	// FindSubtree returns the live node at path and every live node below it,
	// ordered by level then title.
	FindSubtree(ctx context.Context, path string) ([]*Node, error)

	// CountDescendants counts nodes below path, deleted ones included.
	CountDescendants(ctx context.Context, path string) (int, error)

	// FindAllNodes returns every live node ordered by level then title.
	FindAllNodes(ctx context.Context) ([]*Node, error)

	// UpdateNodeMetadata writes title, summary, status and updated_at.
	UpdateNodeMetadata(ctx context.Context, node *Node, expectedRevision int64) error

	// SetNodeDeleted flips the soft delete flag.
	SetNodeDeleted(ctx context.Context, nodeID string, deleted bool, at time.Time, expectedRevision int64) error

	// IncrementViewCount bumps the view counter without touching the revision.
	IncrementViewCount(ctx context.Context, nodeID string) error

	// MoveSubtree sets the node's parent (nil for root) and rewrites path and
	// level of the node and all of its descendants with one prefix update.
	// It fails with ErrRevisionConflict when the parent is no longer live at
	// parent.Path.
	MoveSubtree(ctx context.Context, node *Node, parent *Node, newPath string, newLevel int, at time.Time, expectedRevision int64) error

	// Version operations

	// AppendVersion persists commit: it inserts the version row and writes
	// live content, indexes and version count on the node in one transaction.
	AppendVersion(ctx context.Context, nodeID string, commit *Commit, expectedRevision int64) error

	// ListVersions returns all versions of a node, oldest first.
	ListVersions(ctx context.Context, nodeID string) ([]*Version, error)

	// FindVersion returns one version of a node.
	FindVersion(ctx context.Context, nodeID string, versionID int) (*Version, error)

	// ImportNode inserts a node together with its full version history. The
	// parent is checked as in CreateNode.
	ImportNode(ctx context.Context, node *Node, versions []*Version) error

	// SearchNodes matches query against titles and unit content of live nodes.
	SearchNodes(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Operation audit log

	CreateOperation(ctx context.Context, operation, parameters string, at time.Time) (*Operation, error)
	FinishOperation(ctx context.Context, id int64, status string, at time.Time) error
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)
	MaxOperationID(ctx context.Context) (int64, error)

	// BackupTo writes a consistent snapshot of the store to path.
	// Backends without file snapshots return ErrUnsupported.
	BackupTo(path string) error

	// CheckMigrations reports whether the schema is current.
	CheckMigrations() error

	// Close closes the store.
	Close() error
}

// Indexer keeps a search index of node content. Implementations must treat
// RemoveNode of an unknown id as success.
type Indexer interface {
	IndexNode(ctx context.Context, node *Node) error
	RemoveNode(ctx context.Context, nodeID string) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}
