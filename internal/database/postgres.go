package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"ilmhub/internal/ilm"
)

// nodeRecord is the gorm model of a node row. JSON columns hold encoded
// content trees and id lists.
type nodeRecord struct {
	ID           string    `gorm:"type:varchar(64);primaryKey"`
	Slug         string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_nodes_slug"`
	Title        string    `gorm:"type:text;not null"`
	Summary      string    `gorm:"type:text;not null;default:''"`
	Status       string    `gorm:"type:varchar(16);not null;default:'draft'"`
	ParentID     *string   `gorm:"type:varchar(64);index"`
	Level        int       `gorm:"not null"`
	Path         string    `gorm:"type:text;not null;index:idx_nodes_path,class:text_pattern_ops"`
	LiveContent  string    `gorm:"type:text;not null;default:'[]'"`
	Refs         string    `gorm:"type:text;not null;default:'[]'"`
	Debates      string    `gorm:"type:text;not null;default:'[]'"`
	SearchText   string    `gorm:"type:text;not null;default:''"`
	VersionCount int       `gorm:"not null;default:0"`
	ViewCount    int64     `gorm:"not null;default:0"`
	CreatedBy    string    `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	IsDeleted    bool      `gorm:"not null;default:false;index"`
	Revision     int64     `gorm:"not null;default:1"`
}

func (nodeRecord) TableName() string { return "nodes" }

type versionRecord struct {
	NodeID        string    `gorm:"type:varchar(64);primaryKey"`
	VersionID     int       `gorm:"primaryKey;autoIncrement:false"`
	ChangedAt     time.Time `gorm:"not null"`
	ChangedBy     string    `gorm:"type:text;not null;default:''"`
	Changes       string    `gorm:"type:text;not null;default:'[]'"`
	ContentBlocks string    `gorm:"type:text;not null;default:'[]'"`
}

func (versionRecord) TableName() string { return "versions" }

type slugRecord struct {
	Slug       string    `gorm:"type:varchar(128);primaryKey"`
	Owner      string    `gorm:"type:text;not null"`
	ReservedAt time.Time `gorm:"not null"`
}

func (slugRecord) TableName() string { return "slugs" }

type operationRecord struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Operation  string `gorm:"type:text;not null"`
	Parameters string `gorm:"type:text;not null;default:''"`
	Status     string `gorm:"type:varchar(16);not null;default:'running'"`
	StartedAt  time.Time
	FinishedAt *time.Time
}

func (operationRecord) TableName() string { return "operations" }

// PostgresDatabase implements ilm.Store and ilm.SlugIndex on PostgreSQL
// through gorm. The schema is managed with AutoMigrate.
type PostgresDatabase struct {
	db    *gorm.DB
	clock ilm.Clock
}

// slugConstraint names the unique index on nodes.slug.
const slugConstraint = "idx_nodes_slug"

// uniqueViolation returns the constraint a failed insert collided on.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// NewPostgresDatabase connects to dsn and migrates the schema.
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	p := &PostgresDatabase{db: db, clock: ilm.RealClock{}}
	if err := p.Migrate(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// SetClock replaces the clock used for reservation timestamps.
func (p *PostgresDatabase) SetClock(c ilm.Clock) {
	p.clock = c
}

// Migrate creates or updates the tables.
func (p *PostgresDatabase) Migrate() error {
	if err := p.db.AutoMigrate(&nodeRecord{}, &versionRecord{}, &slugRecord{}, &operationRecord{}); err != nil {
		return fmt.Errorf("migrating postgres schema: %w", err)
	}
	return nil
}

func toNodeRecord(n *ilm.Node) (*nodeRecord, error) {
	content, refs, debates, err := nodeJSON(n)
	if err != nil {
		return nil, err
	}
	rec := &nodeRecord{
		ID:           n.ID,
		Slug:         n.Slug,
		Title:        n.Title,
		Summary:      n.Summary,
		Status:       string(n.Status),
		Level:        n.Level,
		Path:         n.Path,
		LiveContent:  content,
		Refs:         refs,
		Debates:      debates,
		SearchText:   ilm.PlainText(n.LiveContent),
		VersionCount: n.VersionCount,
		ViewCount:    n.ViewCount,
		CreatedBy:    n.CreatedBy,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		IsDeleted:    n.IsDeleted,
		Revision:     n.Revision,
	}
	if n.ParentID != "" {
		parent := n.ParentID
		rec.ParentID = &parent
	}
	return rec, nil
}

func (r *nodeRecord) toNode() (*ilm.Node, error) {
	n := &ilm.Node{
		ID:           r.ID,
		Slug:         r.Slug,
		Title:        r.Title,
		Summary:      r.Summary,
		Status:       ilm.Status(r.Status),
		Level:        r.Level,
		Path:         r.Path,
		VersionCount: r.VersionCount,
		ViewCount:    r.ViewCount,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		IsDeleted:    r.IsDeleted,
		Revision:     r.Revision,
	}
	if r.ParentID != nil {
		n.ParentID = *r.ParentID
	}
	if err := json.Unmarshal([]byte(r.LiveContent), &n.LiveContent); err != nil {
		return nil, fmt.Errorf("decoding live content of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Refs), &n.References); err != nil {
		return nil, fmt.Errorf("decoding references of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Debates), &n.Debates); err != nil {
		return nil, fmt.Errorf("decoding debates of %s: %w", r.ID, err)
	}
	return n, nil
}

func toNodes(recs []nodeRecord) ([]*ilm.Node, error) {
	nodes := make([]*ilm.Node, 0, len(recs))
	for i := range recs {
		n, err := recs[i].toNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func toVersionRecord(v *ilm.Version) (*versionRecord, error) {
	changes := "[]"
	if v.Changes != nil {
		enc, err := encodeJSON(v.Changes)
		if err != nil {
			return nil, fmt.Errorf("encoding changes: %w", err)
		}
		changes = enc
	}
	blocks, err := encodeJSON(nonNilBlocks(v.ContentBlocks))
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return &versionRecord{
		NodeID:        v.NodeID,
		VersionID:     v.VersionID,
		ChangedAt:     v.ChangedAt,
		ChangedBy:     v.ChangedBy,
		Changes:       changes,
		ContentBlocks: blocks,
	}, nil
}

func (r *versionRecord) toVersion() (*ilm.Version, error) {
	v := &ilm.Version{
		NodeID:    r.NodeID,
		VersionID: r.VersionID,
		ChangedAt: r.ChangedAt,
		ChangedBy: r.ChangedBy,
	}
	if err := json.Unmarshal([]byte(r.Changes), &v.Changes); err != nil {
		return nil, fmt.Errorf("decoding changes of %s: %w", v.Label(), err)
	}
	if err := json.Unmarshal([]byte(r.ContentBlocks), &v.ContentBlocks); err != nil {
		return nil, fmt.Errorf("decoding snapshot of %s: %w", v.Label(), err)
	}
	return v, nil
}

// lockParent share-locks the parent row, failing with ErrRevisionConflict
// unless it is live at path.
func lockParent(tx *gorm.DB, id, path string) error {
	var rec nodeRecord
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id").
		Where("id = ? AND path = ? AND is_deleted = ?", id, path, false).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ilm.ErrRevisionConflict
	}
	if err != nil {
		return fmt.Errorf("checking parent: %w", err)
	}
	return nil
}

func createNodeTx(tx *gorm.DB, n *ilm.Node, versions []*ilm.Version) error {
	if n.ParentID != "" {
		if err := lockParent(tx, n.ParentID, ilm.ParentPath(n.Path)); err != nil {
			return err
		}
	}
	rec, err := toNodeRecord(n)
	if err != nil {
		return err
	}
	if err := tx.Create(rec).Error; err != nil {
		if name, ok := uniqueViolation(err); ok {
			if name == slugConstraint {
				return fmt.Errorf("inserting node %s: %w", n.Slug, ilm.ErrSlugTaken)
			}
			return fmt.Errorf("inserting node %s: %w: duplicate %s", n.ID, ilm.ErrConstraintViolation, name)
		}
		return fmt.Errorf("inserting node: %w", err)
	}
	for _, v := range versions {
		vr, err := toVersionRecord(v)
		if err != nil {
			return err
		}
		if err := tx.Create(vr).Error; err != nil {
			return fmt.Errorf("inserting version %s: %w", v.Label(), err)
		}
	}
	return nil
}

func (p *PostgresDatabase) CreateNode(ctx context.Context, node *ilm.Node, commit *ilm.Commit) error {
	var versions []*ilm.Version
	if commit != nil {
		versions = append(versions, commit.Version)
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createNodeTx(tx, node, versions)
	})
}

func (p *PostgresDatabase) findNode(ctx context.Context, query string, arg any) (*ilm.Node, error) {
	var rec nodeRecord
	err := p.db.WithContext(ctx).Where(query, arg).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toNode()
}

func (p *PostgresDatabase) FindNodeByID(ctx context.Context, id string) (*ilm.Node, error) {
	n, err := p.findNode(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("finding node by id: %w", err)
	}
	return n, nil
}

func (p *PostgresDatabase) FindNodeBySlug(ctx context.Context, slug string) (*ilm.Node, error) {
	n, err := p.findNode(ctx, "slug = ?", slug)
	if err != nil {
		return nil, fmt.Errorf("finding node by slug: %w", err)
	}
	return n, nil
}

func (p *PostgresDatabase) FindNodesBySlugs(ctx context.Context, slugs []string) ([]*ilm.Node, error) {
	if len(slugs) == 0 {
		return []*ilm.Node{}, nil
	}
	var recs []nodeRecord
	if err := p.db.WithContext(ctx).Where("is_deleted = ? AND slug IN ?", false, slugs).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("finding nodes by slugs: %w", err)
	}
	return toNodes(recs)
}

func (p *PostgresDatabase) FindChildren(ctx context.Context, parentID string) ([]*ilm.Node, error) {
	var recs []nodeRecord
	err := p.db.WithContext(ctx).
		Where("parent_id = ? AND is_deleted = ?", parentID, false).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("finding children: %w", err)
	}
	return toNodes(recs)
}

func (p *PostgresDatabase) FindSubtree(ctx context.Context, path string) ([]*ilm.Node, error) {
	var recs []nodeRecord
	err := p.db.WithContext(ctx).
		Where("is_deleted = ? AND (path = ? OR path LIKE ? ESCAPE '\\')", false, path, escapeLike(path+ilm.PathSeparator)+"%").
		Order("level, title, id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("finding subtree: %w", err)
	}
	return toNodes(recs)
}

func (p *PostgresDatabase) CountDescendants(ctx context.Context, path string) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&nodeRecord{}).
		Where("path LIKE ? ESCAPE '\\'", escapeLike(path+ilm.PathSeparator)+"%").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting descendants: %w", err)
	}
	return int(n), nil
}

func (p *PostgresDatabase) FindAllNodes(ctx context.Context) ([]*ilm.Node, error) {
	var recs []nodeRecord
	if err := p.db.WithContext(ctx).Where("is_deleted = ?", false).Order("level, title, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return toNodes(recs)
}

// casUpdate applies updates to one node row guarded by its revision.
func casUpdate(tx *gorm.DB, nodeID string, expectedRevision int64, updates map[string]any) error {
	updates["revision"] = gorm.Expr("revision + 1")
	res := tx.Model(&nodeRecord{}).
		Where("id = ? AND revision = ?", nodeID, expectedRevision).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ilm.ErrRevisionConflict
	}
	return nil
}

func (p *PostgresDatabase) UpdateNodeMetadata(ctx context.Context, node *ilm.Node, expectedRevision int64) error {
	err := casUpdate(p.db.WithContext(ctx), node.ID, expectedRevision, map[string]any{
		"title":      node.Title,
		"summary":    node.Summary,
		"status":     string(node.Status),
		"updated_at": node.UpdatedAt,
	})
	if err != nil && !errors.Is(err, ilm.ErrRevisionConflict) {
		return fmt.Errorf("updating node metadata: %w", err)
	}
	return err
}

func (p *PostgresDatabase) SetNodeDeleted(ctx context.Context, nodeID string, deleted bool, at time.Time, expectedRevision int64) error {
	err := casUpdate(p.db.WithContext(ctx), nodeID, expectedRevision, map[string]any{
		"is_deleted": deleted,
		"updated_at": at,
	})
	if err != nil && !errors.Is(err, ilm.ErrRevisionConflict) {
		return fmt.Errorf("updating deleted flag: %w", err)
	}
	return err
}

func (p *PostgresDatabase) IncrementViewCount(ctx context.Context, nodeID string) error {
	res := p.db.WithContext(ctx).Model(&nodeRecord{}).
		Where("id = ? AND is_deleted = ?", nodeID, false).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("incrementing view count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: node %q", ilm.ErrNotFound, nodeID)
	}
	return nil
}

func (p *PostgresDatabase) MoveSubtree(ctx context.Context, node *ilm.Node, parent *ilm.Node, newPath string, newLevel int, at time.Time, expectedRevision int64) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parentID *string
		if parent != nil {
			if err := lockParent(tx, parent.ID, parent.Path); err != nil {
				return err
			}
			id := parent.ID
			parentID = &id
		}

		err := casUpdate(tx.Where("is_deleted = ?", false), node.ID, expectedRevision, map[string]any{
			"parent_id":  parentID,
			"path":       newPath,
			"level":      newLevel,
			"updated_at": at,
		})
		if err != nil {
			if errors.Is(err, ilm.ErrRevisionConflict) {
				return err
			}
			return fmt.Errorf("moving node: %w", err)
		}

		oldPrefix := node.Path + ilm.PathSeparator
		err = tx.Model(&nodeRecord{}).
			Where("path LIKE ? ESCAPE '\\'", escapeLike(oldPrefix)+"%").
			Updates(map[string]any{
				"path":       gorm.Expr("? || substr(path, ?)", newPath+ilm.PathSeparator, len(oldPrefix)+1),
				"level":      gorm.Expr("level + ?", newLevel-node.Level),
				"updated_at": at,
				"revision":   gorm.Expr("revision + 1"),
			}).Error
		if err != nil {
			return fmt.Errorf("rewriting descendant paths: %w", err)
		}
		return nil
	})
}

func (p *PostgresDatabase) AppendVersion(ctx context.Context, nodeID string, commit *ilm.Commit, expectedRevision int64) error {
	v := commit.Version
	content, err := encodeJSON(nonNilBlocks(v.ContentBlocks))
	if err != nil {
		return fmt.Errorf("encoding live content: %w", err)
	}
	refs, err := encodeJSON(nonNilStrings(commit.References))
	if err != nil {
		return fmt.Errorf("encoding references: %w", err)
	}
	debates, err := encodeJSON(nonNilStrings(commit.Debates))
	if err != nil {
		return fmt.Errorf("encoding debates: %w", err)
	}
	vr, err := toVersionRecord(v)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := casUpdate(tx.Where("is_deleted = ?", false), nodeID, expectedRevision, map[string]any{
			"live_content":  content,
			"refs":          refs,
			"debates":       debates,
			"search_text":   ilm.PlainText(v.ContentBlocks),
			"version_count": v.VersionID,
			"updated_at":    v.ChangedAt,
		})
		if err != nil {
			if errors.Is(err, ilm.ErrRevisionConflict) {
				return err
			}
			return fmt.Errorf("updating live content: %w", err)
		}

		if err := tx.Create(vr).Error; err != nil {
			if _, ok := uniqueViolation(err); ok {
				return ilm.ErrRevisionConflict
			}
			return fmt.Errorf("inserting version: %w", err)
		}
		return nil
	})
}

func (p *PostgresDatabase) ListVersions(ctx context.Context, nodeID string) ([]*ilm.Version, error) {
	var recs []versionRecord
	if err := p.db.WithContext(ctx).Where("node_id = ?", nodeID).Order("version_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	versions := make([]*ilm.Version, 0, len(recs))
	for i := range recs {
		v, err := recs[i].toVersion()
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (p *PostgresDatabase) FindVersion(ctx context.Context, nodeID string, versionID int) (*ilm.Version, error) {
	var rec versionRecord
	err := p.db.WithContext(ctx).Where("node_id = ? AND version_id = ?", nodeID, versionID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	return rec.toVersion()
}

func (p *PostgresDatabase) ImportNode(ctx context.Context, node *ilm.Node, versions []*ilm.Version) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createNodeTx(tx, node, versions)
	})
}

func (p *PostgresDatabase) SearchNodes(ctx context.Context, query string, limit int) ([]ilm.SearchHit, error) {
	var recs []nodeRecord
	pattern := "%" + escapeLike(query) + "%"
	err := p.db.WithContext(ctx).
		Select("id, slug, title, path, search_text").
		Where("is_deleted = ? AND (title ILIKE ? ESCAPE '\\' OR search_text ILIKE ? ESCAPE '\\')", false, pattern, pattern).
		Order("level, title, id").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("searching nodes: %w", err)
	}

	hits := make([]ilm.SearchHit, 0, len(recs))
	for _, r := range recs {
		hits = append(hits, ilm.SearchHit{
			NodeID:  r.ID,
			Slug:    r.Slug,
			Title:   r.Title,
			Path:    r.Path,
			Snippet: snippet(r.SearchText, query),
		})
	}
	return hits, nil
}

func (p *PostgresDatabase) Reserve(ctx context.Context, slug, owner string) (bool, error) {
	res := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slugRecord{Slug: slug, Owner: owner, ReservedAt: p.clock.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("reserving slug: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var rec slugRecord
	err := p.db.WithContext(ctx).Where("slug = ?", slug).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading slug owner: %w", err)
	}
	return rec.Owner == owner, nil
}

func (p *PostgresDatabase) Release(ctx context.Context, slug string) error {
	if err := p.db.WithContext(ctx).Where("slug = ?", slug).Delete(&slugRecord{}).Error; err != nil {
		return fmt.Errorf("releasing slug: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) CreateOperation(ctx context.Context, operation, parameters string, at time.Time) (*ilm.Operation, error) {
	rec := &operationRecord{Operation: operation, Parameters: parameters, Status: "running", StartedAt: at}
	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &ilm.Operation{ID: rec.ID, Operation: operation, Parameters: parameters, Status: rec.Status, StartedAt: at}, nil
}

func (p *PostgresDatabase) FinishOperation(ctx context.Context, id int64, status string, at time.Time) error {
	err := p.db.WithContext(ctx).Model(&operationRecord{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "finished_at": at}).Error
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) ListOperations(ctx context.Context, limit int) ([]*ilm.Operation, error) {
	var recs []operationRecord
	if err := p.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	ops := make([]*ilm.Operation, 0, len(recs))
	for _, r := range recs {
		ops = append(ops, &ilm.Operation{
			ID:         r.ID,
			Operation:  r.Operation,
			Parameters: r.Parameters,
			Status:     r.Status,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		})
	}
	return ops, nil
}

func (p *PostgresDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	var id int64
	if err := p.db.WithContext(ctx).Model(&operationRecord{}).Select("COALESCE(MAX(id), 0)").Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("getting max operation id: %w", err)
	}
	return id, nil
}

// BackupTo is not available on Postgres; use pg_dump.
func (p *PostgresDatabase) BackupTo(string) error {
	return fmt.Errorf("backing up postgres: %w", ilm.ErrUnsupported)
}

// CheckMigrations verifies that every table exists.
func (p *PostgresDatabase) CheckMigrations() error {
	var missing []string
	for _, m := range []any{&nodeRecord{}, &versionRecord{}, &slugRecord{}, &operationRecord{}} {
		if !p.db.Migrator().HasTable(m) {
			missing = append(missing, fmt.Sprintf("%T", m))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("postgres schema is missing tables for %s", strings.Join(missing, ", "))
	}
	return nil
}

// Close closes the database connection.
func (p *PostgresDatabase) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ ilm.Store     = (*PostgresDatabase)(nil)
	_ ilm.SlugIndex = (*PostgresDatabase)(nil)
)
