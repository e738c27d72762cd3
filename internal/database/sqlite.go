package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"ilmhub/internal/database/migrations"
	"ilmhub/internal/ilm"
)

// SQLiteDatabase implements ilm.Store and ilm.SlugIndex on SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock ilm.Clock
}

// NewSQLiteDatabase opens a SQLite database. path can be a file path or
// ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path, clock: ilm.RealClock{}}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection. The caller is
// responsible for its configuration.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, clock: ilm.RealClock{}}
}

// DB returns the underlying connection pool.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// SetClock replaces the clock used for reservation timestamps.
func (s *SQLiteDatabase) SetClock(c ilm.Clock) {
	s.clock = c
}

// OpenConnection opens a SQLite connection with foreign keys enforced. File
// databases run in WAL mode with a busy timeout and write transactions that
// take the lock up front. An in-memory
// database is pinned to one connection since every connection to ":memory:"
// is a separate database.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to date.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// MigrationStatus reports the schema version.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

const nodeColumns = `id, slug, title, summary, status, parent_id, level, path, live_content, refs, debates,
	version_count, view_count, created_by, created_at, updated_at, is_deleted, revision`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*ilm.Node, error) {
	var (
		n                   ilm.Node
		parentID            sql.NullString
		content, refs, debs string
		status              string
	)
	err := row.Scan(&n.ID, &n.Slug, &n.Title, &n.Summary, &status, &parentID, &n.Level, &n.Path,
		&content, &refs, &debs, &n.VersionCount, &n.ViewCount, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt,
		&n.IsDeleted, &n.Revision)
	if err != nil {
		return nil, err
	}
	n.Status = ilm.Status(status)
	n.ParentID = parentID.String
	if err := json.Unmarshal([]byte(content), &n.LiveContent); err != nil {
		return nil, fmt.Errorf("decoding live content of %s: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(refs), &n.References); err != nil {
		return nil, fmt.Errorf("decoding references of %s: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(debs), &n.Debates); err != nil {
		return nil, fmt.Errorf("decoding debates of %s: %w", n.ID, err)
	}
	return &n, nil
}

func (s *SQLiteDatabase) queryNodes(ctx context.Context, query string, args ...any) ([]*ilm.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := []*ilm.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteDatabase) findNode(ctx context.Context, where string, arg any) (*ilm.Node, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE "+where, arg)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nodeJSON encodes the JSON columns of a node.
func nodeJSON(n *ilm.Node) (content, refs, debates string, err error) {
	if content, err = encodeJSON(nonNilBlocks(n.LiveContent)); err != nil {
		return "", "", "", fmt.Errorf("encoding live content: %w", err)
	}
	if refs, err = encodeJSON(nonNilStrings(n.References)); err != nil {
		return "", "", "", fmt.Errorf("encoding references: %w", err)
	}
	if debates, err = encodeJSON(nonNilStrings(n.Debates)); err != nil {
		return "", "", "", fmt.Errorf("encoding debates: %w", err)
	}
	return content, refs, debates, nil
}

func nonNilBlocks(b []ilm.Block) []ilm.Block {
	if b == nil {
		return []ilm.Block{}
	}
	return b
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// escapeLike escapes LIKE wildcards so that s matches literally with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ilm.ErrRevisionConflict
	}
	return nil
}

// Node operations

func (s *SQLiteDatabase) CreateNode(ctx context.Context, node *ilm.Node, commit *ilm.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(ctx, tx, node); err != nil {
		return err
	}
	if err := insertNode(ctx, tx, node); err != nil {
		return err
	}
	if commit != nil {
		if err := insertVersion(ctx, tx, commit.Version); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing node: %w", err)
	}
	return nil
}

// parentLive fails with ErrRevisionConflict unless the node id is live at path.
func parentLive(ctx context.Context, tx *sql.Tx, id, path string) error {
	var live int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE id = ? AND path = ? AND is_deleted = 0`,
		id, path).Scan(&live)
	if err != nil {
		return fmt.Errorf("checking parent: %w", err)
	}
	if live == 0 {
		return ilm.ErrRevisionConflict
	}
	return nil
}

// checkParent verifies that the parent n.Path was computed from is still in
// place.
func checkParent(ctx context.Context, tx *sql.Tx, n *ilm.Node) error {
	if n.ParentID == "" {
		return nil
	}
	return parentLive(ctx, tx, n.ParentID, ilm.ParentPath(n.Path))
}

func insertNode(ctx context.Context, tx *sql.Tx, n *ilm.Node) error {
	content, refs, debates, err := nodeJSON(n)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO nodes (`+nodeColumns+`, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Slug, n.Title, n.Summary, string(n.Status), nullString(n.ParentID), n.Level, n.Path,
		content, refs, debates, n.VersionCount, n.ViewCount, n.CreatedBy, n.CreatedAt, n.UpdatedAt,
		n.IsDeleted, n.Revision, ilm.PlainText(n.LiveContent))
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "nodes.slug") {
			return fmt.Errorf("inserting node %s: %w", n.Slug, ilm.ErrSlugTaken)
		}
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *ilm.Version) error {
	changes, err := encodeJSON(v.Changes)
	if err != nil {
		return fmt.Errorf("encoding changes: %w", err)
	}
	blocks, err := encodeJSON(nonNilBlocks(v.ContentBlocks))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if v.Changes == nil {
		changes = "[]"
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO versions (node_id, version_id, changed_at, changed_by, changes, content_blocks)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.NodeID, v.VersionID, v.ChangedAt, v.ChangedBy, changes, blocks)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting version %s: %w", v.Label(), ilm.ErrRevisionConflict)
		}
		return fmt.Errorf("inserting version: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindNodeByID(ctx context.Context, id string) (*ilm.Node, error) {
	n, err := s.findNode(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("finding node by id: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindNodeBySlug(ctx context.Context, slug string) (*ilm.Node, error) {
	n, err := s.findNode(ctx, "slug = ?", slug)
	if err != nil {
		return nil, fmt.Errorf("finding node by slug: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindNodesBySlugs(ctx context.Context, slugs []string) ([]*ilm.Node, error) {
	if len(slugs) == 0 {
		return []*ilm.Node{}, nil
	}
	args := make([]any, len(slugs))
	for i, slug := range slugs {
		args[i] = slug
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(slugs)), ", ")

	nodes, err := s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE is_deleted = 0 AND slug IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("finding nodes by slugs: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteDatabase) FindChildren(ctx context.Context, parentID string) ([]*ilm.Node, error) {
	nodes, err := s.queryNodes(ctx, "SELECT "+nodeColumns+` FROM nodes
		WHERE parent_id = ? AND is_deleted = 0 ORDER BY created_at, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("finding children: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteDatabase) FindSubtree(ctx context.Context, path string) ([]*ilm.Node, error) {
	nodes, err := s.queryNodes(ctx, "SELECT "+nodeColumns+` FROM nodes
		WHERE is_deleted = 0 AND (path = ? OR path LIKE ? ESCAPE '\')
		ORDER BY level, title, id`, path, escapeLike(path+ilm.PathSeparator)+"%")
	if err != nil {
		return nil, fmt.Errorf("finding subtree: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteDatabase) CountDescendants(ctx context.Context, path string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE path LIKE ? ESCAPE '\'`,
		escapeLike(path+ilm.PathSeparator)+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting descendants: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindAllNodes(ctx context.Context) ([]*ilm.Node, error) {
	nodes, err := s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE is_deleted = 0 ORDER BY level, title, id")
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteDatabase) UpdateNodeMetadata(ctx context.Context, node *ilm.Node, expectedRevision int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE nodes
		SET title = ?, summary = ?, status = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ?`,
		node.Title, node.Summary, string(node.Status), node.UpdatedAt, node.ID, expectedRevision)
	if err != nil {
		return fmt.Errorf("updating node metadata: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteDatabase) SetNodeDeleted(ctx context.Context, nodeID string, deleted bool, at time.Time, expectedRevision int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE nodes
		SET is_deleted = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ?`,
		deleted, at, nodeID, expectedRevision)
	if err != nil {
		return fmt.Errorf("updating deleted flag: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteDatabase) IncrementViewCount(ctx context.Context, nodeID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE nodes SET view_count = view_count + 1 WHERE id = ? AND is_deleted = 0`, nodeID)
	if err != nil {
		return fmt.Errorf("incrementing view count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: node %q", ilm.ErrNotFound, nodeID)
	}
	return nil
}

func (s *SQLiteDatabase) MoveSubtree(ctx context.Context, node *ilm.Node, parent *ilm.Node, newPath string, newLevel int, at time.Time, expectedRevision int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var parentID sql.NullString
	if parent != nil {
		if err := parentLive(ctx, tx, parent.ID, parent.Path); err != nil {
			return err
		}
		parentID = nullString(parent.ID)
	}

	res, err := tx.ExecContext(ctx, `UPDATE nodes
		SET parent_id = ?, path = ?, level = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ? AND is_deleted = 0`,
		parentID, newPath, newLevel, at, node.ID, expectedRevision)
	if err != nil {
		return fmt.Errorf("moving node: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	oldPrefix := node.Path + ilm.PathSeparator
	_, err = tx.ExecContext(ctx, `UPDATE nodes
		SET path = ? || substr(path, ?), level = level + ?, updated_at = ?, revision = revision + 1
		WHERE path LIKE ? ESCAPE '\'`,
		newPath+ilm.PathSeparator, len(oldPrefix)+1, newLevel-node.Level, at,
		escapeLike(oldPrefix)+"%")
	if err != nil {
		return fmt.Errorf("rewriting descendant paths: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing move: %w", err)
	}
	return nil
}

// Version operations

func (s *SQLiteDatabase) AppendVersion(ctx context.Context, nodeID string, commit *ilm.Commit, expectedRevision int64) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE nodes
		SET live_content = ?, refs = ?, debates = ?, search_text = ?, version_count = ?, updated_at = ?,
			revision = revision + 1
		WHERE id = ? AND revision = ? AND is_deleted = 0`,
		content, refs, debates, ilm.PlainText(v.ContentBlocks), v.VersionID, v.ChangedAt, nodeID, expectedRevision)
	if err != nil {
		return fmt.Errorf("updating live content: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	if err := insertVersion(ctx, tx, v); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing version: %w", err)
	}
	return nil
}

const versionColumns = `node_id, version_id, changed_at, changed_by, changes, content_blocks`

func scanVersion(row rowScanner) (*ilm.Version, error) {
	var (
		v               ilm.Version
		changes, blocks string
	)
	if err := row.Scan(&v.NodeID, &v.VersionID, &v.ChangedAt, &v.ChangedBy, &changes, &blocks); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(changes), &v.Changes); err != nil {
		return nil, fmt.Errorf("decoding changes of %s: %w", v.Label(), err)
	}
	if err := json.Unmarshal([]byte(blocks), &v.ContentBlocks); err != nil {
		return nil, fmt.Errorf("decoding snapshot of %s: %w", v.Label(), err)
	}
	return &v, nil
}

func (s *SQLiteDatabase) ListVersions(ctx context.Context, nodeID string) ([]*ilm.Version, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+versionColumns+" FROM versions WHERE node_id = ? ORDER BY version_id", nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	versions := []*ilm.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("listing versions: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteDatabase) FindVersion(ctx context.Context, nodeID string, versionID int) (*ilm.Version, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+versionColumns+" FROM versions WHERE node_id = ? AND version_id = ?", nodeID, versionID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	return v, nil
}

func (s *SQLiteDatabase) ImportNode(ctx context.Context, node *ilm.Node, versions []*ilm.Version) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(ctx, tx, node); err != nil {
		return err
	}
	if err := insertNode(ctx, tx, node); err != nil {
		return err
	}
	for _, v := range versions {
		if err := insertVersion(ctx, tx, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// SearchNodes is a substring match over titles and unit content.
func (s *SQLiteDatabase) SearchNodes(ctx context.Context, query string, limit int) ([]ilm.SearchHit, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, title, path, search_text FROM nodes
		WHERE is_deleted = 0 AND (title LIKE ? ESCAPE '\' OR search_text LIKE ? ESCAPE '\')
		ORDER BY level, title, id LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching nodes: %w", err)
	}
	defer rows.Close()

	hits := []ilm.SearchHit{}
	for rows.Next() {
		var (
			h    ilm.SearchHit
			text string
		)
		if err := rows.Scan(&h.NodeID, &h.Slug, &h.Title, &h.Path, &text); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		h.Snippet = snippet(text, query)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// snippet returns the first line of text containing query, case-insensitively.
func snippet(text, query string) string {
	q := strings.ToLower(query)
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), q) {
			return line
		}
	}
	return ""
}

// Slug index

// Reserve inserts the slug if absent. It returns true when owner holds the
// slug afterwards.
func (s *SQLiteDatabase) Reserve(ctx context.Context, slug, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO slugs (slug, owner, reserved_at) VALUES (?, ?, ?)
		ON CONFLICT (slug) DO NOTHING`, slug, owner, s.clock.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reserving slug: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	var holder string
	err = s.db.QueryRowContext(ctx, `SELECT owner FROM slugs WHERE slug = ?`, slug).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading slug owner: %w", err)
	}
	return holder == owner, nil
}

func (s *SQLiteDatabase) Release(ctx context.Context, slug string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slugs WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("releasing slug: %w", err)
	}
	return nil
}

// Operation audit log

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string, at time.Time) (*ilm.Operation, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO operations (operation, parameters, status, started_at)
		VALUES (?, ?, 'running', ?)`, operation, parameters, at)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &ilm.Operation{ID: id, Operation: operation, Parameters: parameters, Status: "running", StartedAt: at}, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`, status, at, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*ilm.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, operation, parameters, status, started_at, finished_at
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	ops := []*ilm.Operation{}
	for rows.Next() {
		var (
			op       ilm.Operation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			op.FinishedAt = &finished.Time
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

func (s *SQLiteDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM operations`).Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max operation id: %w", err)
	}
	return id, nil
}

// Path returns the database file path, empty for wrapped connections.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up to date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var (
	_ ilm.Store     = (*SQLiteDatabase)(nil)
	_ ilm.SlugIndex = (*SQLiteDatabase)(nil)
)
