package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/segmentio/ksuid"

	"ilmhub/internal/config"
	"ilmhub/internal/database"
	"ilmhub/internal/encryption"
	"ilmhub/internal/ilm"
	"ilmhub/internal/search"
	"ilmhub/internal/slugindex"
	"ilmhub/internal/telemetry"
	"ilmhub/internal/vault"
)

// Version is reported to the trace backend.
const Version = "0.1.0"

// ILMApp is the application layer between the CLI and ILMService. It builds
// every dependency from config, resolves the slugs and ids the CLI passes in,
// records mutating commands in the operation log and snapshots the store to
// the vault on Close.
type ILMApp struct {
	cfg       *config.Config
	db        database.Database
	vault     ilm.Vault
	encryptor ilm.Encryptor
	service   *ilm.ILMService
	logger    ilm.Logger
	op        *Operation
	logFile   *os.File
	closers   []func()
}

// Options adjusts how NewILMApp wires the application.
type Options struct {
	Verbose bool
}

// NewILMApp creates a fully wired ILMApp from the given config. operation
// names the CLI command being run; params are recorded with it. The caller
// must call Close when done.
func NewILMApp(ctx context.Context, cfg *config.Config, opts Options, operation string, params ...string) (_ *ILMApp, err error) {
	a := &ILMApp{cfg: cfg, op: NewOperation(operation, params...)}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	slogger, logFile, err := newLogger(cfg.LogDir, ksuid.New().String(), opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a.logFile = logFile
	a.logger = &slogAdapter{l: slogger}

	shutdownTracing, err := telemetry.Setup(cfg.Telemetry, Version)
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			a.logger.Warn("flushing traces failed", "error", err)
		}
	})

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	clock := ilm.RealClock{}
	db.SetClock(clock)

	if err := db.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	if len(cfg.Vaults) > 0 {
		v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
		a.vault = v

		if err := a.checkSnapshotVersion(ctx); err != nil {
			return nil, err
		}
	}

	slugs, err := slugindex.NewSlugIndexFromConfig(cfg.SlugIndex, db)
	if err != nil {
		return nil, fmt.Errorf("creating slug index: %w", err)
	}
	if c, ok := slugs.(io.Closer); ok && slugs != ilm.SlugIndex(db) {
		a.closers = append(a.closers, func() { c.Close() })
	}

	indexer, shutdownSearch, err := search.NewIndexerFromConfig(cfg.Search, a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	a.closers = append(a.closers, shutdownSearch)

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	svcOpts, err := serviceOptions(cfg)
	if err != nil {
		return nil, err
	}

	a.service = ilm.NewILMService(db, slugs, indexer, a.vault, a.logger, clock, ilm.KSUIDGenerator{}, svcOpts)
	return a, nil
}

// serviceOptions maps config sections onto service options.
func serviceOptions(cfg *config.Config) (ilm.Options, error) {
	opts := ilm.DefaultOptions()

	mode, err := ilm.ParseDiffMode(cfg.Versioning.DiffMode)
	if err != nil {
		return opts, err
	}
	opts.DiffMode = mode
	if cfg.Versioning.CommitRetries > 0 {
		opts.CommitRetries = cfg.Versioning.CommitRetries
	}
	if cfg.Allocator.SeededAttempts > 0 {
		opts.Allocator.SeededAttempts = cfg.Allocator.SeededAttempts
	}
	if cfg.Allocator.UnseededAttempts > 0 {
		opts.Allocator.UnseededAttempts = cfg.Allocator.UnseededAttempts
	}
	if cfg.Allocator.MaxLength > 0 {
		opts.Allocator.MaxLength = cfg.Allocator.MaxLength
	}
	opts.AllowSubtreeMoves = cfg.Hierarchy.SubtreeMovesAllowed()
	return opts, nil
}

// checkSnapshotVersion refuses to run against a store that is older than
// the last snapshot another run uploaded.
func (a *ILMApp) checkSnapshotVersion(ctx context.Context) error {
	remote, err := a.vault.GetSnapshotVersion(a.cfg.HostID)
	if err != nil {
		return fmt.Errorf("checking remote snapshot version: %w", err)
	}
	local, err := a.db.MaxOperationID(ctx)
	if err != nil {
		return fmt.Errorf("checking local operation log: %w", err)
	}
	if remote > local {
		return fmt.Errorf("local database is behind the vault snapshot (local=%d, remote=%d): restore from vault or re-initialize", local, remote)
	}
	return nil
}

// Service exposes the underlying service for callers that need operations
// the app does not wrap.
func (a *ILMApp) Service() *ilm.ILMService {
	return a.service
}

// persistOperation saves the operation to the store. Only mutating commands
// call it.
func (a *ILMApp) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	op, err := a.db.CreateOperation(ctx, a.op.Operation, a.op.Parameters, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = op.ID
	return nil
}

// resolve maps a slug or id to a live node id. An empty key is the root.
func (a *ILMApp) resolve(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	n, err := a.service.GetNode(ctx, key)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// CreateNode creates a node under the node named by parentKey (slug or id,
// empty for a root).
func (a *ILMApp) CreateNode(ctx context.Context, parentKey string, req ilm.NewNode) (*ilm.Node, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	parentID, err := a.resolve(ctx, parentKey)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	req.ParentID = parentID
	n, err := a.service.CreateNode(ctx, req)
	return n, a.op.Fail(err)
}

// GetNode looks a node up by slug or id and counts the view.
func (a *ILMApp) GetNode(ctx context.Context, key string) (*ilm.Node, error) {
	n, err := a.service.GetNode(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := a.service.RecordView(ctx, n.ID); err != nil {
		a.logger.Warn("recording view failed", "node", n.ID, "error", err)
	}
	return n, nil
}

func (a *ILMApp) Children(ctx context.Context, key string) ([]*ilm.Node, error) {
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.service.Children(ctx, id)
}

func (a *ILMApp) Subtree(ctx context.Context, path string) ([]*ilm.Node, error) {
	return a.service.Subtree(ctx, path)
}

func (a *ILMApp) Breadcrumb(ctx context.Context, key string) ([]ilm.Crumb, error) {
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.service.Breadcrumb(ctx, id)
}

func (a *ILMApp) KnowledgeTree(ctx context.Context) ([]*ilm.TreeNode, error) {
	return a.service.KnowledgeTree(ctx)
}

// UpdateMetadata changes title, summary or status.
func (a *ILMApp) UpdateMetadata(ctx context.Context, key string, upd ilm.MetadataUpdate) (*ilm.Node, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	n, err := a.service.UpdateMetadata(ctx, id, upd)
	return n, a.op.Fail(err)
}

func (a *ILMApp) DeleteNode(ctx context.Context, key, actor string) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	id, err := a.resolve(ctx, key)
	if err != nil {
		return a.op.Fail(err)
	}
	return a.op.Fail(a.service.DeleteNode(ctx, id, actor))
}

// Move reparents a node; an empty parentKey makes it a root.
func (a *ILMApp) Move(ctx context.Context, key, parentKey, actor string) (*ilm.Node, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	parentID, err := a.resolve(ctx, parentKey)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	n, err := a.service.Reparent(ctx, id, parentID, actor)
	return n, a.op.Fail(err)
}

func (a *ILMApp) VerifyHierarchy(ctx context.Context, key string) error {
	id, err := a.resolve(ctx, key)
	if err != nil {
		return err
	}
	return a.service.VerifyHierarchy(ctx, id)
}

// CommitContent reads content (JSON blocks or plain text) from r and
// commits it as a new version.
func (a *ILMApp) CommitContent(ctx context.Context, key string, r io.Reader, actor string) (*ilm.Node, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, a.op.Fail(fmt.Errorf("reading content: %w", err))
	}
	blocks, err := ParseContent(data)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	n, err := a.service.CommitContent(ctx, id, blocks, actor)
	return n, a.op.Fail(err)
}

func (a *ILMApp) ListVersions(ctx context.Context, key string) ([]*ilm.Version, error) {
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.service.ListVersions(ctx, id)
}

// GetVersion accepts "3" or "v3".
func (a *ILMApp) GetVersion(ctx context.Context, key, label string) (*ilm.Version, error) {
	vid, err := ilm.ParseVersionLabel(label)
	if err != nil {
		return nil, err
	}
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.service.GetVersion(ctx, id, vid)
}

func (a *ILMApp) Revert(ctx context.Context, key, label, actor string) (*ilm.Node, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	vid, err := ilm.ParseVersionLabel(label)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	id, err := a.resolve(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	n, err := a.service.Revert(ctx, id, vid, actor)
	return n, a.op.Fail(err)
}

func (a *ILMApp) Search(ctx context.Context, query string, limit int) ([]ilm.SearchHit, error) {
	return a.service.Search(ctx, query, limit)
}

func (a *ILMApp) Reindex(ctx context.Context) (int, error) {
	return a.service.Reindex(ctx)
}

// SetupEncryption creates the archive key pair.
func (a *ILMApp) SetupEncryption(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// Export archives a node to the vault, encrypted unless encryption is "none".
func (a *ILMApp) Export(ctx context.Context, key string) (*ilm.ArchiveRef, error) {
	n, err := a.service.GetNode(ctx, key)
	if err != nil && !errors.Is(err, ilm.ErrNotFound) {
		return nil, err
	}
	id := key
	if n != nil {
		id = n.ID
	}

	var enc ilm.Encryptor
	if a.cfg.Encryption.Type != "none" {
		if !a.encryptor.IsConfigured() {
			return nil, encryption.ErrNotConfigured
		}
		enc = a.encryptor
	}
	return a.service.ExportNode(ctx, id, enc)
}

// Import restores an archive. passphrase unlocks the private key; it is
// ignored when encryption is "none".
func (a *ILMApp) Import(ctx context.Context, archiveKey, passphrase, actor string) (*ilm.Node, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}

	var dec ilm.DecryptionContext
	if a.cfg.Encryption.Type != "none" {
		var err error
		dec, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, a.op.Fail(fmt.Errorf("unlocking private key: %w", err))
		}
	}

	n, err := a.service.ImportNode(ctx, archiveKey, dec)
	if err == nil {
		a.logger.Info("archive restored", "key", archiveKey, "node", n.ID, "actor", actor)
	}
	return n, a.op.Fail(err)
}

func (a *ILMApp) History(ctx context.Context, limit int) ([]*ilm.Operation, error) {
	return a.service.History(ctx, limit)
}

// Close finalizes the operation and releases every resource. A persisted
// operation is finished in the log, and the store is snapshotted to the
// vault with the operation id as version.
func (a *ILMApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.op.Persisted() && a.db != nil {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status, time.Now().UTC()); err != nil {
			keep(fmt.Errorf("finishing operation: %w", err))
		}
		if a.vault != nil {
			keep(a.uploadSnapshot())
		}
	}

	a.release()
	return firstErr
}

// release runs the closers in reverse order and closes the store and log.
func (a *ILMApp) release() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil

	if a.db != nil {
		if err := a.db.Close(); err != nil && a.logger != nil {
			a.logger.Warn("closing database failed", "error", err)
		}
		a.db = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

// uploadSnapshot writes a store snapshot to a temp file and uploads it.
// Stores without file snapshots are skipped.
func (a *ILMApp) uploadSnapshot() error {
	tmp, err := os.CreateTemp("", "ilm-db-snapshot-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.db.BackupTo(tmpPath); err != nil {
		if errors.Is(err, ilm.ErrUnsupported) {
			a.logger.Debug("store has no file snapshots, skipping upload")
			return nil
		}
		return fmt.Errorf("snapshotting database: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(a.cfg.HostID, f, info.Size(), a.op.ID); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}
	a.logger.Info("snapshot uploaded", "host", a.cfg.HostID, "version", a.op.ID, "bytes", info.Size())
	return nil
}
