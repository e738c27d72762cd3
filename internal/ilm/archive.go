package ilm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// archiveFormat is bumped whenever the Archive layout changes incompatibly.
const archiveFormat = 1

// Archive is the portable form of one node and its complete history.
type Archive struct {
	Format     int        `json:"format"`
	ExportedAt time.Time  `json:"exportedAt"`
	Node       *Node      `json:"node"`
	Versions   []*Version `json:"versions"`
}

// ArchiveRef identifies an archive stored in the vault.
type ArchiveRef struct {
	Key       string
	NodeID    string
	Slug      string
	Versions  int
	Size      int64
	Encrypted bool
}

// ExportNode writes a node and all of its versions to the vault. Deleted
// nodes can be exported; their history is kept. When enc is non-nil the
// archive is encrypted before upload. The vault key is the SHA-256 of the
// stored bytes.
func (s *ILMService) ExportNode(ctx context.Context, nodeID string, enc Encryptor) (ref *ArchiveRef, err error) {
	ctx, span := startSpan(ctx, "ilm.ExportNode", attribute.String("node_id", nodeID))
	defer func() { finishSpan(span, err) }()

	if s.vault == nil {
		return nil, fmt.Errorf("exporting node: no vault configured")
	}

	node, err := s.store.FindNodeByID(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("finding node: %w", err)
	}
	if node == nil {
		return nil, notFound("node %q", nodeID)
	}

	versions, err := s.store.ListVersions(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	data, err := json.Marshal(&Archive{
		Format:     archiveFormat,
		ExportedAt: s.clock.Now().UTC(),
		Node:       node,
		Versions:   versions,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding archive: %w", err)
	}

	if enc != nil {
		var buf bytes.Buffer
		if err := enc.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return nil, fmt.Errorf("encrypting archive: %w", err)
		}
		data = buf.Bytes()
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if err := s.vault.PutArchive(key, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("uploading archive: %w", err)
	}

	s.logger.Info("node exported", "node", node.ID, "slug", node.Slug, "key", key, "versions", len(versions))
	return &ArchiveRef{
		Key:       key,
		NodeID:    node.ID,
		Slug:      node.Slug,
		Versions:  len(versions),
		Size:      int64(len(data)),
		Encrypted: enc != nil,
	}, nil
}

// ImportNode restores a node and its history from an archive. The node keeps
// its id, slug and versions; its path and level are recomputed under the
// parent as it exists now. dec is required for encrypted archives.
func (s *ILMService) ImportNode(ctx context.Context, key string, dec DecryptionContext) (node *Node, err error) {
	ctx, span := startSpan(ctx, "ilm.ImportNode", attribute.String("key", key))
	defer func() { finishSpan(span, err) }()

	if s.vault == nil {
		return nil, fmt.Errorf("importing node: no vault configured")
	}

	var raw bytes.Buffer
	if err := s.vault.GetArchive(key, &raw); err != nil {
		return nil, fmt.Errorf("downloading archive: %w", err)
	}

	data := raw.Bytes()
	if dec != nil {
		var plain bytes.Buffer
		if err := dec.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("decrypting archive: %w", err)
		}
		data = plain.Bytes()
	}

	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, invalid("archive %s is not readable (encrypted archives need a passphrase): %v", key, err)
	}
	if err := checkArchive(&a); err != nil {
		return nil, err
	}
	node = a.Node

	existing, err := s.store.FindNodeByID(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("checking existing node: %w", err)
	}
	if existing != nil {
		return nil, constraint("node %s already exists", node.ID)
	}

	var parent *Node
	if node.ParentID != "" {
		parent, err = s.ResolveParent(ctx, node.ParentID)
		if err != nil {
			return nil, err
		}
	}

	ok, err := s.slugs.Claim(ctx, node.Slug, node.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, constraint("slug %q is held by another node", node.Slug)
	}

	node.References, node.Debates = ExtractIndexes(node.LiveContent)
	node.Revision = 1

	for attempt := 1; ; attempt++ {
		node.Level, node.Path = ComputePath(parent, node.Slug)
		err = s.store.ImportNode(ctx, node, a.Versions)
		if err == nil {
			break
		}
		if errors.Is(err, ErrRevisionConflict) && parent != nil && attempt < s.opts.CommitRetries {
			s.logger.Debug("parent moved during import, retrying", "parent", parent.ID, "attempt", attempt)
			if parent, err = s.ResolveParent(ctx, parent.ID); err == nil {
				continue
			}
		}

		s.releaseSlug(ctx, node.Slug)
		switch {
		case errors.Is(err, ErrSlugTaken):
			return nil, constraint("slug %q is taken", node.Slug)
		case errors.Is(err, ErrRevisionConflict):
			return nil, fmt.Errorf("%w: parent of %s kept moving", ErrConcurrentModification, node.ID)
		}
		return nil, fmt.Errorf("importing node: %w", err)
	}

	s.logger.Info("node imported", "node", node.ID, "slug", node.Slug, "path", node.Path, "versions", len(a.Versions))
	if !node.IsDeleted {
		s.index(ctx, node)
	}
	return node, nil
}

// checkArchive verifies that an archive describes a consistent history:
// sequential version ids, valid snapshots and live content equal to the last
// snapshot.
func checkArchive(a *Archive) error {
	if a.Format != archiveFormat {
		return invalid("unsupported archive format %d", a.Format)
	}
	if a.Node == nil || a.Node.ID == "" || a.Node.Slug == "" {
		return invalid("archive has no node")
	}
	if len(a.Versions) != a.Node.VersionCount {
		return invalid("archive has %d versions, node expects %d", len(a.Versions), a.Node.VersionCount)
	}
	for i, v := range a.Versions {
		if v.VersionID != i+1 || v.NodeID != a.Node.ID {
			return invalid("archive version %d is out of sequence", i+1)
		}
		if err := ValidateBlocks(v.ContentBlocks); err != nil {
			return fmt.Errorf("archive version %d: %w", v.VersionID, err)
		}
	}

	var last []Block
	if n := len(a.Versions); n > 0 {
		last = a.Versions[n-1].ContentBlocks
	}
	if len(last) != 0 || len(a.Node.LiveContent) != 0 {
		if !BlocksEqual(a.Node.LiveContent, last) {
			return invalid("archive live content differs from its last version")
		}
	}
	return nil
}
