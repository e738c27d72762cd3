package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ilmhub/internal/ilm"
)

// FileSystemVault stores archives and snapshots as files:
//
//	<root>/
//	  archives/
//	    <key>            (node archives, named by SHA-256)
//	  snapshots/
//	    <hostID>.db      (per-host store snapshots)
//	    <hostID>.version
type FileSystemVault struct {
	name        string
	root        string
	archiveDir  string
	snapshotDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	archiveDir := filepath.Join(root, "archives")
	snapshotDir := filepath.Join(root, "snapshots")

	for _, dir := range []string{archiveDir, snapshotDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating vault directory: %w", err)
		}
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		archiveDir:  archiveDir,
		snapshotDir: snapshotDir,
	}, nil
}

// checkKey rejects keys that would escape the archive directory.
func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: invalid archive key %q", ilm.ErrValidationFailure, key)
	}
	return nil
}

// PutArchive stores an archive. An existing archive with the same key is
// kept, since the key is the checksum of its content.
func (v *FileSystemVault) PutArchive(key string, r io.Reader, size int64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	dest := filepath.Join(v.archiveDir, key)

	if _, err := os.Stat(dest); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return writeFile(dest, r, size)
}

// GetArchive writes the archive stored under key to w.
func (v *FileSystemVault) GetArchive(key string, w io.Writer) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return readFile(filepath.Join(v.archiveDir, key), w, "archive "+key)
}

// PutSnapshot stores a host snapshot along with its version marker. The
// marker is written after the snapshot so a reader never sees a version
// newer than the data.
func (v *FileSystemVault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	if err := writeFile(filepath.Join(v.snapshotDir, hostID+".db"), r, size); err != nil {
		return err
	}
	marker := strconv.FormatInt(version, 10)
	return writeFile(filepath.Join(v.snapshotDir, hostID+".version"), strings.NewReader(marker), int64(len(marker)))
}

// GetSnapshot writes the host's snapshot to w.
func (v *FileSystemVault) GetSnapshot(hostID string, w io.Writer) error {
	return readFile(filepath.Join(v.snapshotDir, hostID+".db"), w, "snapshot for host "+hostID)
}

// GetSnapshotVersion returns 0 when no version marker exists.
func (v *FileSystemVault) GetSnapshotVersion(hostID string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(v.snapshotDir, hostID+".version"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.archiveDir, v.snapshotDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes r to destPath through a temp file and rename.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return nil
}

func readFile(srcPath string, w io.Writer, what string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ilm.ErrNotFound, what)
		}
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return nil
}

var _ ilm.Vault = (*FileSystemVault)(nil)
