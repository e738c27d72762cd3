package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"ilmhub/internal/ilm"
)

// MemoryVault keeps archives and snapshots in memory. It is used by tests
// and by the memory database profile. Safe for concurrent use.
type MemoryVault struct {
	name             string
	archives         map[string][]byte // key -> archive
	snapshots        map[string][]byte // hostID -> snapshot
	snapshotVersions map[string]int64  // hostID -> version
	mu               sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:             name,
		archives:         make(map[string][]byte),
		snapshots:        make(map[string][]byte),
		snapshotVersions: make(map[string]int64),
	}
}

func readExactly(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

// PutArchive stores an archive. Storing the same key twice is safe.
func (m *MemoryVault) PutArchive(key string, r io.Reader, size int64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[key] = data
	return nil
}

// GetArchive writes the archive stored under key to w.
func (m *MemoryVault) GetArchive(key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.archives[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: archive %s", ilm.ErrNotFound, key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

// PutSnapshot stores the store snapshot of a host.
func (m *MemoryVault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[hostID] = data
	m.snapshotVersions[hostID] = version
	return nil
}

// GetSnapshot writes the latest snapshot of a host to w.
func (m *MemoryVault) GetSnapshot(hostID string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.snapshots[hostID]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: snapshot for host %s", ilm.ErrNotFound, hostID)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// GetSnapshotVersion returns 0 when the host has no snapshot.
func (m *MemoryVault) GetSnapshotVersion(hostID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotVersions[hostID], nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ ilm.Vault = (*MemoryVault)(nil)
