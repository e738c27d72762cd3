package ilm

import "io"

// Vault stores node archives and store snapshots. All operations stream so
// that large archives are never held in memory twice.
type Vault interface {
	// PutArchive stores an archive under key (its SHA-256 checksum).
	// Storing the same key twice is safe.
	PutArchive(key string, r io.Reader, size int64) error

	// GetArchive writes the archive stored under key to w.
	GetArchive(key string, w io.Writer) error

	// PutSnapshot stores the store snapshot of a host with a version marker.
	PutSnapshot(hostID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the latest store snapshot of a host to w.
	GetSnapshot(hostID string, w io.Writer) error

	// GetSnapshotVersion returns the version of the host's snapshot, or 0 if
	// none has been stored.
	GetSnapshotVersion(hostID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
