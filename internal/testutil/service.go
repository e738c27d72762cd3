package testutil

import (
	"testing"

	"ilmhub/internal/database"
	"ilmhub/internal/ilm"
	"ilmhub/internal/vault"
)

// Harness bundles a service with the fakes behind it so tests can inspect
// state directly.
type Harness struct {
	Service *ilm.ILMService
	Store   *database.SQLiteDatabase
	Vault   *vault.MemoryVault
	Clock   *StubClock
	IDs     *StubIDGenerator
}

// NewHarness wires an ILMService over a migrated in-memory store that also
// acts as slug index, a memory vault, a fixed clock and sequential ids.
// indexer may be nil.
func NewHarness(t *testing.T, indexer ilm.Indexer, opts ilm.Options) *Harness {
	t.Helper()
	return newHarness(NewTestStore(t), indexer, opts)
}

// NewFileHarness is NewHarness over a file-backed store, for tests that need
// writes from several goroutines to hit the database concurrently.
func NewFileHarness(t *testing.T, indexer ilm.Indexer, opts ilm.Options) *Harness {
	t.Helper()
	return newHarness(NewFileTestStore(t), indexer, opts)
}

func newHarness(store *database.SQLiteDatabase, indexer ilm.Indexer, opts ilm.Options) *Harness {
	h := &Harness{
		Store: store,
		Vault: NewTestVault(),
		Clock: FixedClock(),
		IDs:   NewStubIDGenerator(),
	}
	h.Store.SetClock(h.Clock)
	h.Service = ilm.NewILMService(h.Store, h.Store, indexer, h.Vault, nil, h.Clock, h.IDs, opts)
	return h
}
