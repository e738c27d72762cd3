package slugindex

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"ilmhub/internal/config"
	"ilmhub/internal/ilm"
)

func newTestRedisIndex(t *testing.T) (*RedisIndex, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	idx, err := NewRedisIndex("redis://"+s.Addr(), "test:")
	if err != nil {
		t.Fatalf("NewRedisIndex() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx, s
}

// indexes returns every backend under test, keyed by name.
func indexes(t *testing.T) map[string]ilm.SlugIndex {
	t.Helper()
	redisIdx, _ := newTestRedisIndex(t)
	return map[string]ilm.SlugIndex{
		"redis":  redisIdx,
		"memory": NewMemoryIndex(),
	}
}

func TestSlugIndex_Reserve(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := idx.Reserve(ctx, "tawheed", "node-1")
			if err != nil || !ok {
				t.Fatalf("Reserve() = %v, %v; want true, nil", ok, err)
			}

			ok, err = idx.Reserve(ctx, "tawheed", "node-2")
			if err != nil {
				t.Fatalf("Reserve() error = %v", err)
			}
			if ok {
				t.Error("Reserve() by another owner = true, want false")
			}

			ok, err = idx.Reserve(ctx, "tawheed", "node-1")
			if err != nil || !ok {
				t.Errorf("Reserve() by same owner = %v, %v; want true, nil", ok, err)
			}

			if err := idx.Release(ctx, "tawheed"); err != nil {
				t.Fatalf("Release() error = %v", err)
			}
			ok, err = idx.Reserve(ctx, "tawheed", "node-2")
			if err != nil || !ok {
				t.Errorf("Reserve() after release = %v, %v; want true, nil", ok, err)
			}
		})
	}
}

func TestSlugIndex_ReleaseUnknown(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Release(context.Background(), "never-reserved"); err != nil {
				t.Errorf("Release() error = %v", err)
			}
		})
	}
}

func TestSlugIndex_ConcurrentReserve(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			const n = 20
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(owner string) {
					defer wg.Done()
					ok, err := idx.Reserve(context.Background(), "contested", owner)
					if err != nil {
						t.Errorf("Reserve() error = %v", err)
						return
					}
					if ok {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}(fmt.Sprintf("node-%d", i))
			}
			wg.Wait()

			if wins != 1 {
				t.Errorf("%d owners reserved the same slug, want 1", wins)
			}
		})
	}
}

func TestRedisIndex_KeyPrefix(t *testing.T) {
	idx, s := newTestRedisIndex(t)

	if _, err := idx.Reserve(context.Background(), "salah", "node-7"); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}

	got, err := s.Get("test:salah")
	if err != nil {
		t.Fatalf("miniredis Get() error = %v", err)
	}
	if got != "node-7" {
		t.Errorf("stored owner = %q, want %q", got, "node-7")
	}
}

func TestNewRedisIndex_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	if _, err := NewRedisIndex("redis://"+addr, ""); err == nil {
		t.Error("NewRedisIndex() expected error for closed server")
	}
}

func TestNewSlugIndexFromConfig(t *testing.T) {
	store := NewMemoryIndex()
	s := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.SlugIndexConfig
		wantNil bool
		wantErr bool
	}{
		{name: "database uses store", cfg: config.SlugIndexConfig{Type: "database"}},
		{name: "empty uses store", cfg: config.SlugIndexConfig{}},
		{name: "memory", cfg: config.SlugIndexConfig{Type: "memory"}},
		{name: "redis", cfg: config.SlugIndexConfig{Type: "redis", RedisURL: "redis://" + s.Addr()}},
		{name: "redis without url", cfg: config.SlugIndexConfig{Type: "redis"}, wantNil: true, wantErr: true},
		{name: "none", cfg: config.SlugIndexConfig{Type: "none"}, wantNil: true},
		{name: "unknown", cfg: config.SlugIndexConfig{Type: "etcd"}, wantNil: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSlugIndexFromConfig(tt.cfg, store)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSlugIndexFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("NewSlugIndexFromConfig() nil = %v, wantNil %v", got == nil, tt.wantNil)
			}
			if closer, ok := got.(interface{ Close() error }); ok {
				closer.Close()
			}
		})
	}

	t.Run("database returns the store itself", func(t *testing.T) {
		got, _ := NewSlugIndexFromConfig(config.SlugIndexConfig{Type: "database"}, store)
		if got != ilm.SlugIndex(store) {
			t.Error("database slug index should be the store")
		}
	})
}
