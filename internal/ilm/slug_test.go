package ilm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = fixedClock{time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}

// mapIndex is a SlugIndex over a map. full makes every Reserve fail.
type mapIndex struct {
	mu    sync.Mutex
	slugs map[string]string
	full  bool
	calls int
}

func newMapIndex() *mapIndex { return &mapIndex{slugs: map[string]string{}} }

func (m *mapIndex) Reserve(ctx context.Context, slug, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.full {
		return false, nil
	}
	if holder, ok := m.slugs[slug]; ok {
		return holder == owner, nil
	}
	m.slugs[slug] = owner
	return true, nil
}

func (m *mapIndex) Release(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slugs, slug)
	return nil
}

type brokenIndex struct{}

func (brokenIndex) Reserve(context.Context, string, string) (bool, error) {
	return false, errors.New("connection refused")
}
func (brokenIndex) Release(context.Context, string) error { return nil }

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		seed string
		max  int
		want string
	}{
		{"Fiqh", 60, "fiqh"},
		{"  Salat al-Jumu'ah  ", 60, "salat-al-jumuah"},
		{"Zakat & Sadaqah", 60, "zakat-sadaqah"},
		{"a -- b", 60, "a-b"},
		{"---", 60, ""},
		{"!!!", 60, ""},
		{"", 60, ""},
		{"snake_case stays", 60, "snake_case-stays"},
		{"one two three", 7, "one-two"},
	}
	for _, tt := range tests {
		t.Run(tt.seed, func(t *testing.T) {
			if got := NormalizeSlug(tt.seed, tt.max); got != tt.want {
				t.Errorf("NormalizeSlug(%q, %d) = %q, want %q", tt.seed, tt.max, got, tt.want)
			}
		})
	}
}

func TestSlugAllocator_Allocate(t *testing.T) {
	ctx := context.Background()

	t.Run("suffixes on collision", func(t *testing.T) {
		idx := newMapIndex()
		a := NewSlugAllocator(idx, testNow, AllocatorOptions{}, nil)

		for i, want := range []string{"tawheed", "tawheed-1", "tawheed-2"} {
			got, err := a.Allocate(ctx, "Tawheed", "owner-"+strconv.Itoa(i))
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			if got != want {
				t.Errorf("Allocate() #%d = %q, want %q", i, got, want)
			}
		}
	})

	t.Run("same owner gets its own slug back", func(t *testing.T) {
		idx := newMapIndex()
		a := NewSlugAllocator(idx, testNow, AllocatorOptions{}, nil)

		first, _ := a.Allocate(ctx, "Hajj", "node-1")
		second, err := a.Allocate(ctx, "Hajj", "node-1")
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if first != second {
			t.Errorf("retry for the same owner = %q, want %q", second, first)
		}
	})

	t.Run("falls back to a time suffix", func(t *testing.T) {
		idx := newMapIndex()
		a := NewSlugAllocator(idx, testNow, AllocatorOptions{SeededAttempts: 3}, nil)
		for _, s := range []string{"sawm", "sawm-1", "sawm-2"} {
			idx.slugs[s] = "other"
		}

		got, err := a.Allocate(ctx, "Sawm", "node-1")
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		prefix := "sawm-" + strconv.FormatInt(testNow.t.UnixMilli(), 36) + "-"
		if !strings.HasPrefix(got, prefix) || len(got) != len(prefix)+6 {
			t.Errorf("Allocate() = %q, want %s<6 chars>", got, prefix)
		}
		if idx.calls != 4 {
			t.Errorf("Reserve called %d times, want 4", idx.calls)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		idx := newMapIndex()
		idx.full = true
		a := NewSlugAllocator(idx, testNow, AllocatorOptions{SeededAttempts: 5}, nil)

		_, err := a.Allocate(ctx, "Sawm", "node-1")
		if !errors.Is(err, ErrSlugExhausted) || !errors.Is(err, ErrConstraintViolation) {
			t.Errorf("Allocate() error = %v, want ErrSlugExhausted", err)
		}
		if !Retryable(err) {
			t.Error("Retryable(ErrSlugExhausted) = false")
		}
		if idx.calls != 6 {
			t.Errorf("Reserve called %d times, want 6", idx.calls)
		}
	})

	t.Run("unseeded uses fewer attempts", func(t *testing.T) {
		idx := newMapIndex()
		idx.full = true
		a := NewSlugAllocator(idx, testNow, AllocatorOptions{}, nil)

		if _, err := a.Allocate(ctx, "???", "node-1"); !errors.Is(err, ErrSlugExhausted) {
			t.Errorf("Allocate() error = %v, want ErrSlugExhausted", err)
		}
		if idx.calls != 5 {
			t.Errorf("Reserve called %d times, want 5", idx.calls)
		}
	})

	t.Run("without an index", func(t *testing.T) {
		a := NewSlugAllocator(nil, testNow, AllocatorOptions{}, nil)

		x, _ := a.Allocate(ctx, "Hajj", "node-1")
		y, _ := a.Allocate(ctx, "Hajj", "node-2")
		if x == y {
			t.Errorf("two allocations returned %q", x)
		}
		if !strings.HasPrefix(x, "hajj-") {
			t.Errorf("Allocate() = %q, want hajj- prefix", x)
		}
	})

	t.Run("index errors surface", func(t *testing.T) {
		a := NewSlugAllocator(brokenIndex{}, testNow, AllocatorOptions{}, nil)
		if _, err := a.Allocate(ctx, "Hajj", "node-1"); err == nil || errors.Is(err, ErrSlugExhausted) {
			t.Errorf("Allocate() error = %v, want index error", err)
		}
	})

	t.Run("time slug respects max length", func(t *testing.T) {
		a := NewSlugAllocator(nil, testNow, AllocatorOptions{MaxLength: 24}, nil)
		got, _ := a.Allocate(ctx, "a very long title that keeps going", "node-1")
		if len(got) > 24 {
			t.Errorf("len(%q) = %d, want <= 24", got, len(got))
		}
	})
}

func TestSlugAllocator_Claim(t *testing.T) {
	ctx := context.Background()
	idx := newMapIndex()
	idx.slugs["wudu"] = "node-1"
	a := NewSlugAllocator(idx, testNow, AllocatorOptions{}, nil)

	if ok, err := a.Claim(ctx, "wudu", "node-1"); err != nil || !ok {
		t.Errorf("Claim() by holder = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := a.Claim(ctx, "wudu", "node-2"); err != nil || ok {
		t.Errorf("Claim() by other = (%v, %v), want (false, nil)", ok, err)
	}
	if err := a.Release(ctx, "wudu"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, _ := a.Claim(ctx, "wudu", "node-2"); !ok {
		t.Error("Claim() after Release = false")
	}
}
