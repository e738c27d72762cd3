package ilm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/segmentio/ksuid"
)

// DefaultSlugLength bounds normalized slugs.
const DefaultSlugLength = 60

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	dashes     = regexp.MustCompile(`-+`)
)

// NormalizeSlug turns a free-form title into a slug candidate. It returns the
// empty string when nothing usable remains.
func NormalizeSlug(seed string, maxLen int) string {
	s := strings.ToLower(strings.TrimSpace(seed))
	s = nonWord.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = dashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// SlugIndex reserves slugs with an atomic insert-if-absent. Reserve returns
// true when the slug was free or is already held by owner, and false without
// error when another owner holds it.
type SlugIndex interface {
	Reserve(ctx context.Context, slug, owner string) (bool, error)
	Release(ctx context.Context, slug string) error
}

// AllocatorOptions bounds the allocator's retry loops.
type AllocatorOptions struct {
	SeededAttempts   int
	UnseededAttempts int
	MaxLength        int
}

// DefaultAllocatorOptions returns the limits used when config leaves them unset.
func DefaultAllocatorOptions() AllocatorOptions {
	return AllocatorOptions{SeededAttempts: 100, UnseededAttempts: 5, MaxLength: DefaultSlugLength}
}

// SlugAllocator produces unique slugs without a central counter. Every
// attempt is a single reserve call; there is no read before the write.
type SlugAllocator struct {
	index  SlugIndex
	clock  Clock
	opts   AllocatorOptions
	logger Logger
}

// NewSlugAllocator creates an allocator. A nil index makes the allocator rely
// on time plus randomness alone.
func NewSlugAllocator(index SlugIndex, clock Clock, opts AllocatorOptions, logger Logger) *SlugAllocator {
	def := DefaultAllocatorOptions()
	if opts.SeededAttempts <= 0 {
		opts.SeededAttempts = def.SeededAttempts
	}
	if opts.UnseededAttempts <= 0 {
		opts.UnseededAttempts = def.UnseededAttempts
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = def.MaxLength
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &SlugAllocator{index: index, clock: clock, opts: opts, logger: logger}
}

// Allocate reserves a slug for owner derived from seed, or from the clock
// when seed is empty.
func (a *SlugAllocator) Allocate(ctx context.Context, seed, owner string) (string, error) {
	base := NormalizeSlug(seed, a.opts.MaxLength)

	if a.index == nil {
		return a.timeSlug(base), nil
	}

	if base == "" {
		for i := 0; i < a.opts.UnseededAttempts; i++ {
			candidate := a.timeSlug("")
			ok, err := a.index.Reserve(ctx, candidate, owner)
			if err != nil {
				return "", fmt.Errorf("reserving slug %q: %w", candidate, err)
			}
			if ok {
				return candidate, nil
			}
		}
		return "", ErrSlugExhausted
	}

	for i := 0; i < a.opts.SeededAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = base + "-" + strconv.Itoa(i)
		}
		ok, err := a.index.Reserve(ctx, candidate, owner)
		if err != nil {
			return "", fmt.Errorf("reserving slug %q: %w", candidate, err)
		}
		if ok {
			if i > 0 {
				a.logger.Debug("slug suffixed", "seed", base, "slug", candidate, "attempts", i+1)
			}
			return candidate, nil
		}
	}

	fallback := a.timeSlug(base)
	ok, err := a.index.Reserve(ctx, fallback, owner)
	if err != nil {
		return "", fmt.Errorf("reserving slug %q: %w", fallback, err)
	}
	if !ok {
		return "", ErrSlugExhausted
	}
	a.logger.Warn("slug candidates exhausted, used time suffix", "seed", base, "slug", fallback)
	return fallback, nil
}

// Claim reserves one exact slug for owner, as needed when a node is restored
// from an archive and must keep its slug. Without an index it always
// succeeds and the store's uniqueness constraint decides.
func (a *SlugAllocator) Claim(ctx context.Context, slug, owner string) (bool, error) {
	if a.index == nil {
		return true, nil
	}
	ok, err := a.index.Reserve(ctx, slug, owner)
	if err != nil {
		return false, fmt.Errorf("reserving slug %q: %w", slug, err)
	}
	return ok, nil
}

// Release frees a reservation made by Allocate or Claim.
func (a *SlugAllocator) Release(ctx context.Context, slug string) error {
	if a.index == nil {
		return nil
	}
	return a.index.Release(ctx, slug)
}

// Yield moves a reservation to holder, the node the store already keeps
// under slug.
func (a *SlugAllocator) Yield(ctx context.Context, slug, holder string) error {
	if a.index == nil {
		return nil
	}
	if err := a.index.Release(ctx, slug); err != nil {
		return err
	}
	if _, err := a.index.Reserve(ctx, slug, holder); err != nil {
		return err
	}
	return nil
}

// candidates is the number of distinct slugs Allocate can hand out for one
// seed.
func (a *SlugAllocator) candidates() int {
	return a.opts.SeededAttempts + 1
}

// timeSlug builds "<base>-<ms36>-<rand>" (or "<ms36>-<rand>" without a base).
// The random part is taken from the tail of a KSUID, which encodes its
// random payload.
func (a *SlugAllocator) timeSlug(base string) string {
	now := a.clock.Now()
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		id = ksuid.New()
	}
	enc := strings.ToLower(id.String())
	suffix := strconv.FormatInt(now.UnixMilli(), 36) + "-" + enc[len(enc)-6:]
	if base == "" {
		return suffix
	}
	if room := a.opts.MaxLength - len(suffix) - 1; room > 0 && len(base) > room {
		base = strings.TrimRight(base[:room], "-")
	}
	return base + "-" + suffix
}
