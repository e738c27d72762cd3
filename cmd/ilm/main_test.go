package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"ilmhub/internal/encryption"
	"ilmhub/internal/ilm"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("getting node: %w", ilm.ErrNotFound), want: 3},
		{name: "validation", err: ilm.ErrValidationFailure, want: 4},
		{name: "constraint", err: ilm.ErrSlugImmutable, want: 4},
		{name: "concurrent", err: fmt.Errorf("committing: %w", ilm.ErrConcurrentModification), want: 5},
		{name: "slug exhausted is retryable", err: fmt.Errorf("allocating slug: %w", ilm.ErrSlugExhausted), want: 5},
		{name: "other", err: errors.New("disk full"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		prefix string
	}{
		{name: "slug exhausted", err: ilm.ErrSlugExhausted, prefix: "no free slug for this title"},
		{name: "constraint", err: ilm.ErrSlugImmutable, prefix: "not allowed: "},
		{name: "not found", err: ilm.ErrNotFound, prefix: "not found: "},
		{name: "concurrent", err: ilm.ErrConcurrentModification, prefix: "node changed concurrently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.err); !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("describe() = %q, want prefix %q", got, tt.prefix)
			}
		})
	}

	t.Run("missing keys", func(t *testing.T) {
		got := describe(fmt.Errorf("loading identity: %w", encryption.ErrNotConfigured))
		if !strings.Contains(got, "ilm keys setup") {
			t.Errorf("describe() = %q, want a keys setup hint", got)
		}
	})
}
