package ilm

import (
	"slices"
	"testing"
)

func TestExtractIndexes(t *testing.T) {
	spans := []Span{
		TextSpan("intro "),
		ReferenceSpan("Muslim", "ref-b"),
		DebateSpan("d", "deb-2", StanceSupporting),
		ReferenceSpan("Bukhari", "ref-a"),
		ReferenceSpan("Bukhari again", "ref-a"),
		DebateSpan("d", "deb-1", StanceOpposing),
	}

	refs, debates := ExtractIndexes([]Block{para("b1", NewUnit("u1", spans...))})
	if !slices.Equal(refs, []string{"ref-a", "ref-b"}) {
		t.Errorf("references = %v, want [ref-a ref-b]", refs)
	}
	if !slices.Equal(debates, []string{"deb-1", "deb-2"}) {
		t.Errorf("debates = %v, want [deb-1 deb-2]", debates)
	}

	t.Run("span order does not matter", func(t *testing.T) {
		reversed := slices.Clone(spans)
		slices.Reverse(reversed)
		r2, d2 := ExtractIndexes([]Block{para("b9", NewUnit("u9", reversed...))})
		if !slices.Equal(refs, r2) || !slices.Equal(debates, d2) {
			t.Errorf("reversed spans gave %v %v, want %v %v", r2, d2, refs, debates)
		}
	})

	t.Run("no embedded ids", func(t *testing.T) {
		r, d := ExtractIndexes([]Block{para("b1", text("u1", "plain"))})
		if r == nil || d == nil || len(r) != 0 || len(d) != 0 {
			t.Errorf("ExtractIndexes() = %v, %v, want empty non-nil slices", r, d)
		}
	})
}
