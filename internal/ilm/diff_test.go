package ilm

import (
	"testing"
)

func para(id string, units ...Unit) Block {
	return Block{ID: id, Type: BlockParagraph, Units: units}
}

func text(id, s string) Unit {
	return NewUnit(id, TextSpan(s))
}

func TestParseDiffMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DiffMode
		wantErr bool
	}{
		{"", DiffPositional, false},
		{"positional", DiffPositional, false},
		{"aligned", DiffAligned, false},
		{"fuzzy", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDiffMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDiffMode(%q) = (%q, %v), want %q (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestDiff_Positional(t *testing.T) {
	t.Run("identical content", func(t *testing.T) {
		blocks := []Block{para("b1", text("u1", "same"))}
		got := Diff(DiffPositional, blocks, CloneBlocks(blocks))
		if got == nil || len(got) != 0 {
			t.Errorf("Diff() = %v, want empty non-nil", got)
		}
	})

	t.Run("span text change", func(t *testing.T) {
		old := []Block{para("b1", NewUnit("u1", TextSpan("a"), TextSpan("b"), TextSpan("foo")))}
		cur := []Block{para("b1", NewUnit("u1", TextSpan("a"), TextSpan("b"), TextSpan("bar")))}

		got := Diff(DiffPositional, old, cur)
		if len(got) != 1 {
			t.Fatalf("len(Diff()) = %d, want 1", len(got))
		}
		want := Change{Kind: ChangeModified, BlockID: "b1", UnitID: "u1", SpanIndex: 2, OldText: "foo", NewText: "bar", Diff: "foo → bar"}
		if got[0] != want {
			t.Errorf("Diff()[0] = %+v, want %+v", got[0], want)
		}
	})

	t.Run("marks alone are not a change", func(t *testing.T) {
		old := []Block{para("b1", NewUnit("u1", TextSpan("word")))}
		cur := []Block{para("b1", NewUnit("u1", TextSpan("word", "bold")))}
		if got := Diff(DiffPositional, old, cur); len(got) != 0 {
			t.Errorf("Diff() = %v, want none", got)
		}
	})

	t.Run("new and removed blocks are ignored", func(t *testing.T) {
		old := []Block{para("b1", text("u1", "x")), para("b2", text("u1", "gone"))}
		cur := []Block{para("b1", text("u1", "x")), para("b3", text("u1", "new"))}
		if got := Diff(DiffPositional, old, cur); len(got) != 0 {
			t.Errorf("Diff() = %v, want none", got)
		}
	})

	t.Run("inserted unit shifts later units", func(t *testing.T) {
		old := []Block{para("b1", text("u1", "first"), text("u2", "second"))}
		cur := []Block{para("b1", text("u1", "first"), text("u9", "inserted"), text("u2", "second"))}

		got := Diff(DiffPositional, old, cur)
		if len(got) != 1 || got[0].UnitID != "u9" || got[0].OldText != "second" || got[0].NewText != "inserted" {
			t.Errorf("Diff() = %+v, want u9 second -> inserted", got)
		}
	})
}

func TestDiff_Aligned(t *testing.T) {
	t.Run("inserted unit is an addition", func(t *testing.T) {
		old := []Block{para("b1", text("u1", "first"), text("u2", "second"))}
		cur := []Block{para("b1", text("u1", "first"), text("u9", "inserted"), text("u2", "second"))}

		got := Diff(DiffAligned, old, cur)
		if len(got) != 1 {
			t.Fatalf("Diff() = %+v, want one change", got)
		}
		if got[0].Kind != ChangeAdded || got[0].UnitID != "u9" || got[0].SpanIndex != -1 || got[0].NewText != "inserted" {
			t.Errorf("Diff()[0] = %+v, want added u9", got[0])
		}
	})

	t.Run("blocks added and removed", func(t *testing.T) {
		old := []Block{para("b1", text("u1", "keep")), para("b2", text("u1", "gone"))}
		cur := []Block{para("b1", text("u1", "keep")), para("b3", text("u1", "new"))}

		got := Diff(DiffAligned, old, cur)
		if len(got) != 2 {
			t.Fatalf("Diff() = %+v, want two changes", got)
		}
		if got[0].Kind != ChangeAdded || got[0].BlockID != "b3" || got[0].NewText != "new" {
			t.Errorf("Diff()[0] = %+v, want added b3", got[0])
		}
		if got[1].Kind != ChangeRemoved || got[1].BlockID != "b2" || got[1].OldText != "gone" {
			t.Errorf("Diff()[1] = %+v, want removed b2", got[1])
		}
	})

	t.Run("renamed unit pairs by position", func(t *testing.T) {
		old := []Block{para("b1", text("u1", "old words"))}
		cur := []Block{para("b1", text("x1", "new words"))}

		got := Diff(DiffAligned, old, cur)
		if len(got) != 1 || got[0].Kind != ChangeModified || got[0].OldText != "old words" {
			t.Errorf("Diff() = %+v, want one modification", got)
		}
	})

	t.Run("spans added and removed", func(t *testing.T) {
		old := []Block{para("b1", NewUnit("u1", TextSpan("a"), TextSpan("b")))}
		cur := []Block{para("b1", NewUnit("u1", TextSpan("a")))}

		got := Diff(DiffAligned, old, cur)
		if len(got) != 1 || got[0].Kind != ChangeRemoved || got[0].SpanIndex != 1 || got[0].OldText != "b" {
			t.Errorf("Diff() = %+v, want span 1 removed", got)
		}

		back := Diff(DiffAligned, cur, old)
		if len(back) != 1 || back[0].Kind != ChangeAdded || back[0].NewText != "b" {
			t.Errorf("reverse Diff() = %+v, want span 1 added", back)
		}
	})

	t.Run("removed unit", func(t *testing.T) {
		old := []Block{para("b1", text("u1", "a"), text("u2", "b"))}
		cur := []Block{para("b1", text("u1", "a"))}

		got := Diff(DiffAligned, old, cur)
		if len(got) != 1 || got[0].Kind != ChangeRemoved || got[0].UnitID != "u2" {
			t.Errorf("Diff() = %+v, want u2 removed", got)
		}
	})
}
