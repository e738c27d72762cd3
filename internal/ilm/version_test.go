package ilm

import (
	"slices"
	"testing"
	"time"
)

func TestPrepareCommit(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.FixedZone("X", 3600))

	t.Run("first version has no changes", func(t *testing.T) {
		node := &Node{ID: "n1"}
		blocks := []Block{para("b1", NewUnit("u1", ReferenceSpan("r", "ref-1")))}

		c := PrepareCommit(DiffPositional, node, blocks, "alice", now)
		if c.Version.VersionID != 1 || c.Version.NodeID != "n1" || c.Version.ChangedBy != "alice" {
			t.Errorf("Version = %+v", c.Version)
		}
		if c.Version.Changes == nil || len(c.Version.Changes) != 0 {
			t.Errorf("Changes = %v, want empty non-nil", c.Version.Changes)
		}
		if !c.Version.ChangedAt.Equal(now) || c.Version.ChangedAt.Location() != time.UTC {
			t.Errorf("ChangedAt = %v, want %v in UTC", c.Version.ChangedAt, now)
		}
		if !slices.Equal(c.References, []string{"ref-1"}) {
			t.Errorf("References = %v, want [ref-1]", c.References)
		}
		if node.VersionCount != 0 {
			t.Error("PrepareCommit modified the node")
		}

		blocks[0].Units[0].Spans[0].Data.RefID = "mutated"
		if c.Version.ContentBlocks[0].Units[0].Spans[0].Data.RefID != "ref-1" {
			t.Error("snapshot shares memory with the input")
		}
	})

	t.Run("apply mirrors the version", func(t *testing.T) {
		node := &Node{ID: "n1"}
		c := PrepareCommit(DiffPositional, node, []Block{para("b1", text("u1", "one"))}, "alice", now)
		c.Apply(node)

		next := PrepareCommit(DiffPositional, node, []Block{para("b1", text("u1", "two"))}, "bob", now)
		if next.Version.VersionID != 2 || len(next.Version.Changes) != 1 {
			t.Errorf("second version = %+v", next.Version)
		}
		next.Apply(node)
		if node.VersionCount != 2 || !BlocksEqual(node.LiveContent, next.Version.ContentBlocks) {
			t.Errorf("node = %+v, want live content of v2", node)
		}
		if node.EditCount() != 1 {
			t.Errorf("EditCount() = %d, want 1", node.EditCount())
		}
	})

	t.Run("nil content commits an empty snapshot", func(t *testing.T) {
		c := PrepareCommit(DiffPositional, &Node{ID: "n1"}, nil, "alice", now)
		if c.Version.ContentBlocks == nil {
			t.Error("ContentBlocks = nil, want empty")
		}
	})
}

func TestParseVersionLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{"v3", 3, false},
		{"V12", 12, false},
		{"0", 0, true},
		{"v", 0, true},
		{"latest", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseVersionLabel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVersionLabel(%q) = (%d, %v), want %d (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
