package ilm

import (
	"errors"
	"testing"
	"time"
)

func validArchive() *Archive {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	v1 := []Block{para("b1", text("u1", "one"))}
	v2 := []Block{para("b1", text("u1", "two"))}
	return &Archive{
		Format: archiveFormat,
		Node:   &Node{ID: "n1", Slug: "hajj", VersionCount: 2, LiveContent: CloneBlocks(v2)},
		Versions: []*Version{
			{NodeID: "n1", VersionID: 1, ChangedAt: now, ContentBlocks: v1, Changes: []Change{}},
			{NodeID: "n1", VersionID: 2, ChangedAt: now, ContentBlocks: v2, Changes: []Change{}},
		},
	}
}

func TestCheckArchive(t *testing.T) {
	if err := checkArchive(validArchive()); err != nil {
		t.Fatalf("checkArchive(valid) error = %v", err)
	}

	empty := &Archive{Format: archiveFormat, Node: &Node{ID: "n1", Slug: "hajj", LiveContent: []Block{}}}
	if err := checkArchive(empty); err != nil {
		t.Errorf("checkArchive(no versions) error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(a *Archive)
	}{
		{"format", func(a *Archive) { a.Format = 99 }},
		{"no node", func(a *Archive) { a.Node = nil }},
		{"no slug", func(a *Archive) { a.Node.Slug = "" }},
		{"count mismatch", func(a *Archive) { a.Node.VersionCount = 3 }},
		{"out of sequence", func(a *Archive) { a.Versions[1].VersionID = 5 }},
		{"foreign version", func(a *Archive) { a.Versions[0].NodeID = "n2" }},
		{"invalid snapshot", func(a *Archive) { a.Versions[0].ContentBlocks[0].Type = "table" }},
		{"live content drift", func(a *Archive) { a.Node.LiveContent = a.Versions[0].ContentBlocks }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArchive()
			tt.mutate(a)
			if err := checkArchive(a); !errors.Is(err, ErrValidationFailure) {
				t.Errorf("checkArchive() error = %v, want ErrValidationFailure", err)
			}
		})
	}
}
