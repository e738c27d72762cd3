package ilm

import (
	"errors"
	"testing"
)

func TestValidateBlocks(t *testing.T) {
	valid := func() []Block {
		return []Block{
			{ID: "h1", Type: BlockHeading, Level: 2, Units: []Unit{text("h1-u1", "Title")}},
			para("b1",
				NewUnit("u1", TextSpan("See "), ReferenceSpan("Bukhari 1", "ref-1")),
				NewUnit("u2", DebateSpan("disputed", "deb-1", StanceNeutral)),
			),
		}
	}

	if err := ValidateBlocks(valid()); err != nil {
		t.Fatalf("ValidateBlocks(valid) error = %v", err)
	}
	if err := ValidateBlocks(nil); err != nil {
		t.Fatalf("ValidateBlocks(nil) error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(b []Block)
	}{
		{"content mismatch", func(b []Block) { b[1].Units[0].Content = "other" }},
		{"unknown block type", func(b []Block) { b[1].Type = "table" }},
		{"heading level", func(b []Block) { b[0].Level = 7 }},
		{"missing block id", func(b []Block) { b[1].ID = "" }},
		{"duplicate block id", func(b []Block) { b[1].ID = "h1" }},
		{"missing unit id", func(b []Block) { b[1].Units[1].ID = "" }},
		{"duplicate unit id", func(b []Block) { b[1].Units[1].ID = "u1" }},
		{"unknown span type", func(b []Block) { b[1].Units[0].Spans[0].Type = "image" }},
		{"reference without id", func(b []Block) { b[1].Units[0].Spans[1].Data.RefID = "" }},
		{"debate without id", func(b []Block) { b[1].Units[1].Spans[0].Data = nil }},
		{"unknown stance", func(b []Block) { b[1].Units[1].Spans[0].Data.Stance = "hostile" }},
		{"unknown mark", func(b []Block) { b[1].Units[0].Spans[0].Marks = []string{"blink"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := valid()
			tt.mutate(blocks)
			if err := ValidateBlocks(blocks); !errors.Is(err, ErrValidationFailure) {
				t.Errorf("ValidateBlocks() error = %v, want ErrValidationFailure", err)
			}
		})
	}
}

func TestCloneBlocks(t *testing.T) {
	orig := []Block{para("b1", NewUnit("u1", TextSpan("x", "bold"), ReferenceSpan("r", "ref-1")))}
	clone := CloneBlocks(orig)

	if !BlocksEqual(orig, clone) {
		t.Fatal("clone differs from original")
	}

	clone[0].Units[0].Spans[0].Marks[0] = "italic"
	clone[0].Units[0].Spans[1].Data.RefID = "ref-2"
	clone[0].Units[0].Content = "changed"

	if orig[0].Units[0].Spans[0].Marks[0] != "bold" || orig[0].Units[0].Spans[1].Data.RefID != "ref-1" || orig[0].Units[0].Content != "xr" {
		t.Error("mutating the clone changed the original")
	}
	if CloneBlocks(nil) != nil {
		t.Error("CloneBlocks(nil) != nil")
	}
}

func TestBlocksEqual(t *testing.T) {
	a := []Block{para("b1", NewUnit("u1", ReferenceSpan("r", "ref-1")))}
	b := CloneBlocks(a)
	if !BlocksEqual(a, b) {
		t.Error("BlocksEqual(clone) = false")
	}
	b[0].Units[0].Spans[0].Data.RefID = "ref-2"
	if BlocksEqual(a, b) {
		t.Error("BlocksEqual() ignores span data")
	}
	if BlocksEqual(a, nil) {
		t.Error("BlocksEqual(a, nil) = true")
	}
}

func TestPlainText(t *testing.T) {
	blocks := []Block{
		{ID: "h1", Type: BlockHeading, Level: 1, Units: []Unit{text("u1", "Wudu")}},
		para("b1", text("u1", "Wash the face."), text("u2", ""), text("u3", "Wipe the head.")),
	}
	want := "Wudu\nWash the face.\nWipe the head."
	if got := PlainText(blocks); got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}
