package app

import (
	"errors"
	"testing"

	"ilmhub/internal/ilm"
)

func TestTextToBlocks(t *testing.T) {
	text := "# Salah\n\nPrayer is obligatory.\nIt is performed five times.\n\n\nWudu comes first."

	blocks := TextToBlocks(text)
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3", len(blocks))
	}

	if blocks[0].Type != ilm.BlockHeading || blocks[0].Level != 1 {
		t.Errorf("blocks[0] = %+v, want level 1 heading", blocks[0])
	}
	if got := blocks[0].Units[0].Content; got != "Salah" {
		t.Errorf("heading text = %q, want %q", got, "Salah")
	}

	para := blocks[1]
	if para.ID != "b2" || len(para.Units) != 2 {
		t.Fatalf("blocks[1] = %+v, want b2 with 2 units", para)
	}
	if para.Units[1].ID != "b2-u2" || para.Units[1].Content != "It is performed five times." {
		t.Errorf("blocks[1].Units[1] = %+v", para.Units[1])
	}

	if err := ilm.ValidateBlocks(blocks); err != nil {
		t.Errorf("ValidateBlocks() error = %v", err)
	}
}

func TestTextToBlocks_HashWithoutSpaceIsText(t *testing.T) {
	blocks := TextToBlocks("#hashtag")
	if len(blocks) != 1 || blocks[0].Type != ilm.BlockParagraph {
		t.Errorf("TextToBlocks(#hashtag) = %+v, want one paragraph", blocks)
	}
}

func TestParseContent(t *testing.T) {
	t.Run("json blocks fill unit content", func(t *testing.T) {
		data := []byte(`[{"id":"b1","type":"paragraph","units":[{"id":"u1","spans":[{"text":"foo ","type":"text"},{"text":"bar","type":"text"}]}]}]`)

		blocks, err := ParseContent(data)
		if err != nil {
			t.Fatalf("ParseContent() error = %v", err)
		}
		if got := blocks[0].Units[0].Content; got != "foo bar" {
			t.Errorf("unit content = %q, want %q", got, "foo bar")
		}
	})

	t.Run("bad json is a validation failure", func(t *testing.T) {
		_, err := ParseContent([]byte(`[{"id":`))
		if !errors.Is(err, ilm.ErrValidationFailure) {
			t.Errorf("ParseContent() error = %v, want ErrValidationFailure", err)
		}
	})

	t.Run("plain text", func(t *testing.T) {
		blocks, err := ParseContent([]byte("one line"))
		if err != nil {
			t.Fatalf("ParseContent() error = %v", err)
		}
		if len(blocks) != 1 || blocks[0].Units[0].Content != "one line" {
			t.Errorf("ParseContent() = %+v", blocks)
		}
	})
}
