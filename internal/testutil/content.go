package testutil

import (
	"strconv"

	"ilmhub/internal/ilm"
)

// Paragraph builds a paragraph block with one text unit per sentence. Unit
// ids are "<blockID>-u<n>".
func Paragraph(blockID string, sentences ...string) ilm.Block {
	units := make([]ilm.Unit, len(sentences))
	for i, s := range sentences {
		units[i] = ilm.NewUnit(unitID(blockID, i), ilm.TextSpan(s))
	}
	return ilm.Block{ID: blockID, Type: ilm.BlockParagraph, Units: units}
}

// Heading builds a heading block with a single unit.
func Heading(blockID string, level int, text string) ilm.Block {
	return ilm.Block{
		ID:    blockID,
		Type:  ilm.BlockHeading,
		Level: level,
		Units: []ilm.Unit{ilm.NewUnit(unitID(blockID, 0), ilm.TextSpan(text))},
	}
}

// Blocks is shorthand for a block list.
func Blocks(blocks ...ilm.Block) []ilm.Block {
	return blocks
}

func unitID(blockID string, i int) string {
	return blockID + "-u" + strconv.Itoa(i+1)
}
