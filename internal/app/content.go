package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ilmhub/internal/ilm"
)

// ParseContent reads commit input. A JSON array is decoded as blocks;
// anything else is treated as plain text, see TextToBlocks.
func ParseContent(data []byte) ([]ilm.Block, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var blocks []ilm.Block
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, fmt.Errorf("%w: decoding content blocks: %v", ilm.ErrValidationFailure, err)
		}
		for bi := range blocks {
			for ui := range blocks[bi].Units {
				u := &blocks[bi].Units[ui]
				if u.Content == "" {
					*u = ilm.NewUnit(u.ID, u.Spans...)
				}
			}
		}
		return blocks, nil
	}
	return TextToBlocks(string(data)), nil
}

// TextToBlocks splits text into paragraphs on blank lines and units on line
// breaks. A line starting with "#" becomes a heading. Ids are positional
// ("b2", "b2-u1") so that re-committing an edited file diffs unit by unit.
func TextToBlocks(text string) []ilm.Block {
	var blocks []ilm.Block
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		id := "b" + strconv.Itoa(len(blocks)+1)

		if level := headingLevel(para); level > 0 && !strings.Contains(para, "\n") {
			title := strings.TrimSpace(para[level:])
			blocks = append(blocks, ilm.Block{
				ID:    id,
				Type:  ilm.BlockHeading,
				Level: level,
				Units: []ilm.Unit{ilm.NewUnit(id+"-u1", ilm.TextSpan(title))},
			})
			continue
		}

		var units []ilm.Unit
		for _, line := range strings.Split(para, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				units = append(units, ilm.NewUnit(id+"-u"+strconv.Itoa(len(units)+1), ilm.TextSpan(line)))
			}
		}
		blocks = append(blocks, ilm.Block{ID: id, Type: ilm.BlockParagraph, Units: units})
	}
	return blocks
}

func headingLevel(s string) int {
	n := 0
	for n < len(s) && n < 6 && s[n] == '#' {
		n++
	}
	if n == 0 || n >= len(s) || s[n] != ' ' {
		return 0
	}
	return n
}
