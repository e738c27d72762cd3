package ilm

import "fmt"

// DiffMode selects how two content snapshots are aligned before comparing text.
type DiffMode string

const (
	// DiffPositional matches blocks by id, then units and spans by index.
	// Inserting or removing a unit mid-block makes every later unit look
	// edited. This is the historical behavior and the default.
	DiffPositional DiffMode = "positional"

	// DiffAligned matches units by id and reports blocks, units and spans
	// present on one side only as additions or removals. Change records
	// differ from DiffPositional for the same input.
	DiffAligned DiffMode = "aligned"
)

// ParseDiffMode maps a config value to a DiffMode; empty selects positional.
func ParseDiffMode(s string) (DiffMode, error) {
	switch DiffMode(s) {
	case "", DiffPositional:
		return DiffPositional, nil
	case DiffAligned:
		return DiffAligned, nil
	default:
		return "", fmt.Errorf("unknown diff mode: %q", s)
	}
}

// ChangeKind classifies a change record.
type ChangeKind string

const (
	ChangeModified ChangeKind = "modified"
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
)

// Change describes one difference between consecutive versions. SpanIndex is
// -1 for block and unit level additions and removals.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	BlockID   string     `json:"blockId"`
	UnitID    string     `json:"unitId,omitempty"`
	SpanIndex int        `json:"spanIndex"`
	OldText   string     `json:"oldText"`
	NewText   string     `json:"newText"`
	Diff      string     `json:"diff"`
}

func modified(blockID, unitID string, spanIndex int, oldText, newText string) Change {
	return Change{
		Kind:      ChangeModified,
		BlockID:   blockID,
		UnitID:    unitID,
		SpanIndex: spanIndex,
		OldText:   oldText,
		NewText:   newText,
		Diff:      oldText + " → " + newText,
	}
}

// Diff compares two snapshots and returns the change records in new-snapshot
// order. The result is never nil.
func Diff(mode DiffMode, oldBlocks, newBlocks []Block) []Change {
	if mode == DiffAligned {
		return diffAligned(oldBlocks, newBlocks)
	}
	return diffPositional(oldBlocks, newBlocks)
}

func indexBlocks(blocks []Block) map[string]*Block {
	m := make(map[string]*Block, len(blocks))
	for i := range blocks {
		m[blocks[i].ID] = &blocks[i]
	}
	return m
}

func diffPositional(oldBlocks, newBlocks []Block) []Change {
	changes := []Change{}
	old := indexBlocks(oldBlocks)

	for _, nb := range newBlocks {
		ob, ok := old[nb.ID]
		if !ok {
			continue
		}
		for ui, nu := range nb.Units {
			if ui >= len(ob.Units) {
				break
			}
			ou := ob.Units[ui]
			for si, ns := range nu.Spans {
				if si >= len(ou.Spans) {
					break
				}
				if prev := ou.Spans[si]; prev.Text != ns.Text {
					changes = append(changes, modified(nb.ID, nu.ID, si, prev.Text, ns.Text))
				}
			}
		}
	}
	return changes
}

func diffAligned(oldBlocks, newBlocks []Block) []Change {
	changes := []Change{}
	old := indexBlocks(oldBlocks)
	seen := make(map[string]bool, len(newBlocks))

	for _, nb := range newBlocks {
		seen[nb.ID] = true
		ob, ok := old[nb.ID]
		if !ok {
			changes = append(changes, Change{
				Kind: ChangeAdded, BlockID: nb.ID, SpanIndex: -1,
				NewText: blockText(nb), Diff: "+ " + blockText(nb),
			})
			continue
		}
		changes = append(changes, diffUnits(nb.ID, ob.Units, nb.Units)...)
	}

	for _, ob := range oldBlocks {
		if seen[ob.ID] {
			continue
		}
		changes = append(changes, Change{
			Kind: ChangeRemoved, BlockID: ob.ID, SpanIndex: -1,
			OldText: blockText(ob), Diff: "- " + blockText(ob),
		})
	}
	return changes
}

// diffUnits pairs units by id. A new unit whose id is unknown pairs with the
// old unit at the same index only when that old unit is itself unmatched.
func diffUnits(blockID string, oldUnits, newUnits []Unit) []Change {
	var changes []Change

	oldByID := make(map[string]int, len(oldUnits))
	for i, u := range oldUnits {
		oldByID[u.ID] = i
	}
	newIDs := make(map[string]bool, len(newUnits))
	for _, u := range newUnits {
		newIDs[u.ID] = true
	}

	paired := make([]bool, len(oldUnits))
	for ni, nu := range newUnits {
		oi, ok := oldByID[nu.ID]
		if !ok && ni < len(oldUnits) && !newIDs[oldUnits[ni].ID] && !paired[ni] {
			oi, ok = ni, true
		}
		if !ok {
			changes = append(changes, Change{
				Kind: ChangeAdded, BlockID: blockID, UnitID: nu.ID, SpanIndex: -1,
				NewText: nu.Content, Diff: "+ " + nu.Content,
			})
			continue
		}
		paired[oi] = true
		changes = append(changes, diffSpans(blockID, nu.ID, oldUnits[oi].Spans, nu.Spans)...)
	}

	for oi, ou := range oldUnits {
		if paired[oi] {
			continue
		}
		changes = append(changes, Change{
			Kind: ChangeRemoved, BlockID: blockID, UnitID: ou.ID, SpanIndex: -1,
			OldText: ou.Content, Diff: "- " + ou.Content,
		})
	}
	return changes
}

func diffSpans(blockID, unitID string, oldSpans, newSpans []Span) []Change {
	var changes []Change
	for i := 0; i < max(len(oldSpans), len(newSpans)); i++ {
		switch {
		case i >= len(oldSpans):
			t := newSpans[i].Text
			changes = append(changes, Change{
				Kind: ChangeAdded, BlockID: blockID, UnitID: unitID, SpanIndex: i,
				NewText: t, Diff: "+ " + t,
			})
		case i >= len(newSpans):
			t := oldSpans[i].Text
			changes = append(changes, Change{
				Kind: ChangeRemoved, BlockID: blockID, UnitID: unitID, SpanIndex: i,
				OldText: t, Diff: "- " + t,
			})
		case oldSpans[i].Text != newSpans[i].Text:
			changes = append(changes, modified(blockID, unitID, i, oldSpans[i].Text, newSpans[i].Text))
		}
	}
	return changes
}

func blockText(b Block) string {
	return PlainText([]Block{b})
}
