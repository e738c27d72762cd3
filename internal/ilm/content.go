package ilm

import (
	"slices"
	"strings"
)

// BlockType is the structural kind of a content block.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockQuote     BlockType = "quote"
	BlockCode      BlockType = "code"
)

// SpanType distinguishes plain text runs from embedded cross references.
type SpanType string

const (
	SpanText      SpanType = "text"
	SpanReference SpanType = "reference"
	SpanDebate    SpanType = "debate"
)

// Stance tags the position a debate span takes.
type Stance string

const (
	StanceSupporting Stance = "supporting"
	StanceOpposing   Stance = "opposing"
	StanceNeutral    Stance = "neutral"
)

var knownMarks = []string{"bold", "italic", "underline", "strike", "code", "link"}

// Block is a structural element of a document: a heading, paragraph, list,
// quote or code block made of ordered units.
type Block struct {
	ID       string    `json:"id"`
	Type     BlockType `json:"type"`
	Units    []Unit    `json:"units"`
	Level    int       `json:"level,omitempty"`
	Ordered  bool      `json:"ordered,omitempty"`
	Language string    `json:"language,omitempty"`
}

// Unit is a sentence or segment inside a block. Content is the flattened
// plain text of its spans and is what search indexes.
type Unit struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Spans   []Span `json:"spans"`
}

// Span is the smallest typed and styled run of text.
type Span struct {
	Text  string    `json:"text"`
	Type  SpanType  `json:"type"`
	Marks []string  `json:"marks,omitempty"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries the structured payload of reference and debate spans.
type SpanData struct {
	RefID    string `json:"refId,omitempty"`
	DebateID string `json:"debateId,omitempty"`
	Stance   Stance `json:"stance,omitempty"`
	Href     string `json:"href,omitempty"`
}

// NewUnit builds a unit whose content is derived from its spans.
func NewUnit(id string, spans ...Span) Unit {
	return Unit{ID: id, Content: joinSpans(spans), Spans: spans}
}

// TextSpan returns an untyped text run.
func TextSpan(text string, marks ...string) Span {
	return Span{Text: text, Type: SpanText, Marks: marks}
}

// ReferenceSpan returns a span pointing at a reference record.
func ReferenceSpan(text, refID string) Span {
	return Span{Text: text, Type: SpanReference, Data: &SpanData{RefID: refID}}
}

// DebateSpan returns a span pointing at a debate with the given stance.
func DebateSpan(text, debateID string, stance Stance) Span {
	return Span{Text: text, Type: SpanDebate, Data: &SpanData{DebateID: debateID, Stance: stance}}
}

func joinSpans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// ValidateBlocks checks the structural invariants of a content tree and
// returns a ValidationFailure describing the first violation found.
func ValidateBlocks(blocks []Block) error {
	blockIDs := make(map[string]bool, len(blocks))
	for bi, b := range blocks {
		if b.ID == "" {
			return invalid("block %d has no id", bi)
		}
		if blockIDs[b.ID] {
			return invalid("duplicate block id %q", b.ID)
		}
		blockIDs[b.ID] = true

		switch b.Type {
		case BlockHeading:
			if b.Level < 1 || b.Level > 6 {
				return invalid("heading block %q has level %d, want 1..6", b.ID, b.Level)
			}
		case BlockParagraph, BlockList, BlockQuote, BlockCode:
		default:
			return invalid("block %q has unknown type %q", b.ID, b.Type)
		}

		unitIDs := make(map[string]bool, len(b.Units))
		for ui, u := range b.Units {
			if u.ID == "" {
				return invalid("block %q unit %d has no id", b.ID, ui)
			}
			if unitIDs[u.ID] {
				return invalid("block %q has duplicate unit id %q", b.ID, u.ID)
			}
			unitIDs[u.ID] = true

			if err := validateUnit(b.ID, u); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateUnit(blockID string, u Unit) error {
	for si, s := range u.Spans {
		switch s.Type {
		case SpanText:
		case SpanReference:
			if s.Data == nil || s.Data.RefID == "" {
				return invalid("unit %q span %d is a reference without refId", u.ID, si)
			}
		case SpanDebate:
			if s.Data == nil || s.Data.DebateID == "" {
				return invalid("unit %q span %d is a debate without debateId", u.ID, si)
			}
		default:
			return invalid("unit %q span %d has unknown type %q", u.ID, si, s.Type)
		}

		if s.Data != nil && s.Data.Stance != "" {
			switch s.Data.Stance {
			case StanceSupporting, StanceOpposing, StanceNeutral:
			default:
				return invalid("unit %q span %d has unknown stance %q", u.ID, si, s.Data.Stance)
			}
		}

		for _, m := range s.Marks {
			if !slices.Contains(knownMarks, m) {
				return invalid("unit %q span %d has unknown mark %q", u.ID, si, m)
			}
		}
	}

	if joined := joinSpans(u.Spans); joined != u.Content {
		return invalid("block %q unit %q content %q does not match its spans %q", blockID, u.ID, u.Content, joined)
	}
	return nil
}

// BlocksEqual reports whether two content trees are structurally identical.
func BlocksEqual(a, b []Block) bool {
	return slices.EqualFunc(a, b, func(x, y Block) bool {
		return x.ID == y.ID && x.Type == y.Type && x.Level == y.Level &&
			x.Ordered == y.Ordered && x.Language == y.Language &&
			slices.EqualFunc(x.Units, y.Units, unitEqual)
	})
}

func unitEqual(x, y Unit) bool {
	return x.ID == y.ID && x.Content == y.Content && slices.EqualFunc(x.Spans, y.Spans, spanEqual)
}

func spanEqual(x, y Span) bool {
	if x.Text != y.Text || x.Type != y.Type || !slices.Equal(x.Marks, y.Marks) {
		return false
	}
	if x.Data == nil || y.Data == nil {
		return x.Data == nil && y.Data == nil
	}
	return *x.Data == *y.Data
}

// CloneBlocks returns a deep copy so callers can mutate the result freely.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		out[i].Units = make([]Unit, len(b.Units))
		for j, u := range b.Units {
			out[i].Units[j] = u
			out[i].Units[j].Spans = make([]Span, len(u.Spans))
			for k, s := range u.Spans {
				s.Marks = slices.Clone(s.Marks)
				if s.Data != nil {
					d := *s.Data
					s.Data = &d
				}
				out[i].Units[j].Spans[k] = s
			}
		}
	}
	return out
}

// PlainText flattens a content tree to newline separated unit content.
func PlainText(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		for _, u := range b.Units {
			if u.Content != "" {
				parts = append(parts, u.Content)
			}
		}
	}
	return strings.Join(parts, "\n")
}
