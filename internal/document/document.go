// Package document wraps a parsed .docx file behind the block view the rest
// of the service works with: an ordered list of body blocks (paragraphs and
// tables), a flat paragraph list addressable by position, and a comment
// attachment layer that is materialized on save.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// ErrMalformed indicates the input could not be parsed as a .docx document.
var ErrMalformed = errors.New("malformed document")

// Block is a body-level element: either a *ParagraphBlock or a *TableBlock.
type Block interface {
	isBlock()
}

// ParagraphBlock is one body paragraph. Position is its zero-based index in
// the document's flat paragraph list and is assigned to every paragraph,
// whether or not its text is empty.
type ParagraphBlock struct {
	Position int
	Text     string // trimmed run text
	RunCount int
}

func (*ParagraphBlock) isBlock() {}

// TableBlock is one body table, reduced to its cell texts. Cell paragraphs
// are joined with newlines; rendering decides how to flatten them.
type TableBlock struct {
	Rows [][]string
}

func (*TableBlock) isBlock() {}

// Document is one open .docx file. It keeps the original archive bytes so
// that saving can rewrite only the parts the annotation layer touches.
type Document struct {
	raw        []byte
	blocks     []Block
	paragraphs []*ParagraphBlock
	pending    []pendingComment
}

type pendingComment struct {
	para   int
	author string
	text   string
}

// Open parses raw .docx bytes into a Document.
func Open(data []byte) (*Document, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	d := &Document{raw: data}

	// Single walk over the body in native child order. The paragraph
	// position counter advances on every paragraph, empty or not, so a
	// position is always the paragraph's index in the flat list.
	for _, item := range doc.Document.Body.Items {
		switch el := item.(type) {
		case *docx.Paragraph:
			p := &ParagraphBlock{
				Position: len(d.paragraphs),
				Text:     paragraphText(el),
				RunCount: runCount(el),
			}
			d.paragraphs = append(d.paragraphs, p)
			d.blocks = append(d.blocks, p)
		case *docx.Table:
			d.blocks = append(d.blocks, &TableBlock{Rows: tableRows(el)})
		}
	}

	return d, nil
}

// Blocks returns the body blocks in document order.
func (d *Document) Blocks() []Block {
	return d.blocks
}

// ParagraphCount returns the length of the flat paragraph list.
func (d *Document) ParagraphCount() int {
	return len(d.paragraphs)
}

// Paragraph returns the paragraph at the given flat-list position.
func (d *Document) Paragraph(pos int) (*ParagraphBlock, bool) {
	if pos < 0 || pos >= len(d.paragraphs) {
		return nil, false
	}
	return d.paragraphs[pos], true
}

// AddComment queues a review comment anchored to the full run span of the
// paragraph at the given position. Callers are expected to have validated
// the position and that the paragraph can host an anchor.
func (d *Document) AddComment(pos int, author, text string) {
	d.pending = append(d.pending, pendingComment{para: pos, author: author, text: text})
}

// CommentCount returns the number of queued comments.
func (d *Document) CommentCount() int {
	return len(d.pending)
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func runCount(para *docx.Paragraph) int {
	n := 0
	for _, child := range para.Children {
		if _, ok := child.(*docx.Run); ok {
			n++
		}
	}
	return n
}

func tableRows(tbl *docx.Table) [][]string {
	rows := make([][]string, 0, len(tbl.TableRows))
	for _, tr := range tbl.TableRows {
		cells := make([]string, 0, len(tr.TableCells))
		for _, tc := range tr.TableCells {
			var parts []string
			for _, p := range tc.Paragraphs {
				parts = append(parts, paragraphText(p))
			}
			cells = append(cells, strings.Join(parts, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}
