package content

import (
	"github.com/chemistryai/answermark/internal/document"
)

// Extract walks the document body in native child order and produces the
// record sequence for the classifier.
//
// Every paragraph occupies one identifier slot whether or not its text is
// empty: the identifier is the paragraph's position in the document's flat
// paragraph list, and the classifier's answers are resolved back through
// that same list. Empty paragraphs are therefore skipped in the output but
// never renumbered. Tables neither consume nor shift identifiers.
func Extract(doc *document.Document) []Record {
	var records []Record
	for _, blk := range doc.Blocks() {
		switch b := blk.(type) {
		case *document.ParagraphBlock:
			if b.Text == "" {
				continue
			}
			records = append(records, Record{
				Kind:    KindParagraph,
				Content: b.Text,
				ParaID:  b.Position,
			})
		case *document.TableBlock:
			records = append(records, Record{
				Kind:    KindTable,
				Content: RenderTable(b.Rows),
			})
		}
	}
	return records
}
