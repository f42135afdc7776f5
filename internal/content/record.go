// Package content turns an open document into the ordered record sequence
// sent to the answer-key classifier.
package content

import "encoding/json"

// Kind distinguishes the two record variants.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindTable     Kind = "table"
)

// Record is one extracted unit of document structure: a paragraph's trimmed
// text tagged with its flat-list position, or a whole table rendered to a
// markdown blob. Table records carry no identifier and cannot be the target
// of an annotation.
type Record struct {
	Kind    Kind
	Content string
	ParaID  int
}

// MarshalJSON emits the classifier wire form. The para_id field is present
// only on paragraph records; a table has no reusable identifier.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Kind == KindParagraph {
		return json.Marshal(struct {
			Type    Kind   `json:"type"`
			Content string `json:"content"`
			ParaID  int    `json:"para_id"`
		}{r.Kind, r.Content, r.ParaID})
	}
	return json.Marshal(struct {
		Type    Kind   `json:"type"`
		Content string `json:"content"`
	}{r.Kind, r.Content})
}
