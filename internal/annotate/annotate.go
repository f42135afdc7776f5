// Package annotate re-targets classifier findings onto the live document:
// each answer key becomes a review comment anchored to the paragraph its
// identifier resolves to.
package annotate

import (
	"fmt"

	"github.com/chemistryai/answermark/internal/classify"
	"github.com/chemistryai/answermark/internal/document"
)

// OutOfRangeError reports an identifier that does not map to any paragraph
// in the document's flat list.
type OutOfRangeError struct {
	ParaID int
	Count  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("paragraph id %d out of range (document has %d paragraphs)", e.ParaID, e.Count)
}

// AttachError reports a resolved paragraph that cannot structurally host an
// annotation.
type AttachError struct {
	ParaID int
	Reason string
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("cannot attach to paragraph %d: %s", e.ParaID, e.Reason)
}

// Skip records one assignment that could not be applied.
type Skip struct {
	Key classify.AnswerKey
	Err error
}

// Report summarizes one reinsertion pass.
type Report struct {
	Applied int
	Skipped []Skip
}

// SkippedIDs returns the identifiers of the skipped assignments, in order.
func (r Report) SkippedIDs() []int {
	ids := make([]int, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		ids = append(ids, s.Key.ParaID)
	}
	return ids
}

// Reinsert attaches every assignment in the set, in order, as a comment by
// the given author. Unresolvable assignments (identifiers outside the flat
// paragraph list, or paragraphs with no runs to anchor to) are skipped and
// reported rather than aborting the batch, since the classifier is not
// guaranteed to return only valid identifiers. Assignments that share one
// identifier each produce their own comment.
func Reinsert(doc *document.Document, set classify.AnswerKeySet, author string) Report {
	var rep Report
	count := doc.ParagraphCount()

	for _, key := range set.AnswerKeys {
		para, ok := doc.Paragraph(key.ParaID)
		if !ok {
			rep.Skipped = append(rep.Skipped, Skip{
				Key: key,
				Err: &OutOfRangeError{ParaID: key.ParaID, Count: count},
			})
			continue
		}
		if para.RunCount == 0 {
			rep.Skipped = append(rep.Skipped, Skip{
				Key: key,
				Err: &AttachError{ParaID: key.ParaID, Reason: "paragraph has no runs"},
			})
			continue
		}
		doc.AddComment(key.ParaID, author, key.Answer)
		rep.Applied++
	}
	return rep
}
