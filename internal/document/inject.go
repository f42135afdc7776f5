package document

import (
	"bytes"
	"fmt"
	"strings"
)

// injectAnchors rewrites word/document.xml, wrapping the content of selected
// top-level body paragraphs in comment ranges. anchors maps a paragraph's
// flat-list position to the comment ids attached to it.
//
// Paragraph enumeration must agree with the parsed block view: only direct
// children of w:body named w:p count, in document order, whether or not they
// hold text. The range start goes after the paragraph properties element when
// one is present so the paragraph stays schema-valid; the range end and the
// reference run go just before the paragraph's closing tag, spanning every
// run in between.
func injectAnchors(src []byte, anchors map[int][]int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(src) + 128*len(anchors))

	copied := 0
	emit := func(pos int, markup string) {
		out.Write(src[copied:pos])
		out.WriteString(markup)
		copied = pos
	}

	inBody := false
	depth := 0 // open-element depth inside the body; 0 = direct children
	paraIdx := 0
	matched := 0

	inTarget := false
	startPlaced := false
	var targetIDs []int

	pos := 0
	for {
		t, ok := nextTag(src, pos)
		if !ok {
			break
		}
		pos = t.end

		if t.name == "" {
			continue // XML declaration, processing instruction, comment
		}

		if !inBody {
			if t.name == "body" && !t.close && !t.selfClose {
				inBody = true
				depth = 0
			}
			continue
		}

		switch {
		case t.close:
			if depth == 0 && t.name == "body" {
				inBody = false
				continue
			}
			depth--
			if inTarget && !startPlaced && depth == 1 && t.name == "pPr" {
				emit(t.end, rangeStartMarkup(targetIDs))
				startPlaced = true
			}
			if inTarget && depth == 0 && t.name == "p" {
				if !startPlaced {
					emit(t.start, rangeStartMarkup(targetIDs))
				}
				emit(t.start, rangeEndMarkup(targetIDs))
				inTarget = false
			}

		case t.selfClose:
			if inTarget && !startPlaced && depth == 1 {
				if t.name == "pPr" {
					emit(t.end, rangeStartMarkup(targetIDs))
				} else {
					emit(t.start, rangeStartMarkup(targetIDs))
				}
				startPlaced = true
			}
			if depth == 0 && t.name == "p" {
				// A self-closing paragraph has no runs and cannot host an
				// anchor; it still occupies its identifier slot.
				if _, want := anchors[paraIdx]; want {
					return nil, fmt.Errorf("paragraph %d has no content to anchor to", paraIdx)
				}
				paraIdx++
			}

		default: // open tag
			if inTarget && !startPlaced && depth == 1 && t.name != "pPr" {
				emit(t.start, rangeStartMarkup(targetIDs))
				startPlaced = true
			}
			if depth == 0 && t.name == "p" {
				if ids, want := anchors[paraIdx]; want {
					inTarget = true
					startPlaced = false
					targetIDs = ids
					matched++
				}
				paraIdx++
			}
			depth++
		}
	}
	out.Write(src[copied:])

	if matched != len(anchors) {
		return nil, fmt.Errorf("resolved %d of %d annotated paragraphs (document has %d top-level paragraphs)",
			matched, len(anchors), paraIdx)
	}
	return out.Bytes(), nil
}

func rangeStartMarkup(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, `<w:commentRangeStart w:id="%d"/>`, id)
	}
	return sb.String()
}

func rangeEndMarkup(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb,
			`<w:commentRangeEnd w:id="%d"/><w:r><w:rPr><w:rStyle w:val="CommentReference"/></w:rPr><w:commentReference w:id="%d"/></w:r>`,
			id, id)
	}
	return sb.String()
}

// xmlTag is one markup token. name is the local element name with any
// namespace prefix stripped; it is empty for non-element markup.
type xmlTag struct {
	start, end int // src[start:end] spans "<" through ">"
	name       string
	close      bool
	selfClose  bool
}

func nextTag(src []byte, from int) (xmlTag, bool) {
	i := bytes.IndexByte(src[from:], '<')
	if i < 0 {
		return xmlTag{}, false
	}
	i += from

	if bytes.HasPrefix(src[i:], []byte("<!--")) {
		j := bytes.Index(src[i:], []byte("-->"))
		if j < 0 {
			return xmlTag{}, false
		}
		return xmlTag{start: i, end: i + j + 3}, true
	}

	end := tagEnd(src, i)
	if end < 0 {
		return xmlTag{}, false
	}
	t := xmlTag{start: i, end: end + 1}

	k := i + 1
	if k < len(src) && (src[k] == '?' || src[k] == '!') {
		return t, true // declaration or doctype, name left empty
	}
	if k < len(src) && src[k] == '/' {
		t.close = true
		k++
	}
	nameStart := k
	for k < len(src) && !isNameEnd(src[k]) {
		k++
	}
	name := string(src[nameStart:k])
	if c := strings.IndexByte(name, ':'); c >= 0 {
		name = name[c+1:]
	}
	t.name = name
	if src[end-1] == '/' {
		t.selfClose = true
	}
	return t, true
}

// tagEnd finds the '>' closing the tag opened at i, skipping quoted
// attribute values (a literal '>' is legal inside them).
func tagEnd(src []byte, i int) int {
	var quote byte
	for k := i + 1; k < len(src); k++ {
		c := src[k]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			return k
		}
	}
	return -1
}

func isNameEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '/', '>':
		return true
	}
	return false
}
