package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// go-docx has no notion of review comments, so the save path works on the
// original archive instead: every entry is copied verbatim except
// word/document.xml (comment anchors injected into the targeted paragraphs),
// word/comments.xml (created or extended), [Content_Types].xml and
// word/_rels/document.xml.rels (declared if not already there). Nothing
// outside the annotation layer is re-encoded.

const (
	commentsPartName    = "word/comments.xml"
	documentPartName    = "word/document.xml"
	contentTypesName    = "[Content_Types].xml"
	documentRelsName    = "word/_rels/document.xml.rels"
	commentsContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	commentsRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	wordMLNamespace     = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// Bytes materializes the document, with all queued comments applied, as a
// complete .docx archive.
func (d *Document) Bytes() ([]byte, error) {
	if len(d.pending) == 0 {
		out := make([]byte, len(d.raw))
		copy(out, d.raw)
		return out, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(d.raw), int64(len(d.raw)))
	if err != nil {
		return nil, fmt.Errorf("reopen archive: %w", err)
	}

	var existingComments []byte
	for _, f := range zr.File {
		if f.Name == commentsPartName {
			existingComments, err = readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
		}
	}

	// Comment ids continue after any the document already carries.
	base := maxCommentID(existingComments) + 1
	anchors := make(map[int][]int, len(d.pending))
	for i, pc := range d.pending {
		anchors[pc.para] = append(anchors[pc.para], base+i)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	sawContentTypes := false
	sawRels := false
	sawComments := false

	for _, f := range zr.File {
		var content []byte
		switch f.Name {
		case documentPartName:
			src, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			content, err = injectAnchors(src, anchors)
			if err != nil {
				return nil, fmt.Errorf("annotate %s: %w", f.Name, err)
			}
		case contentTypesName:
			src, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			content = declareCommentsContentType(src)
			sawContentTypes = true
		case documentRelsName:
			src, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			content = declareCommentsRelationship(src)
			sawRels = true
		case commentsPartName:
			content = mergeComments(existingComments, d.commentEntries(base))
			sawComments = true
		}

		if content == nil {
			if err := copyZipFile(zw, f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err := writeZipFile(zw, f.Name, content); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}

	if !sawContentTypes {
		return nil, fmt.Errorf("%w: archive has no %s", ErrMalformed, contentTypesName)
	}
	if !sawComments {
		if err := writeZipFile(zw, commentsPartName, freshCommentsPart(d.commentEntries(base))); err != nil {
			return nil, fmt.Errorf("write %s: %w", commentsPartName, err)
		}
	}
	if !sawRels {
		if err := writeZipFile(zw, documentRelsName, freshRelsPart()); err != nil {
			return nil, fmt.Errorf("write %s: %w", documentRelsName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the annotated archive to w.
func (d *Document) Save(w io.Writer) error {
	out, err := d.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// commentEntries renders the queued comments as w:comment elements, ids
// assigned sequentially from base in queue order.
func (d *Document) commentEntries(base int) string {
	date := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	var sb strings.Builder
	for i, pc := range d.pending {
		fmt.Fprintf(&sb,
			`<w:comment w:id="%d" w:author="%s" w:date="%s" w:initials="%s">`,
			base+i, escapeXML(pc.author), date, escapeXML(initials(pc.author)))
		sb.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		sb.WriteString(escapeXML(pc.text))
		sb.WriteString(`</w:t></w:r></w:p></w:comment>`)
	}
	return sb.String()
}

func freshCommentsPart(entries string) []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<w:comments xmlns:w="` + wordMLNamespace + `">`)
	sb.WriteString(entries)
	sb.WriteString(`</w:comments>`)
	return []byte(sb.String())
}

// The root element's namespace prefix is whatever the producing application
// chose, so the closing tag is matched on its local name.
var commentsCloseRe = regexp.MustCompile(`</(?:[A-Za-z_][\w.-]*:)?comments\s*>`)

func mergeComments(existing []byte, entries string) []byte {
	locs := commentsCloseRe.FindAllIndex(existing, -1)
	if len(locs) == 0 {
		// Empty or self-closing comments element: rebuild the part.
		return freshCommentsPart(entries)
	}
	idx := locs[len(locs)-1][0]
	var out bytes.Buffer
	out.Write(existing[:idx])
	out.WriteString(entries)
	out.Write(existing[idx:])
	return out.Bytes()
}

var commentIDRe = regexp.MustCompile(`(?:[A-Za-z_][\w.-]*:)?id="(\d+)"`)

func maxCommentID(commentsXML []byte) int {
	max := -1
	for _, m := range commentIDRe.FindAllSubmatch(commentsXML, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > max {
			max = n
		}
	}
	return max
}

func declareCommentsContentType(src []byte) []byte {
	if bytes.Contains(src, []byte(`PartName="/`+commentsPartName+`"`)) {
		return src
	}
	override := `<Override PartName="/` + commentsPartName + `" ContentType="` + commentsContentType + `"/>`
	return insertBefore(src, "</Types>", override)
}

var relIDRe = regexp.MustCompile(`Id="rId(\d+)"`)

func declareCommentsRelationship(src []byte) []byte {
	if bytes.Contains(src, []byte(`Type="`+commentsRelType+`"`)) {
		return src
	}
	max := 0
	for _, m := range relIDRe.FindAllSubmatch(src, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > max {
			max = n
		}
	}
	rel := fmt.Sprintf(`<Relationship Id="rId%d" Type="%s" Target="comments.xml"/>`, max+1, commentsRelType)
	return insertBefore(src, "</Relationships>", rel)
}

func freshRelsPart() []byte {
	return []byte(xml.Header +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="` + commentsRelType + `" Target="comments.xml"/>` +
		`</Relationships>`)
}

func insertBefore(src []byte, closing, insertion string) []byte {
	idx := bytes.LastIndex(src, []byte(closing))
	if idx < 0 {
		return src
	}
	var out bytes.Buffer
	out.Grow(len(src) + len(insertion))
	out.Write(src[:idx])
	out.WriteString(insertion)
	out.Write(src[idx:])
	return out.Bytes()
}

func initials(author string) string {
	var sb strings.Builder
	for _, word := range strings.Fields(author) {
		r := []rune(word)
		sb.WriteString(strings.ToUpper(string(r[0])))
		if sb.Len() >= 3 {
			break
		}
	}
	if sb.Len() == 0 {
		return "A"
	}
	return sb.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func copyZipFile(zw *zip.Writer, f *zip.File) error {
	data, err := readZipFile(f)
	if err != nil {
		return err
	}
	return writeZipFile(zw, f.Name, data)
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
