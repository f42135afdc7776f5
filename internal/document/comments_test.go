package document

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

func readPart(t *testing.T, archive []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("reopen archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("archive has no %s", name)
	return ""
}

func TestBytes_NoCommentsReturnsOriginal(t *testing.T) {
	data := buildDocx(t, para("Q"))
	doc, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected byte-identical archive when no comments are queued")
	}
}

func TestBytes_AppliesComments(t *testing.T) {
	data := buildDocx(t, para("Question A")+para("Question B"))
	doc, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	doc.AddComment(0, "ChemistryAI", "42")
	doc.AddComment(1, "ChemistryAI", "7")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}

	comments := readPart(t, out, "word/comments.xml")
	for _, want := range []string{
		`w:author="ChemistryAI"`,
		`<w:t xml:space="preserve">42</w:t>`,
		`<w:t xml:space="preserve">7</w:t>`,
	} {
		if !strings.Contains(comments, want) {
			t.Errorf("comments.xml missing %s:\n%s", want, comments)
		}
	}

	docXML := readPart(t, out, "word/document.xml")
	if !strings.Contains(docXML, `Question A</w:t></w:r><w:commentRangeEnd w:id="0"/>`) {
		t.Errorf("first comment not anchored to paragraph 0:\n%s", docXML)
	}
	if !strings.Contains(docXML, `Question B</w:t></w:r><w:commentRangeEnd w:id="1"/>`) {
		t.Errorf("second comment not anchored to paragraph 1:\n%s", docXML)
	}

	types := readPart(t, out, "[Content_Types].xml")
	if !strings.Contains(types, `PartName="/word/comments.xml"`) {
		t.Error("content types must declare the comments part")
	}

	rels := readPart(t, out, "word/_rels/document.xml.rels")
	if !strings.Contains(rels, commentsRelType) {
		t.Error("document rels must declare the comments relationship")
	}
}

func TestBytes_MultipleCommentsOneParagraph(t *testing.T) {
	data := buildDocx(t, para("Q"))
	doc, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc.AddComment(0, "ChemistryAI", "A")
	doc.AddComment(0, "ChemistryAI", "B")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}

	comments := readPart(t, out, "word/comments.xml")
	if got := strings.Count(comments, "<w:comment "); got != 2 {
		t.Errorf("expected 2 distinct comments, got %d:\n%s", got, comments)
	}
	if !strings.Contains(comments, ">A</w:t>") || !strings.Contains(comments, ">B</w:t>") {
		t.Errorf("both answers must survive:\n%s", comments)
	}
}

func TestBytes_EscapesCommentText(t *testing.T) {
	data := buildDocx(t, para("Q"))
	doc, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc.AddComment(0, "A & B", "x < y")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	comments := readPart(t, out, "word/comments.xml")
	if !strings.Contains(comments, "x &lt; y") {
		t.Errorf("comment text not escaped:\n%s", comments)
	}
	if !strings.Contains(comments, "A &amp; B") {
		t.Errorf("author not escaped:\n%s", comments)
	}
}

func TestBytes_MergesExistingPrefixedComments(t *testing.T) {
	existingComments := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<ns0:comments xmlns:ns0="` + wordMLNamespace + `" xmlns:w="` + wordMLNamespace + `">` +
		`<ns0:comment ns0:id="3" ns0:author="Earlier Reviewer">` +
		`<ns0:p><ns0:r><ns0:t xml:space="preserve">kept</ns0:t></ns0:r></ns0:p>` +
		`</ns0:comment></ns0:comments>`
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + wordMLNamespace + `">` +
		`<w:body>` + para("Q") + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`<Override PartName="/word/comments.xml" ContentType="` + commentsContentType + `"/>` +
			`</Types>`,
		"_rels/.rels": rootRelsXML,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="` + commentsRelType + `" Target="comments.xml"/>` +
			`</Relationships>`,
		"word/document.xml": documentXML,
		"word/comments.xml": existingComments,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	doc, err := Open(buf.Bytes())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc.AddComment(0, "ChemistryAI", "new answer")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}

	comments := readPart(t, out, "word/comments.xml")
	if !strings.Contains(comments, `ns0:author="Earlier Reviewer"`) {
		t.Errorf("pre-existing comment dropped:\n%s", comments)
	}
	if !strings.Contains(comments, ">kept</ns0:t>") {
		t.Errorf("pre-existing comment text dropped:\n%s", comments)
	}
	if !strings.Contains(comments, `<w:comment w:id="4"`) {
		t.Errorf("new comment id must continue after the existing ones:\n%s", comments)
	}
	if !strings.Contains(comments, ">new answer</w:t>") {
		t.Errorf("new comment missing:\n%s", comments)
	}
	if !strings.HasSuffix(strings.TrimSpace(comments), "</ns0:comments>") {
		t.Errorf("root element not preserved:\n%s", comments)
	}
}

func TestBytes_OutputStillOpens(t *testing.T) {
	data := buildDocx(t, para("Q1")+para("Q2"))
	doc, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc.AddComment(1, "ChemistryAI", "answer")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}

	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("annotated document no longer parses: %v", err)
	}
	if got := reopened.ParagraphCount(); got != 2 {
		t.Errorf("paragraph count changed after annotation: %d", got)
	}
	p, _ := reopened.Paragraph(1)
	if p.Text != "Q2" {
		t.Errorf("paragraph text changed after annotation: %q", p.Text)
	}
}

func TestInitials(t *testing.T) {
	cases := []struct{ author, want string }{
		{"ChemistryAI", "C"},
		{"Jane Q Public", "JQP"},
		{"", "A"},
	}
	for _, tc := range cases {
		if got := initials(tc.author); got != tc.want {
			t.Errorf("initials(%q) = %q, want %q", tc.author, got, tc.want)
		}
	}
}
