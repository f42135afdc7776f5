package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/chemistryai/answermark/internal/content"
	"github.com/chemistryai/answermark/internal/document"
)

var previewMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// handlePreview runs extraction only and returns what the classifier would
// see: the record sequence, its markdown, and an HTML rendering of it.
// Useful for checking identifier assignment before spending a classifier
// call.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, _, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := document.Open(data)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, document.ErrMalformed) {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, err.Error(), code)
		return
	}

	records := content.Extract(doc)
	md := content.Markdown(records)

	var html bytes.Buffer
	if err := previewMarkdown.Convert([]byte(md), &html); err != nil {
		s.log.Error("preview render failed", "error", err)
		jsonError(w, "failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"paragraphs": doc.ParagraphCount(),
		"records":    records,
		"markdown":   md,
		"html":       html.String(),
	})
}
