package docstore

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Kind classifies an upload by filename extension. The set is closed:
// supporting a new format means adding a constant and a case here, which the
// ingest switch then has to handle.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindDocx
	KindHTML
	KindText
	KindImage
)

// Extractor pulls plain text out of structured document bytes. PDF and DOCX
// extraction live outside this module; the store treats them as black boxes
// registered per Kind.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(data []byte) (string, error)

func (f ExtractorFunc) Extract(data []byte) (string, error) { return f(data) }

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".go": {}, ".py": {}, ".js": {}, ".ts": {},
	".tsx": {}, ".css": {}, ".json": {}, ".yaml": {}, ".yml": {},
	".lock": {}, ".csv": {},
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {},
}

// Classify maps a filename to its extraction Kind.
func Classify(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf":
		return KindPDF
	case ext == ".docx":
		return KindDocx
	case ext == ".html" || ext == ".htm":
		return KindHTML
	default:
		if _, ok := textExtensions[ext]; ok {
			return KindText
		}
		if _, ok := imageExtensions[ext]; ok {
			return KindImage
		}
		return KindUnknown
	}
}

// decodeText converts raw bytes to a string, dropping invalid UTF-8
// sequences rather than failing.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}

// extractHTML converts an HTML document to markdown text. On conversion
// failure it falls back to the raw decode so an odd document still indexes.
func extractHTML(data []byte) string {
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return decodeText(data)
	}
	return md
}
