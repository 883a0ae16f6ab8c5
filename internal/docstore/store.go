// Package docstore owns the upload area and the indexing pipeline:
// persist raw bytes, extract text, chunk, and feed the vector index.
package docstore

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/user/docchat/internal/index"
)

const (
	// DefaultMaxTextChars caps extracted text before chunking. Oversized
	// documents are truncated with a visible marker; this protects the
	// downstream model's token budget, not correctness.
	DefaultMaxTextChars = 30000

	// truncationMarker is appended verbatim when text is cut at the cap.
	truncationMarker = "\n\n[Note: Document truncated]"

	// minIndexableChars is the smallest trimmed text worth indexing.
	// Shorter uploads are stored but produce no chunks.
	minIndexableChars = 5
)

// IngestResult reports what happened to one upload. Path is always set once
// the bytes are on disk; Indexed distinguishes the store-only partial state
// from a fully indexed document.
type IngestResult struct {
	Path    string
	Indexed bool
	Chunks  int
}

// Store persists uploads and keeps the vector index in sync with them.
type Store struct {
	uploadDir  string
	index      *index.Index
	splitter   *Splitter
	maxChars   int
	extractors map[Kind]Extractor
}

// Option configures a Store.
type Option func(*Store)

// WithExtractor registers a structured-document extractor for the given kind
// (PDF, DOCX). Uploads of an unregistered structured kind are stored without
// indexing.
func WithExtractor(kind Kind, ex Extractor) Option {
	return func(s *Store) { s.extractors[kind] = ex }
}

// WithMaxTextChars overrides the extracted-text cap.
func WithMaxTextChars(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// New creates a Store rooted at uploadDir, creating the directory if needed.
func New(uploadDir string, ix *index.Index, splitter *Splitter, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	s := &Store{
		uploadDir:  uploadDir,
		index:      ix,
		splitter:   splitter,
		maxChars:   DefaultMaxTextChars,
		extractors: make(map[Kind]Extractor),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UploadDir returns the directory uploads are persisted under.
func (s *Store) UploadDir() string { return s.uploadDir }

// Ingest persists the raw bytes under filename (overwriting a same-name
// upload), extracts text per the filename's kind, and indexes the resulting
// chunks. Image uploads and too-short text are stored without indexing.
// On extraction or index failure the error is returned and no partial chunks
// are added; the file stays on disk.
func (s *Store) Ingest(data []byte, filename string) (*IngestResult, error) {
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		return nil, fmt.Errorf("invalid filename")
	}
	path := filepath.Join(s.uploadDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	stored := &IngestResult{Path: path}

	var text string
	switch kind := Classify(filename); kind {
	case KindImage:
		slog.Info("image upload stored, skipping text extraction", "file", filename)
		return stored, nil
	case KindPDF, KindDocx:
		ex, ok := s.extractors[kind]
		if !ok {
			slog.Warn("no extractor registered for structured document, storing only", "file", filename)
			return stored, nil
		}
		extracted, err := ex.Extract(data)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", filename, err)
		}
		text = extracted
	case KindHTML:
		text = extractHTML(data)
	case KindText:
		text = decodeText(data)
	default:
		if !looksLikeText(data) {
			slog.Warn("upload appears to be binary, storing only", "file", filename)
			return stored, nil
		}
		text = string(data)
	}

	if len(strings.TrimSpace(text)) < minIndexableChars {
		slog.Warn("extracted text too short to index", "file", filename, "chars", len(strings.TrimSpace(text)))
		return stored, nil
	}

	if runes := []rune(text); len(runes) > s.maxChars {
		text = string(runes[:s.maxChars]) + truncationMarker
		slog.Info("extracted text truncated", "file", filename, "cap", s.maxChars)
	}

	chunks := s.splitter.Split(text, filename)
	if len(chunks) == 0 {
		return stored, nil
	}
	if err := s.index.Add(chunks); err != nil {
		return nil, fmt.Errorf("index %s: %w", filename, err)
	}
	stored.Indexed = true
	stored.Chunks = len(chunks)
	slog.Info("document ingested", "file", filename, "chunks", len(chunks))
	return stored, nil
}

// Search performs a similarity lookup against the index, returning at most k
// results ordered by relevance.
func (s *Store) Search(query string, k int) ([]index.SearchResult, error) {
	return s.index.Search(query, k)
}

// List returns the sorted basenames of every stored upload.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Reset removes every indexed chunk and every stored upload. The index swap
// is atomic with respect to concurrent searches; files that cannot be
// removed are logged and skipped so a stuck file never blocks the wipe.
func (s *Store) Reset() error {
	s.index.Reset()

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return fmt.Errorf("read upload dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.uploadDir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("could not remove upload", "file", path, "error", err)
		}
	}
	slog.Info("document store reset")
	return nil
}

// looksLikeText is the best-effort gate for unrecognized extensions:
// valid UTF-8 without NUL bytes is treated as indexable text.
func looksLikeText(data []byte) bool {
	return !bytes.ContainsRune(data, 0) && utf8.Valid(data)
}
