package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/docchat/internal/index"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	ix := index.New(index.NewHashingEmbedder(256))
	s, err := New(t.TempDir(), ix, NewSplitter(256, 50), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIngestAndSearch(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Ingest([]byte("Our mascot is a red fox. Everyone loves the mascot."), "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Indexed || res.Chunks == 0 {
		t.Fatalf("expected indexed result, got %+v", res)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("expected stored file at %s: %v", res.Path, err)
	}

	results, err := s.Search("mascot", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected search results for ingested content")
	}
	if results[0].Chunk.Source != "notes.txt" {
		t.Errorf("expected source notes.txt, got %s", results[0].Chunk.Source)
	}
}

func TestIngestOverwritesSameName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Ingest([]byte("first version of the document"), "doc.txt"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Ingest([]byte("second version of the document"), "doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "second version") {
		t.Errorf("expected overwrite, file contains %q", data)
	}
}

func TestIngestTooShortStoredNotIndexed(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Ingest([]byte("  hi  "), "tiny.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed {
		t.Error("expected too-short text to skip indexing")
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Error("expected file stored even without indexing")
	}
}

func TestIngestImageStoredNotIndexed(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Ingest([]byte{0x89, 0x50, 0x4e, 0x47}, "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed {
		t.Error("expected image upload to skip indexing")
	}
}

func TestIngestBinaryUnknownStoredNotIndexed(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Ingest([]byte{0x00, 0x01, 0x02, 0xff, 0xfe}, "blob.bin")
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed {
		t.Error("expected binary upload to skip indexing")
	}
}

func TestIngestUnknownTextIndexed(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Ingest([]byte("plain readable content in a strange extension"), "notes.weird")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Indexed {
		t.Error("expected best-effort decode to index unknown text")
	}
}

func TestIngestTruncation(t *testing.T) {
	s := newTestStore(t, WithMaxTextChars(500))
	long := strings.Repeat("searchable walrus content here. ", 100)
	res, err := s.Ingest([]byte(long), "big.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Indexed {
		t.Fatal("expected indexed result")
	}

	results, err := s.Search("walrus", 50)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	marker := false
	for _, r := range results {
		total += len([]rune(r.Chunk.Text))
		if strings.Contains(r.Chunk.Text, "[Note: Document truncated]") {
			marker = true
		}
	}
	if !marker {
		t.Error("expected truncation marker in some chunk")
	}
	// Overlap duplicates some characters, so allow slack proportional to
	// the chunk count, but the total must stay near the cap, far below
	// the original length.
	limit := 500 + len(truncationMarker) + res.Chunks*50
	if total > limit {
		t.Errorf("concatenated chunk text %d exceeds cap %d", total, limit)
	}
}

func TestIngestStructuredWithoutExtractor(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Ingest([]byte("%PDF-1.4 fake"), "report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed {
		t.Error("expected PDF without extractor to be stored only")
	}
}

func TestIngestStructuredExtractorUsed(t *testing.T) {
	ex := ExtractorFunc(func(data []byte) (string, error) {
		return "extracted narwhal text from the report body", nil
	})
	s := newTestStore(t, WithExtractor(KindPDF, ex))
	res, err := s.Ingest([]byte("%PDF-1.4 fake"), "report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Indexed {
		t.Fatal("expected extractor output to be indexed")
	}
	results, err := s.Search("narwhal", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Chunk.Source != "report.pdf" {
		t.Errorf("expected report.pdf chunk, got %+v", results)
	}
}

func TestIngestExtractorFailure(t *testing.T) {
	ex := ExtractorFunc(func(data []byte) (string, error) {
		return "", errors.New("corrupt document")
	})
	s := newTestStore(t, WithExtractor(KindPDF, ex))
	_, err := s.Ingest([]byte("junk"), "broken.pdf")
	if err == nil {
		t.Fatal("expected extraction failure to surface")
	}
	// The raw bytes must still be on disk.
	if _, statErr := os.Stat(filepath.Join(s.UploadDir(), "broken.pdf")); statErr != nil {
		t.Error("expected file stored despite extraction failure")
	}
}

func TestListAndReset(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Ingest([]byte("content about pelicans and their habits"), "b.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ingest([]byte("content about herons and their habits"), "a.txt"); err != nil {
		t.Fatal(err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Errorf("expected sorted [a.txt b.txt], got %v", names)
	}

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	names, err = s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty upload dir after reset, got %v", names)
	}
	results, err := s.Search("pelicans", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results after reset, got %d", len(results))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     Kind
	}{
		{"report.pdf", KindPDF},
		{"Report.PDF", KindPDF},
		{"letter.docx", KindDocx},
		{"page.html", KindHTML},
		{"page.htm", KindHTML},
		{"notes.txt", KindText},
		{"main.go", KindText},
		{"photo.jpeg", KindImage},
		{"archive.zip", KindUnknown},
		{"no_extension", KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.filename); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestIngestHTML(t *testing.T) {
	s := newTestStore(t)
	html := "<html><body><h1>Quarterly Report</h1><p>Revenue from the flamingo exhibit doubled.</p></body></html>"
	res, err := s.Ingest([]byte(html), "report.html")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Indexed {
		t.Fatal("expected HTML upload to be indexed")
	}
	results, err := s.Search("flamingo exhibit", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results from converted HTML")
	}
	if strings.Contains(results[0].Chunk.Text, "<p>") {
		t.Errorf("expected markup stripped, got %q", results[0].Chunk.Text)
	}
}
