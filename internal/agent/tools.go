package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/docchat/internal/docstore"
)

// Tool names the model invokes. The projector keys its status labels off
// SearchToolName.
const (
	SearchToolName = "search_documents"
	ListToolName   = "list_documents"
)

const resultSeparator = "\n\n---\n\n"

// SearchDocuments retrieves excerpts from the indexed uploads. Failures are
// reported inside the result text so the model can recover or inform the
// user; only argument decoding is a hard error.
type SearchDocuments struct {
	store *docstore.Store
	k     int
}

// NewSearchDocuments creates the retrieval tool returning at most k excerpts
// per query (10 when k <= 0).
func NewSearchDocuments(store *docstore.Store, k int) *SearchDocuments {
	if k <= 0 {
		k = 10
	}
	return &SearchDocuments{store: store, k: k}
}

func (s *SearchDocuments) Name() string { return SearchToolName }

func (s *SearchDocuments) Description() string {
	return "Searches and returns excerpts from the uploaded documents (PDFs, images, text, code). " +
		"Use this to answer questions based on the document content. " +
		"Always cite your sources using [1], [2], etc."
}

func (s *SearchDocuments) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query to run against the uploaded documents"}
		},
		"required": ["query"]
	}`)
}

func (s *SearchDocuments) Execute(_ context.Context, args json.RawMessage) (ToolResult, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return ToolResult{}, fmt.Errorf("parse args: %w", err)
	}

	query := strings.TrimSpace(params.Query)
	if len([]rune(query)) < 2 {
		return ToolResult{Content: "The search query is too short. Provide at least 2 characters describing what to look for."}, nil
	}

	results, err := s.store.Search(query, s.k)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Document search failed: %v. Let the user know and suggest retrying.", err)}, nil
	}
	if len(results) == 0 {
		return ToolResult{Content: "No relevant excerpts were found in the uploaded documents. Try rephrasing the query."}, nil
	}

	parts := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, "Source: "+r.Chunk.Source+"\nContent: "+r.Chunk.Text)
		sources = append(sources, filepath.Base(r.Chunk.Source))
	}
	return ToolResult{
		Content: strings.Join(parts, resultSeparator),
		Sources: sources,
	}, nil
}

// ListDocuments reports the filenames currently stored in the upload area.
type ListDocuments struct {
	store *docstore.Store
}

func NewListDocuments(store *docstore.Store) *ListDocuments {
	return &ListDocuments{store: store}
}

func (l *ListDocuments) Name() string { return ListToolName }

func (l *ListDocuments) Description() string {
	return "Lists the filenames of all currently uploaded documents."
}

func (l *ListDocuments) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (l *ListDocuments) Execute(_ context.Context, _ json.RawMessage) (ToolResult, error) {
	names, err := l.store.List()
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Could not list documents: %v.", err)}, nil
	}
	if len(names) == 0 {
		return ToolResult{Content: "No documents have been uploaded yet."}, nil
	}
	return ToolResult{Content: "Uploaded documents:\n- " + strings.Join(names, "\n- ")}, nil
}
