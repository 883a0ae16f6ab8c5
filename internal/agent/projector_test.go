package agent

import (
	"testing"

	"github.com/user/docchat/internal/types"
)

func collectEvents() (*Projector, *[]types.Event) {
	var events []types.Event
	p := NewProjector(func(e types.Event) { events = append(events, e) })
	return p, &events
}

func TestProjectorCitationDedupe(t *testing.T) {
	p, events := collectEvents()

	p.Sources([]string{"notes.txt", "report.pdf"})
	p.Sources([]string{"notes.txt", "extra.md"})

	var citations []types.Event
	for _, e := range *events {
		if e.Type == types.EventCitation {
			citations = append(citations, e)
		}
	}
	if len(citations) != 3 {
		t.Fatalf("expected 3 citation events, got %d", len(citations))
	}
	want := []struct {
		id   int
		text string
	}{{1, "notes.txt"}, {2, "report.pdf"}, {3, "extra.md"}}
	for i, w := range want {
		if citations[i].ID != w.id || citations[i].Text != w.text {
			t.Errorf("citation %d = {id:%d text:%q}, want {id:%d text:%q}",
				i, citations[i].ID, citations[i].Text, w.id, w.text)
		}
	}
}

func TestProjectorCitationStripsPath(t *testing.T) {
	p, events := collectEvents()
	p.Sources([]string{"/data/uploads/notes.txt"})

	e := (*events)[0]
	if e.Text != "notes.txt" || e.Link != "notes.txt" {
		t.Errorf("citation should use the basename, got text=%q link=%q", e.Text, e.Link)
	}
}

func TestProjectorDoneOnce(t *testing.T) {
	p, events := collectEvents()
	p.Done()
	p.Done()

	if len(*events) != 1 {
		t.Fatalf("expected a single done event, got %d events", len(*events))
	}
	if !(*events)[0].Terminal() {
		t.Error("done event should be terminal")
	}
}

func TestProjectorToolLabels(t *testing.T) {
	p, events := collectEvents()
	p.ToolStart(SearchToolName)
	p.ToolStart(ListToolName)

	if (*events)[0].Content != "Searching documents" {
		t.Errorf("search label = %q", (*events)[0].Content)
	}
	if (*events)[1].Content != "Using list_documents" {
		t.Errorf("generic label = %q", (*events)[1].Content)
	}
}

func TestProjectorSkipsEmptyText(t *testing.T) {
	p, events := collectEvents()
	p.Text("")
	p.Text("hello")

	if len(*events) != 1 || (*events)[0].Content != "hello" {
		t.Errorf("expected only the non-empty chunk, got %+v", *events)
	}
}
