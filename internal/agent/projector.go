package agent

import (
	"path/filepath"

	"github.com/user/docchat/internal/types"
)

// Projector folds agent activity into the public event stream for one turn.
// Citations are numbered in first-appearance order and deduplicated by
// source, so repeated hits on the same document reuse one id.
//
// A projector belongs to a single turn and is driven from one goroutine.
type Projector struct {
	emit      func(types.Event)
	citations map[string]int
	nextID    int
	done      bool
}

func NewProjector(emit func(types.Event)) *Projector {
	return &Projector{
		emit:      emit,
		citations: make(map[string]int),
		nextID:    1,
	}
}

// Begin announces that the turn has started processing.
func (p *Projector) Begin() {
	p.emit(types.StatusEvent("started"))
}

// ToolStart announces a tool invocation with a human-readable label.
func (p *Projector) ToolStart(name string) {
	label := "Using " + name
	if name == SearchToolName {
		label = "Searching documents"
	}
	p.emit(types.ToolCallEvent(label))
}

// Text forwards a chunk of assistant output. Empty chunks are dropped.
func (p *Projector) Text(content string) {
	if content == "" {
		return
	}
	p.emit(types.TextEvent(content))
}

// Sources records the sources backing a tool result, emitting a citation
// event for each source not already cited this turn.
func (p *Projector) Sources(sources []string) {
	for _, src := range sources {
		name := filepath.Base(src)
		if _, ok := p.citations[name]; ok {
			continue
		}
		id := p.nextID
		p.nextID++
		p.citations[name] = id
		p.emit(types.CitationEvent(id, name))
	}
}

// Error reports a turn failure to the stream.
func (p *Projector) Error(msg string) {
	p.emit(types.ErrorEvent(msg))
}

// Done closes the turn. Safe to call more than once; only the first call
// emits the terminal event.
func (p *Projector) Done() {
	if p.done {
		return
	}
	p.done = true
	p.emit(types.DoneEvent())
}
