package types

// EventType discriminates the streamed output events of a job.
type EventType string

const (
	EventStatus   EventType = "status"
	EventText     EventType = "text"
	EventToolCall EventType = "tool_call"
	EventCitation EventType = "citation"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// Event is a single item in a job's output stream. The JSON field shapes are
// the wire contract relayed to consumers: every event carries a type tag,
// most carry content, and citations additionally carry a sequential id plus
// the source filename as both display text and link.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	ID      int       `json:"id,omitempty"`
	Text    string    `json:"text,omitempty"`
	Link    string    `json:"link,omitempty"`
}

// Terminal reports whether this event ends the stream. No events follow a
// terminal event for the same job.
func (e Event) Terminal() bool {
	return e.Type == EventDone
}

func StatusEvent(content string) Event {
	return Event{Type: EventStatus, Content: content}
}

func TextEvent(content string) Event {
	return Event{Type: EventText, Content: content}
}

func ToolCallEvent(label string) Event {
	return Event{Type: EventToolCall, Content: label}
}

func CitationEvent(id int, filename string) Event {
	return Event{Type: EventCitation, ID: id, Text: filename, Link: filename}
}

func ErrorEvent(content string) Event {
	return Event{Type: EventError, Content: content}
}

func DoneEvent() Event {
	return Event{Type: EventDone}
}
