package grid

import "quotedesk/backend/internal/domain"

// EventType names a state change the presentation layer reacts to.
type EventType string

const (
	EventRowAppended    EventType = "row_appended"
	EventRowDeleted     EventType = "row_deleted"
	EventRowSelected    EventType = "row_selected"
	EventFocusChanged   EventType = "focus_changed"
	EventEditStarted    EventType = "edit_started"
	EventEditCommitted  EventType = "edit_committed"
	EventEditCanceled   EventType = "edit_canceled"
	EventOpenLookup     EventType = "open_lookup"
	EventLookupResolved EventType = "lookup_resolved"
)

// Event is one presentation-facing notification. RowID and Column are set
// when the event concerns a cell; Products carries lookup results for
// EventLookupResolved.
type Event struct {
	Type     EventType        `json:"type"`
	RowID    string           `json:"row_id,omitempty"`
	Column   Column           `json:"column,omitempty"`
	Buffer   string           `json:"buffer,omitempty"`
	Query    string           `json:"query,omitempty"`
	Products []domain.Product `json:"products,omitempty"`
}

// Key is a normalized keyboard event. Name holds the key identifier
// ("Enter", "Tab", "ArrowDown", "Escape", "n", "Delete", ...); Text carries
// printable input while a cell is being edited.
type Key struct {
	Name  string `json:"key"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Text  string `json:"text,omitempty"`
}
