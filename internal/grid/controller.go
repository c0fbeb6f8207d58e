package grid

import (
	"context"
	"sync"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/lookup"
	"quotedesk/backend/internal/quote"
)

type mode int

const (
	modeIdle mode = iota
	modeFocused
	modeEditing
)

// Cell addresses one grid cell by row id and column.
type Cell struct {
	RowID  string `json:"row_id"`
	Column Column `json:"column"`
}

// State is a serializable view of the controller for the presentation layer.
type State struct {
	Mode          string `json:"mode"`
	RowID         string `json:"row_id,omitempty"`
	Column        Column `json:"column,omitempty"`
	Buffer        string `json:"buffer,omitempty"`
	SelectedRowID string `json:"selected_row_id,omitempty"`
}

// Controller is the grid interaction state machine. It owns the transient
// focus/edit state (Idle, Focused on a cell, or Editing a cell with a text
// buffer) and routes every mutation through the quote editor, so row data and
// totals stay consistent with what the grid shows.
//
// All methods serialize on an internal mutex: there is one logical writer.
// Every transition resolves its row and column against the editor at call
// time; a reference to a row deleted in the meantime aborts silently.
type Controller struct {
	mu       sync.Mutex
	editor   *quote.Editor
	lookups  *lookup.SessionManager
	listener func(Event)

	mode     mode
	cell     Cell
	buffer   string
	selected string
}

// NewController wires the state machine to an editor and a lookup session
// manager. listener receives asynchronous events (lookup results); it may be
// nil. Synchronous transitions return their events instead.
func NewController(editor *quote.Editor, lookups *lookup.SessionManager, listener func(Event)) *Controller {
	if listener == nil {
		listener = func(Event) {}
	}
	return &Controller{editor: editor, lookups: lookups, listener: listener}
}

func (c *Controller) Editor() *quote.Editor { return c.editor }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()
	switch c.mode {
	case modeFocused:
		return State{Mode: "focused", RowID: c.cell.RowID, Column: c.cell.Column, SelectedRowID: c.selected}
	case modeEditing:
		return State{Mode: "editing", RowID: c.cell.RowID, Column: c.cell.Column, Buffer: c.buffer, SelectedRowID: c.selected}
	default:
		return State{Mode: "idle", SelectedRowID: c.selected}
	}
}

// HandleKey applies one keyboard event and returns the resulting events in
// order. ctx bounds the synchronous SKU resolution triggered by Enter on the
// SKU column.
func (c *Controller) HandleKey(ctx context.Context, key Key) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	switch {
	case key.Alt && (key.Name == "n" || key.Name == "N"):
		c.addRow(&ev)
	case key.Alt && key.Name == "Delete":
		c.deleteSelectedRow(&ev)
	case key.Name == "Enter":
		c.handleEnter(ctx, &ev)
	case key.Name == "Tab" && key.Shift:
		c.handleShiftTab(&ev)
	case key.Name == "Tab":
		c.handleTab(&ev)
	case key.Name == "ArrowUp":
		c.handleVertical(-1, &ev)
	case key.Name == "ArrowDown":
		c.handleVertical(1, &ev)
	case key.Name == "ArrowLeft":
		c.handleHorizontal(-1, &ev)
	case key.Name == "ArrowRight":
		c.handleHorizontal(1, &ev)
	case key.Name == "Escape":
		c.handleEscape(&ev)
	default:
		if c.mode == modeEditing && key.Text != "" {
			c.buffer += key.Text
		}
	}
	return ev
}

// FocusFirstCell focuses the first editable cell, creating a row first when
// the grid is empty.
func (c *Controller) FocusFirstCell() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	if c.editor.RowCount() == 0 {
		c.addRow(&ev)
		return ev
	}
	c.startEdit(Cell{RowID: c.editor.RowIDAt(0), Column: ColArea}, &ev)
	return ev
}

// FocusCell focuses the named cell and opens it: text columns begin editing,
// the product column opens lookup. Unknown rows and non-editable columns are
// no-ops.
func (c *Controller) FocusCell(rowID string, column Column) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	if c.editor.RowIndex(rowID) < 0 || navIndex(column) < 0 {
		return ev
	}
	c.commit(&ev)
	if column == ColProduct {
		c.focus(Cell{RowID: rowID, Column: column}, &ev)
		c.openLookup(rowID, &ev)
		return ev
	}
	c.startEdit(Cell{RowID: rowID, Column: column}, &ev)
	return ev
}

// CommitEdit commits the in-progress edit without moving focus. The blur /
// click-away path.
func (c *Controller) CommitEdit() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	c.commit(&ev)
	return ev
}

// AddRow appends a row and focuses its first cell, same as the Alt+N
// accelerator.
func (c *Controller) AddRow() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	c.addRow(&ev)
	return ev
}

// DeleteRow removes the row and, in the same operation, clears any focus,
// editing, or selection state that referenced it.
func (c *Controller) DeleteRow(rowID string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	c.deleteRow(rowID, &ev)
	return ev
}

// SelectRow marks the row as selected without touching focus or editing
// state. The row-header click path; the delete accelerator acts on this row.
func (c *Controller) SelectRow(rowID string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	var ev []Event
	if c.editor.RowIndex(rowID) < 0 {
		return ev
	}
	c.selected = rowID
	ev = append(ev, Event{Type: EventRowSelected, RowID: rowID})
	return ev
}

// ApplyLookupSelection routes the picked product through the editor and
// advances focus to the quantity cell. The lookup session is closed either
// way; a selection for a deleted row applies nothing.
func (c *Controller) ApplyLookupSelection(rowID string, product domain.Product) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile()

	if c.lookups != nil {
		c.lookups.Close()
	}
	var ev []Event
	if c.editor.RowIndex(rowID) < 0 {
		return ev
	}
	c.editor.SetProduct(rowID, product)
	c.focus(Cell{RowID: rowID, Column: ColQty}, &ev)
	return ev
}

// LookupQuery forwards free-text input from the lookup dialog to the
// debounced session.
func (c *Controller) LookupQuery(text string) {
	if c.lookups != nil {
		c.lookups.Query(text)
	}
}

// CloseLookup dismisses the lookup dialog and cancels any pending search.
func (c *Controller) CloseLookup() {
	if c.lookups != nil {
		c.lookups.Close()
	}
}

// --- transitions ---

func (c *Controller) handleEnter(ctx context.Context, ev *[]Event) {
	switch c.mode {
	case modeIdle:
		if c.editor.RowCount() == 0 {
			c.addRow(ev)
			return
		}
		c.startEdit(Cell{RowID: c.editor.RowIDAt(0), Column: ColArea}, ev)
	case modeFocused:
		if c.cell.Column == ColProduct {
			c.openLookup(c.cell.RowID, ev)
			return
		}
		c.startEdit(c.cell, ev)
	case modeEditing:
		if c.cell.Column == ColSKUCode {
			c.commitSKU(ctx, ev)
			return
		}
		cell := c.cell
		c.commit(ev)
		c.advanceAfterEnter(cell, ev)
	}
}

// commitSKU implements the SKU column's Enter protocol: an empty buffer opens
// lookup for the row; a non-empty code is committed and resolved right here.
// A match applies the product and lands focus on quantity; no match opens the
// lookup dialog prefilled by the presentation layer.
func (c *Controller) commitSKU(ctx context.Context, ev *[]Event) {
	cell := c.cell
	code := c.buffer
	c.commit(ev)

	if code == "" {
		c.openLookup(cell.RowID, ev)
		return
	}
	if _, err := c.editor.ResolveSKU(ctx, cell.RowID, code); err != nil {
		c.openLookup(cell.RowID, ev)
		return
	}
	c.focus(Cell{RowID: cell.RowID, Column: ColQty}, ev)
}

func (c *Controller) advanceAfterEnter(cell Cell, ev *[]Event) {
	if next, ok := nextEditable(cell.Column); ok {
		c.startEdit(Cell{RowID: cell.RowID, Column: next}, ev)
		return
	}
	// Past the row's last editable column Enter always appends a fresh row,
	// even when rows already exist below. Tab is the non-appending walk.
	c.addRow(ev)
}

func (c *Controller) handleTab(ev *[]Event) {
	if c.mode == modeIdle {
		if c.editor.RowCount() > 0 {
			c.focus(Cell{RowID: c.editor.RowIDAt(0), Column: navStops[0]}, ev)
		}
		return
	}
	cell := c.cell
	c.commit(ev)

	i := navIndex(cell.Column)
	if i < len(navStops)-1 {
		c.focus(Cell{RowID: cell.RowID, Column: navStops[i+1]}, ev)
		return
	}
	idx := c.editor.RowIndex(cell.RowID)
	if idx >= 0 && idx < c.editor.RowCount()-1 {
		c.focus(Cell{RowID: c.editor.RowIDAt(idx + 1), Column: navStops[0]}, ev)
	}
	// Tab never appends: at the last stop of the last row it stays put.
}

func (c *Controller) handleShiftTab(ev *[]Event) {
	if c.mode == modeIdle {
		return
	}
	cell := c.cell
	c.commit(ev)

	i := navIndex(cell.Column)
	if i > 0 {
		c.focus(Cell{RowID: cell.RowID, Column: navStops[i-1]}, ev)
	}
	// No backward wrap at the row's first stop.
}

func (c *Controller) handleVertical(delta int, ev *[]Event) {
	if c.mode == modeIdle {
		return
	}
	cell := c.cell
	wasEditing := c.mode == modeEditing
	idx := c.editor.RowIndex(cell.RowID)
	target := idx + delta
	if idx < 0 || target < 0 || target >= c.editor.RowCount() {
		return
	}
	c.commit(ev)
	next := Cell{RowID: c.editor.RowIDAt(target), Column: cell.Column}
	if wasEditing && textEditable(next.Column) {
		c.startEdit(next, ev)
		return
	}
	c.focus(next, ev)
}

func (c *Controller) handleHorizontal(delta int, ev *[]Event) {
	// While editing, left/right belong to the text caret, not the grid.
	if c.mode != modeFocused {
		return
	}
	i := navIndex(c.cell.Column)
	idx := c.editor.RowIndex(c.cell.RowID)
	if i < 0 || idx < 0 {
		return
	}
	ni := i + delta
	switch {
	case ni >= len(navStops):
		if idx < c.editor.RowCount()-1 {
			c.focus(Cell{RowID: c.editor.RowIDAt(idx + 1), Column: navStops[0]}, ev)
		}
	case ni < 0:
		if idx > 0 {
			c.focus(Cell{RowID: c.editor.RowIDAt(idx - 1), Column: navStops[len(navStops)-1]}, ev)
		}
	default:
		c.focus(Cell{RowID: c.cell.RowID, Column: navStops[ni]}, ev)
	}
}

func (c *Controller) handleEscape(ev *[]Event) {
	if c.mode != modeEditing {
		return
	}
	canceled := c.cell
	c.buffer = ""
	c.mode = modeFocused
	*ev = append(*ev, Event{Type: EventEditCanceled, RowID: canceled.RowID, Column: canceled.Column})
}

// --- helpers (callers hold c.mu) ---

// reconcile drops focus, editing, and selection state that points at a row
// the editor no longer has. Concurrent deletions abort the reference silently.
func (c *Controller) reconcile() {
	if c.selected != "" && c.editor.RowIndex(c.selected) < 0 {
		c.selected = ""
	}
	if c.mode == modeIdle {
		return
	}
	if c.editor.RowIndex(c.cell.RowID) < 0 {
		c.mode = modeIdle
		c.cell = Cell{}
		c.buffer = ""
	}
}

// focus moves focus to the cell. Focusing a cell also selects its row, so the
// delete accelerator follows the keyboard without a separate selection step.
func (c *Controller) focus(cell Cell, ev *[]Event) {
	c.mode = modeFocused
	c.cell = cell
	c.buffer = ""
	c.selected = cell.RowID
	*ev = append(*ev, Event{Type: EventFocusChanged, RowID: cell.RowID, Column: cell.Column})
}

func (c *Controller) startEdit(cell Cell, ev *[]Event) {
	if !textEditable(cell.Column) {
		c.focus(cell, ev)
		return
	}
	row, ok := c.editor.Row(cell.RowID)
	if !ok {
		return
	}
	c.focus(cell, ev)
	c.mode = modeEditing
	c.buffer = cellText(row, cell.Column)
	*ev = append(*ev, Event{Type: EventEditStarted, RowID: cell.RowID, Column: cell.Column, Buffer: c.buffer})
}

// commit writes the buffer back through the editor and drops to Focused. A
// no-op unless editing.
func (c *Controller) commit(ev *[]Event) {
	if c.mode != modeEditing {
		return
	}
	field, ok := fieldFor(c.cell.Column)
	if ok {
		c.editor.UpdateField(c.cell.RowID, field, c.buffer)
	}
	*ev = append(*ev, Event{Type: EventEditCommitted, RowID: c.cell.RowID, Column: c.cell.Column, Buffer: c.buffer})
	c.buffer = ""
	c.mode = modeFocused
}

func (c *Controller) addRow(ev *[]Event) {
	id := c.editor.AddLineItem()
	*ev = append(*ev, Event{Type: EventRowAppended, RowID: id})
	c.startEdit(Cell{RowID: id, Column: ColArea}, ev)
}

// deleteSelectedRow is the Alt+Delete accelerator: it removes the selected
// row if any row is selected.
func (c *Controller) deleteSelectedRow(ev *[]Event) {
	if c.selected == "" {
		return
	}
	c.deleteRow(c.selected, ev)
}

func (c *Controller) deleteRow(rowID string, ev *[]Event) {
	idx := c.editor.RowIndex(rowID)
	if idx < 0 {
		return
	}
	column := navStops[0]
	hadFocus := c.mode != modeIdle && c.cell.RowID == rowID
	if hadFocus {
		column = c.cell.Column
	}

	c.editor.DeleteLineItem(rowID)
	*ev = append(*ev, Event{Type: EventRowDeleted, RowID: rowID})
	if c.selected == rowID {
		c.selected = ""
	}

	if !hadFocus {
		return
	}
	c.mode = modeIdle
	c.cell = Cell{}
	c.buffer = ""
	if c.editor.RowCount() == 0 {
		return
	}
	if idx >= c.editor.RowCount() {
		idx = c.editor.RowCount() - 1
	}
	c.focus(Cell{RowID: c.editor.RowIDAt(idx), Column: column}, ev)
}

func (c *Controller) openLookup(rowID string, ev *[]Event) {
	*ev = append(*ev, Event{Type: EventOpenLookup, RowID: rowID})
	if c.lookups == nil {
		return
	}
	listener := c.listener
	c.lookups.Open(rowID, c.editor.PriceList(), func(res lookup.Result) {
		listener(Event{
			Type:     EventLookupResolved,
			RowID:    res.RowID,
			Query:    res.Query,
			Products: res.Products,
		})
	})
}
