package grid

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/lookup"
	"quotedesk/backend/internal/quote"
)

type stubResolver struct {
	products []domain.Product
}

func (r *stubResolver) Search(_ context.Context, _ string, _ string) ([]domain.Product, error) {
	return r.products, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tileProduct() domain.Product {
	return domain.Product{
		ID:         "prod-1",
		Name:       "Wall Tile 60x60",
		SKUCode:    "TIL-6060",
		MRP:        dec("100"),
		GSTPercent: dec("18"),
		Prices:     map[string]decimal.Decimal{"MRP": dec("100")},
	}
}

func newController(resolver *stubResolver) *Controller {
	if resolver == nil {
		resolver = &stubResolver{}
	}
	editor := quote.NewEditor(resolver)
	sessions := lookup.NewSessionManager(resolver, 0, zerolog.Nop())
	return NewController(editor, sessions, nil)
}

func key(name string) Key { return Key{Name: name} }

func hasEvent(events []Event, typ EventType) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestFocusFirstCellCreatesRowWhenEmpty(t *testing.T) {
	c := newController(nil)
	events := c.FocusFirstCell()

	if !hasEvent(events, EventRowAppended) {
		t.Fatalf("expected a row to be appended, got %v", events)
	}
	st := c.State()
	if st.Mode != "editing" || st.Column != ColArea {
		t.Fatalf("expected editing area, got %+v", st)
	}
	if c.Editor().RowCount() != 1 {
		t.Fatalf("row count = %d, want 1", c.Editor().RowCount())
	}
}

func TestEnterWalksAreaToSKUAndOpensLookupOnEmptySKU(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	c.FocusFirstCell()

	c.HandleKey(ctx, key("Enter"))
	st := c.State()
	if st.Mode != "editing" || st.Column != ColSKUCode {
		t.Fatalf("after Enter on area, state = %+v, want editing skuCode", st)
	}

	events := c.HandleKey(ctx, key("Enter"))
	if !hasEvent(events, EventOpenLookup) {
		t.Fatalf("Enter on empty SKU must open lookup, got %v", events)
	}
}

func TestEnterOnSKUResolvesAndFocusesQty(t *testing.T) {
	c := newController(&stubResolver{products: []domain.Product{tileProduct()}})
	ctx := context.Background()
	c.FocusFirstCell()
	c.HandleKey(ctx, key("Enter")) // area -> skuCode

	c.HandleKey(ctx, Key{Name: "x", Text: "TIL-6060"})
	events := c.HandleKey(ctx, key("Enter"))

	if hasEvent(events, EventOpenLookup) {
		t.Fatalf("matched SKU must not open lookup: %v", events)
	}
	st := c.State()
	if st.Mode != "focused" || st.Column != ColQty {
		t.Fatalf("state = %+v, want focused qty", st)
	}
	row, _ := c.Editor().Row(st.RowID)
	if row.Product == nil || !row.MRP.Equal(dec("100")) {
		t.Fatalf("row not populated from resolution: %+v", row)
	}
}

func TestEnterOnUnknownSKUOpensLookup(t *testing.T) {
	c := newController(&stubResolver{})
	ctx := context.Background()
	c.FocusFirstCell()
	c.HandleKey(ctx, key("Enter"))
	c.HandleKey(ctx, Key{Name: "x", Text: "NOPE"})

	events := c.HandleKey(ctx, key("Enter"))
	if !hasEvent(events, EventOpenLookup) {
		t.Fatalf("unmatched SKU must open lookup, got %v", events)
	}
}

func TestEnterAtRowEndAppendsRow(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	first := c.Editor().AddLineItem()
	c.FocusCell(first, ColGST)

	events := c.HandleKey(ctx, key("Enter"))
	if !hasEvent(events, EventRowAppended) {
		t.Fatalf("Enter at the last editable cell of the last row must append, got %v", events)
	}
	st := c.State()
	if st.Column != ColArea || st.RowID == first {
		t.Fatalf("expected editing area of the new row, got %+v", st)
	}
}

func TestEnterAtRowEndAppendsEvenWithRowsBelow(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	first := c.Editor().AddLineItem()
	second := c.Editor().AddLineItem()
	c.FocusCell(first, ColGST)

	events := c.HandleKey(ctx, key("Enter"))
	if !hasEvent(events, EventRowAppended) {
		t.Fatalf("Enter past the row's last editable cell must append, got %v", events)
	}
	if c.Editor().RowCount() != 3 {
		t.Fatalf("row count = %d, want 3", c.Editor().RowCount())
	}
	st := c.State()
	if st.Mode != "editing" || st.Column != ColArea || st.RowID == first || st.RowID == second {
		t.Fatalf("expected editing area of the appended row, got %+v", st)
	}
}

func TestTabNeverAppends(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColGST)

	events := c.HandleKey(ctx, key("Tab"))
	if hasEvent(events, EventRowAppended) {
		t.Fatalf("Tab appended a row: %v", events)
	}
	st := c.State()
	if st.RowID != id || st.Column != ColGST {
		t.Fatalf("Tab at grid end must stay put, got %+v", st)
	}
}

func TestTabStopsOnProductColumn(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColSKUCode)

	c.HandleKey(ctx, key("Tab"))
	st := c.State()
	if st.Column != ColProduct {
		t.Fatalf("Tab after skuCode = %+v, want product stop", st)
	}
	if st.Mode != "focused" {
		t.Fatalf("product column must not open a text edit, got %+v", st)
	}
}

func TestShiftTabNoBackwardWrap(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	c.Editor().AddLineItem()
	second := c.Editor().AddLineItem()
	c.FocusCell(second, ColArea)

	c.HandleKey(ctx, Key{Name: "Tab", Shift: true})
	st := c.State()
	if st.RowID != second || st.Column != ColArea {
		t.Fatalf("Shift+Tab at a row's first stop must not wrap, got %+v", st)
	}
}

func TestArrowDownMovesEditingWithinColumn(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	first := c.Editor().AddLineItem()
	second := c.Editor().AddLineItem()
	c.FocusCell(first, ColQty)

	c.HandleKey(ctx, key("ArrowDown"))
	st := c.State()
	if st.RowID != second || st.Column != ColQty || st.Mode != "editing" {
		t.Fatalf("ArrowDown = %+v, want editing qty on second row", st)
	}

	// Bottom boundary: no-op, the edit survives.
	c.HandleKey(ctx, key("ArrowDown"))
	st = c.State()
	if st.RowID != second || st.Mode != "editing" {
		t.Fatalf("ArrowDown at the last row must be a no-op, got %+v", st)
	}
}

func TestArrowRightWrapsAcrossRows(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	first := c.Editor().AddLineItem()
	second := c.Editor().AddLineItem()

	c.FocusCell(first, ColGST)
	c.HandleKey(ctx, key("Escape"))

	c.HandleKey(ctx, key("ArrowRight"))
	st := c.State()
	if st.RowID != second || st.Column != ColArea {
		t.Fatalf("ArrowRight at row end = %+v, want first stop of next row", st)
	}

	c.HandleKey(ctx, key("ArrowLeft"))
	st = c.State()
	if st.RowID != first || st.Column != ColGST {
		t.Fatalf("ArrowLeft at row start = %+v, want last stop of previous row", st)
	}
}

func TestEscapeCancelsEditKeepsFocus(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColMRP)
	c.HandleKey(ctx, Key{Name: "x", Text: "999"})

	events := c.HandleKey(ctx, key("Escape"))
	if !hasEvent(events, EventEditCanceled) {
		t.Fatalf("expected cancel event, got %v", events)
	}
	st := c.State()
	if st.Mode != "focused" || st.RowID != id || st.Column != ColMRP {
		t.Fatalf("Escape must keep focus on the cell, got %+v", st)
	}
	row, _ := c.Editor().Row(id)
	if !row.MRP.IsZero() {
		t.Fatalf("canceled edit leaked into the row: %s", row.MRP)
	}
}

func TestCommitEditDoesNotAdvance(t *testing.T) {
	c := newController(nil)
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColMRP)
	c.HandleKey(context.Background(), Key{Name: "x", Text: "250"})

	events := c.CommitEdit()
	if !hasEvent(events, EventEditCommitted) {
		t.Fatalf("expected commit event, got %v", events)
	}
	st := c.State()
	if st.Mode != "focused" || st.Column != ColMRP {
		t.Fatalf("blur commit must not advance, got %+v", st)
	}
	row, _ := c.Editor().Row(id)
	if !row.MRP.Equal(dec("250")) {
		t.Fatalf("mrp = %s, want 250", row.MRP)
	}
}

func TestAltNAddsRow(t *testing.T) {
	c := newController(nil)
	events := c.HandleKey(context.Background(), Key{Name: "n", Alt: true})
	if !hasEvent(events, EventRowAppended) {
		t.Fatalf("Alt+N must append a row, got %v", events)
	}
}

func TestAltDeleteClearsAllReferencesToRow(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	only := c.Editor().AddLineItem()
	c.FocusCell(only, ColQty)

	events := c.HandleKey(ctx, Key{Name: "Delete", Alt: true})
	if !hasEvent(events, EventRowDeleted) {
		t.Fatalf("expected row deleted event, got %v", events)
	}
	st := c.State()
	if st.Mode != "idle" || st.RowID != "" || st.SelectedRowID != "" {
		t.Fatalf("deleting the only focused row must clear all references, got %+v", st)
	}
	if c.Editor().RowCount() != 0 {
		t.Fatalf("row survived delete")
	}
}

func TestSelectRowThenAltDeleteRemovesIt(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	first := c.Editor().AddLineItem()
	second := c.Editor().AddLineItem()

	events := c.SelectRow(second)
	if !hasEvent(events, EventRowSelected) {
		t.Fatalf("expected row selected event, got %v", events)
	}
	if st := c.State(); st.SelectedRowID != second {
		t.Fatalf("selected row = %q, want %q", st.SelectedRowID, second)
	}

	events = c.HandleKey(ctx, Key{Name: "Delete", Alt: true})
	if !hasEvent(events, EventRowDeleted) {
		t.Fatalf("Alt+Delete must delete the selected row, got %v", events)
	}
	if c.Editor().RowIndex(second) >= 0 {
		t.Fatalf("selected row survived delete")
	}
	if c.Editor().RowIndex(first) < 0 {
		t.Fatalf("unselected row was deleted")
	}
	if st := c.State(); st.SelectedRowID != "" {
		t.Fatalf("selection must be cleared with the row, got %+v", st)
	}
}

func TestAltDeleteWithoutSelectionIsNoOp(t *testing.T) {
	c := newController(nil)
	c.Editor().AddLineItem()

	events := c.HandleKey(context.Background(), Key{Name: "Delete", Alt: true})
	if len(events) != 0 || c.Editor().RowCount() != 1 {
		t.Fatalf("Alt+Delete with nothing selected must do nothing, got %v", events)
	}
}

func TestSelectionFollowsFocus(t *testing.T) {
	c := newController(nil)
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColQty)

	if st := c.State(); st.SelectedRowID != id {
		t.Fatalf("focusing a cell must select its row, got %+v", st)
	}
}

func TestStaleSelectionDropsOnReconcile(t *testing.T) {
	c := newController(nil)
	id := c.Editor().AddLineItem()
	c.SelectRow(id)
	c.Editor().DeleteLineItem(id)

	if st := c.State(); st.SelectedRowID != "" {
		t.Fatalf("selection of a vanished row must be dropped, got %+v", st)
	}
}

func TestDeleteFocusedRowMovesFocusToNeighbor(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	first := c.Editor().AddLineItem()
	second := c.Editor().AddLineItem()
	c.FocusCell(first, ColQty)
	c.HandleKey(ctx, key("Escape"))

	c.HandleKey(ctx, Key{Name: "Delete", Alt: true})
	st := c.State()
	if st.RowID != second || st.Column != ColQty {
		t.Fatalf("focus after delete = %+v, want qty on the surviving row", st)
	}
}

func TestTransitionsAbortOnConcurrentlyDeletedRow(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColQty)

	// Row vanishes out from under the focus reference.
	c.Editor().DeleteLineItem(id)

	// The stale edit must not commit anywhere; Enter lands in idle, which on
	// an empty grid creates a fresh row.
	events := c.HandleKey(ctx, key("Enter"))
	if hasEvent(events, EventEditCommitted) {
		t.Fatalf("stale edit committed: %v", events)
	}
	if !hasEvent(events, EventRowAppended) {
		t.Fatalf("expected idle Enter to create a row, got %v", events)
	}
}

func TestApplyLookupSelection(t *testing.T) {
	c := newController(nil)
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColProduct)

	events := c.ApplyLookupSelection(id, tileProduct())
	if !hasEvent(events, EventFocusChanged) {
		t.Fatalf("expected focus change, got %v", events)
	}
	st := c.State()
	if st.Column != ColQty {
		t.Fatalf("selection must advance focus to qty, got %+v", st)
	}
	row, _ := c.Editor().Row(id)
	if row.Product == nil || row.Product.ID != "prod-1" {
		t.Fatalf("product not applied: %+v", row)
	}
}

func TestApplyLookupSelectionForDeletedRow(t *testing.T) {
	c := newController(nil)
	id := c.Editor().AddLineItem()
	c.Editor().DeleteLineItem(id)

	if events := c.ApplyLookupSelection(id, tileProduct()); len(events) != 0 {
		t.Fatalf("selection for a deleted row must apply nothing, got %v", events)
	}
}

func TestFocusCellOnProductOpensLookup(t *testing.T) {
	c := newController(nil)
	id := c.Editor().AddLineItem()

	events := c.FocusCell(id, ColProduct)
	if !hasEvent(events, EventOpenLookup) {
		t.Fatalf("focusing the product cell must open lookup, got %v", events)
	}
}

func TestTypedTextEntersBuffer(t *testing.T) {
	c := newController(nil)
	ctx := context.Background()
	id := c.Editor().AddLineItem()
	c.FocusCell(id, ColArea)

	c.HandleKey(ctx, Key{Name: "K", Text: "K"})
	c.HandleKey(ctx, Key{Name: "i", Text: "itchen"})
	c.CommitEdit()

	row, _ := c.Editor().Row(id)
	if row.Area != "Kitchen" {
		t.Fatalf("area = %q, want Kitchen", row.Area)
	}
}
