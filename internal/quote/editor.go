package quote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quotedesk/backend/internal/calc"
	"quotedesk/backend/internal/domain"
)

// ErrNoMatch reports that SKU resolution found no product. Transport failures
// are folded into it: from the editor's point of view both mean "nothing to
// apply".
var ErrNoMatch = errors.New("no matching product")

// Resolver finds products for a query, scoped to a price list.
type Resolver interface {
	Search(ctx context.Context, query string, priceList string) ([]domain.Product, error)
}

// Editor owns one working quotation: the ordered line items, the header
// fields, and the derived totals. Every mutating method recomputes the
// touched rows and the totals before it returns, so any snapshot taken
// between calls is consistent.
//
// Editor is not internally synchronized. There is a single logical writer;
// callers that share an Editor across goroutines serialize access themselves.
type Editor struct {
	quotation domain.Quotation
	clipboard []domain.LineItem
	resolver  Resolver
}

func NewEditor(resolver Resolver) *Editor {
	e := &Editor{resolver: resolver}
	e.Reset()
	return e
}

// Reset replaces the working quotation with an empty one on the canonical
// price list.
func (e *Editor) Reset() {
	e.quotation = domain.Quotation{
		VoucherDate: time.Now().UTC(),
		PriceList:   domain.PriceListMRP,
		Items:       nil,
	}
	e.quotation.Totals = calc.ComputeTotals(nil)
	e.clipboard = nil
}

// Load replaces the working quotation. Totals and derived row amounts are
// recomputed so a stale persisted snapshot cannot leak through.
func (e *Editor) Load(q domain.Quotation) {
	if q.PriceList == "" {
		q.PriceList = domain.PriceListMRP
	}
	for i := range q.Items {
		if q.Items[i].ID == "" {
			q.Items[i].ID = uuid.NewString()
		}
		q.Items[i] = calc.ComputeLineItem(q.Items[i])
	}
	q.Totals = calc.ComputeTotals(q.Items)
	e.quotation = q
}

// AddLineItem appends a fresh row and returns its id. The row starts with
// quantity 1, the default GST rate, zero money fields, and inherits the area
// of the previous last row once at creation.
func (e *Editor) AddLineItem() string {
	item := domain.LineItem{
		ID:         uuid.NewString(),
		Qty:        decimal.NewFromInt(1),
		GSTPercent: decimal.NewFromInt(domain.DefaultGSTPercent),
	}
	if n := len(e.quotation.Items); n > 0 {
		item.Area = e.quotation.Items[n-1].Area
	}
	item = calc.ComputeLineItem(item)
	e.quotation.Items = append(e.quotation.Items, item)
	e.recomputeTotals()
	return item.ID
}

// UpdateField applies raw cell text to an editable field of the row. Unknown
// ids and unknown fields are no-ops; numeric text is coerced so the operation
// is total over malformed input.
func (e *Editor) UpdateField(id string, field string, raw string) {
	idx := e.indexOf(id)
	if idx < 0 {
		return
	}
	item := &e.quotation.Items[idx]
	switch field {
	case domain.FieldArea:
		item.Area = strings.TrimSpace(raw)
	case domain.FieldSKUCode:
		item.SKUCode = strings.TrimSpace(raw)
	case domain.FieldMRP:
		item.MRP = calc.CoerceAmount(raw)
	case domain.FieldQty:
		item.Qty = calc.CoerceAmount(raw)
	case domain.FieldDiscPercent:
		item.DiscPercent = calc.CoerceAmount(raw)
	case domain.FieldGSTPercent:
		item.GSTPercent = calc.CoerceAmount(raw)
	default:
		return
	}
	*item = calc.ComputeLineItem(*item)
	e.recomputeTotals()
}

// SetProduct binds a product to the row in one step: product reference, SKU
// code, unit price on the current price list, the product's GST rate, and its
// default discount when the row has none of its own. The row is recomputed
// once, so no intermediate state is observable.
func (e *Editor) SetProduct(id string, product domain.Product) {
	idx := e.indexOf(id)
	if idx < 0 {
		return
	}
	item := &e.quotation.Items[idx]
	p := product
	item.Product = &p
	item.SKUCode = product.SKUCode
	item.MRP = product.PriceFor(e.quotation.PriceList)
	item.GSTPercent = product.GSTPercent
	if item.DiscPercent.IsZero() && !product.DiscPercent.IsZero() {
		item.DiscPercent = product.DiscPercent
	}
	if item.Qty.IsZero() {
		item.Qty = decimal.NewFromInt(1)
	}
	*item = calc.ComputeLineItem(*item)
	e.recomputeTotals()
}

// DeleteLineItem removes the row and reports whether anything was removed,
// so the caller can clear any grid references to it in the same operation.
func (e *Editor) DeleteLineItem(id string) bool {
	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}
	e.quotation.Items = append(e.quotation.Items[:idx], e.quotation.Items[idx+1:]...)
	e.recomputeTotals()
	return true
}

// Copy snapshots the named rows, in grid order, into the clipboard. Unknown
// ids are skipped; an empty selection leaves the clipboard untouched.
func (e *Editor) Copy(ids []string) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var snap []domain.LineItem
	for _, item := range e.quotation.Items {
		if wanted[item.ID] {
			snap = append(snap, cloneItem(item))
		}
	}
	if len(snap) == 0 {
		return
	}
	e.clipboard = snap
}

// Paste appends fresh copies of the clipboard rows (new ids, same values) and
// returns the new ids. Pasting with an empty clipboard is a no-op.
func (e *Editor) Paste() []string {
	if len(e.clipboard) == 0 {
		return nil
	}
	ids := make([]string, 0, len(e.clipboard))
	for _, item := range e.clipboard {
		copied := cloneItem(item)
		copied.ID = uuid.NewString()
		copied = calc.ComputeLineItem(copied)
		e.quotation.Items = append(e.quotation.Items, copied)
		ids = append(ids, copied.ID)
	}
	e.recomputeTotals()
	return ids
}

// ApplyOverallDiscount sets every row's discount percent, overriding any
// product-supplied default, and recomputes the whole sheet. Running it twice
// with the same percent is stable.
func (e *Editor) ApplyOverallDiscount(percent decimal.Decimal) {
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	for i := range e.quotation.Items {
		e.quotation.Items[i].DiscPercent = percent
		e.quotation.Items[i] = calc.ComputeLineItem(e.quotation.Items[i])
	}
	e.recomputeTotals()
}

// SetPriceList switches the quotation to the named price list and re-prices
// every row whose product carries a price map, falling back to the canonical
// MRP entry when the list is absent. Rows without a priced product keep their
// unit price. The new list name is recorded even when nothing re-priced.
func (e *Editor) SetPriceList(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.PriceListMRP
	}
	e.quotation.PriceList = name
	for i := range e.quotation.Items {
		item := &e.quotation.Items[i]
		if item.Product == nil || len(item.Product.Prices) == 0 {
			continue
		}
		item.MRP = item.Product.PriceFor(name)
		*item = calc.ComputeLineItem(*item)
	}
	e.recomputeTotals()
}

// ResolveSKU looks the code up through the resolver and, on a match, applies
// the first result to the row exactly like SetProduct. No match, a transport
// failure, or an unknown row leave the quotation untouched and return
// ErrNoMatch.
func (e *Editor) ResolveSKU(ctx context.Context, id string, sku string) (*domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" || e.resolver == nil || e.indexOf(id) < 0 {
		return nil, ErrNoMatch
	}
	products, err := e.resolver.Search(ctx, sku, e.quotation.PriceList)
	if err != nil || len(products) == 0 {
		return nil, ErrNoMatch
	}
	product := products[0]
	e.SetProduct(id, product)
	return &product, nil
}

// Header field setters. These never touch line items or totals.

func (e *Editor) SetParty(name string)       { e.quotation.Party = strings.TrimSpace(name) }
func (e *Editor) SetSalesman(name string)    { e.quotation.Salesman = strings.TrimSpace(name) }
func (e *Editor) SetReferenceBy(name string) { e.quotation.ReferenceBy = strings.TrimSpace(name) }
func (e *Editor) SetRemark(remark string)    { e.quotation.Remark = remark }
func (e *Editor) SetEmail(email string)      { e.quotation.Email = strings.TrimSpace(email) }

func (e *Editor) PriceList() string { return e.quotation.PriceList }

// Row returns a copy of the row by id.
func (e *Editor) Row(id string) (domain.LineItem, bool) {
	idx := e.indexOf(id)
	if idx < 0 {
		return domain.LineItem{}, false
	}
	return cloneItem(e.quotation.Items[idx]), true
}

// Rows returns a copy of the ordered line items.
func (e *Editor) Rows() []domain.LineItem {
	rows := make([]domain.LineItem, len(e.quotation.Items))
	for i, item := range e.quotation.Items {
		rows[i] = cloneItem(item)
	}
	return rows
}

// RowIndex returns the position of the row in grid order, or -1.
func (e *Editor) RowIndex(id string) int { return e.indexOf(id) }

// RowIDAt returns the id of the row at the position, or "".
func (e *Editor) RowIDAt(index int) string {
	if index < 0 || index >= len(e.quotation.Items) {
		return ""
	}
	return e.quotation.Items[index].ID
}

func (e *Editor) RowCount() int { return len(e.quotation.Items) }

// Snapshot returns an immutable copy of the working quotation with fresh
// totals.
func (e *Editor) Snapshot() domain.Quotation {
	q := e.quotation
	q.Items = e.Rows()
	q.Totals = calc.ComputeTotals(e.quotation.Items)
	return q
}

func (e *Editor) Totals() domain.Totals { return e.quotation.Totals }

func (e *Editor) indexOf(id string) int {
	for i, item := range e.quotation.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) recomputeTotals() {
	e.quotation.Totals = calc.ComputeTotals(e.quotation.Items)
}

func cloneItem(item domain.LineItem) domain.LineItem {
	if item.Product != nil {
		p := *item.Product
		if p.Prices != nil {
			prices := make(map[string]decimal.Decimal, len(p.Prices))
			for k, v := range p.Prices {
				prices[k] = v
			}
			p.Prices = prices
		}
		item.Product = &p
	}
	return item
}
