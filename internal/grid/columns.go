package grid

import "quotedesk/backend/internal/domain"

// Column identifies a grid column. The order below is the static layout
// order: a structural row-number column, the editable input columns, then the
// derived amount columns and the row actions, which never take focus.
type Column string

const (
	ColRowNo   Column = "rowNo"
	ColArea    Column = "area"
	ColSKUCode Column = "skuCode"
	ColProduct Column = "product"
	ColMRP     Column = "mrp"
	ColQty     Column = "qty"
	ColDisc    Column = "discPercent"
	ColGST     Column = "gstPercent"

	ColGrossAmount   Column = "grossAmount"
	ColDiscAmount    Column = "discAmount"
	ColTaxableAmount Column = "taxableAmount"
	ColGSTAmount     Column = "gstAmount"
	ColNetAmount     Column = "netAmount"
	ColActions       Column = "actions"
)

// navStops are the columns focus can land on, in traversal order. The product
// column is a stop, but activating it opens the lookup dialog instead of a
// text edit.
var navStops = []Column{ColArea, ColSKUCode, ColProduct, ColMRP, ColQty, ColDisc, ColGST}

func navIndex(col Column) int {
	for i, stop := range navStops {
		if stop == col {
			return i
		}
	}
	return -1
}

// textEditable reports whether the column takes buffered text editing.
func textEditable(col Column) bool {
	return navIndex(col) >= 0 && col != ColProduct
}

// nextEditable returns the next text-editable column after col, skipping the
// product stop. ok is false past the row's last editable column.
func nextEditable(col Column) (Column, bool) {
	for i := navIndex(col) + 1; i < len(navStops); i++ {
		if navStops[i] != ColProduct {
			return navStops[i], true
		}
	}
	return "", false
}

// fieldFor maps a column to the editor field it commits into.
func fieldFor(col Column) (string, bool) {
	switch col {
	case ColArea:
		return domain.FieldArea, true
	case ColSKUCode:
		return domain.FieldSKUCode, true
	case ColMRP:
		return domain.FieldMRP, true
	case ColQty:
		return domain.FieldQty, true
	case ColDisc:
		return domain.FieldDiscPercent, true
	case ColGST:
		return domain.FieldGSTPercent, true
	default:
		return "", false
	}
}

// cellText returns the raw text shown when a cell opens for editing.
func cellText(item domain.LineItem, col Column) string {
	switch col {
	case ColArea:
		return item.Area
	case ColSKUCode:
		return item.SKUCode
	case ColMRP:
		return item.MRP.String()
	case ColQty:
		return item.Qty.String()
	case ColDisc:
		return item.DiscPercent.String()
	case ColGST:
		return item.GSTPercent.String()
	default:
		return ""
	}
}
