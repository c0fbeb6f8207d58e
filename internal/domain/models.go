package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultGSTPercent is applied to every new line until a product or the
	// user says otherwise.
	DefaultGSTPercent = 18

	// PriceListMRP is the canonical price list. Every product price map is
	// expected to carry an entry under this name.
	PriceListMRP = "MRP"
)

// Editable line-item fields accepted by field-update operations. Derived
// amount fields are never settable directly.
const (
	FieldArea        = "area"
	FieldSKUCode     = "skuCode"
	FieldMRP         = "mrp"
	FieldQty         = "qty"
	FieldDiscPercent = "discPercent"
	FieldGSTPercent  = "gstPercent"
)

type Product struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	SKUCode     string                     `json:"sku_code"`
	Description string                     `json:"description,omitempty"`
	MRP         decimal.Decimal            `json:"mrp"`
	DiscPercent decimal.Decimal            `json:"disc_percent"`
	GSTPercent  decimal.Decimal            `json:"gst_percent"`
	ImageURL    string                     `json:"image_url,omitempty"`
	Category    string                     `json:"category,omitempty"`
	Company     string                     `json:"company,omitempty"`
	Prices      map[string]decimal.Decimal `json:"prices,omitempty"`
}

// PriceFor returns the product's unit price on the named price list, falling
// back to the canonical MRP entry and then to the MRP field itself.
func (p Product) PriceFor(priceList string) decimal.Decimal {
	if price, ok := p.Prices[priceList]; ok {
		return price
	}
	if price, ok := p.Prices[PriceListMRP]; ok {
		return price
	}
	return p.MRP
}

type LineItem struct {
	ID      string   `json:"id"`
	Area    string   `json:"area"`
	SKUCode string   `json:"sku_code"`
	Product *Product `json:"product,omitempty"`

	MRP         decimal.Decimal `json:"mrp"`
	Qty         decimal.Decimal `json:"qty"`
	DiscPercent decimal.Decimal `json:"disc_percent"`
	GSTPercent  decimal.Decimal `json:"gst_percent"`

	GrossAmount   decimal.Decimal `json:"gross_amount"`
	DiscAmount    decimal.Decimal `json:"disc_amount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	GSTAmount     decimal.Decimal `json:"gst_amount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

type Totals struct {
	TotalItems     int             `json:"total_items"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	GSTAmount      decimal.Decimal `json:"gst_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
}

type Quotation struct {
	ID          string     `json:"id,omitempty"`
	VoucherNo   string     `json:"voucher_no,omitempty"`
	VoucherDate time.Time  `json:"voucher_date"`
	Party       string     `json:"party"`
	ReferenceBy string     `json:"reference_by,omitempty"`
	Salesman    string     `json:"salesman,omitempty"`
	Remark      string     `json:"remark,omitempty"`
	Email       string     `json:"email,omitempty"`
	PriceList   string     `json:"price_list"`
	Items       []LineItem `json:"items"`
	Totals      Totals     `json:"totals"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	City  string `json:"city,omitempty"`
	Phone string `json:"phone,omitempty"`
	GSTIN string `json:"gstin,omitempty"`
}

type Salesman struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PriceList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type QuotationFilter struct {
	Party    string
	Salesman string
	From     time.Time
	To       time.Time
	Limit    int
}

type SaveQuotationResponse struct {
	ID        string `json:"id"`
	VoucherNo string `json:"voucher_no"`
	UpdatedAt string `json:"updated_at"`
}

type ProductSearchResponse struct {
	Products  []Product `json:"products"`
	LatencyMS int64     `json:"latency_ms"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Editor session DTOs for the HTTP surface.

type OpenSessionRequest struct {
	QuotationID string `json:"quotation_id,omitempty"`
	PriceList   string `json:"price_list,omitempty"`
}

type OpenSessionResponse struct {
	SessionID string    `json:"session_id"`
	Quotation Quotation `json:"quotation"`
}

type KeyEventRequest struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Text  string `json:"text,omitempty"`
}

type EditorCommandRequest struct {
	Command   string   `json:"command"`
	RowID     string   `json:"row_id,omitempty"`
	Column    string   `json:"column,omitempty"`
	Field     string   `json:"field,omitempty"`
	Value     string   `json:"value,omitempty"`
	RowIDs    []string `json:"row_ids,omitempty"`
	ProductID string   `json:"product_id,omitempty"`
	Percent   string   `json:"percent,omitempty"`
	PriceList string   `json:"price_list,omitempty"`
	Party     string   `json:"party,omitempty"`
	Salesman  string   `json:"salesman,omitempty"`
	Remark    string   `json:"remark,omitempty"`
	Email     string   `json:"email,omitempty"`
}
