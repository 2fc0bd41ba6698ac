package models

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination metadata.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

type Supplier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
	CreatedAt   string `json:"created_at"`
}

type Unit struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// UnitConversion is a directed edge: 1 from_unit = factor to_units.
// Factor is decimal text to avoid binary-float drift across conversions.
type UnitConversion struct {
	ID         int64  `json:"id"`
	FromUnitID int64  `json:"from_unit_id"`
	ToUnitID   int64  `json:"to_unit_id"`
	Factor     string `json:"factor"`
}

type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"` // goods or service
	UnitID         int64   `json:"unit_id"`
	PurchaseUnitID int64   `json:"purchase_unit_id"`
	SellPrice      float64 `json:"sell_price"`
	BuyPrice       float64 `json:"buy_price"`
	Notes          string  `json:"notes"`
	CreatedAt      string  `json:"created_at"`
}

// ProductStock is the on-hand split for one product.
// available is kept denormalized as quantity - reserved.
type ProductStock struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Reserved  float64 `json:"reserved"`
	Available float64 `json:"available"`
	UpdatedAt string  `json:"updated_at"`
}

// StockMovement is an append-only audit record of a stock delta.
type StockMovement struct {
	ID        int64   `json:"id"`
	ProductID string  `json:"product_id"`
	Type      string  `json:"type"`
	Qty       float64 `json:"qty"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"created_at"`
}

type StockOpname struct {
	ID         int64   `json:"id"`
	ProductID  string  `json:"product_id"`
	SystemQty  float64 `json:"system_qty"`
	ActualQty  float64 `json:"actual_qty"`
	Difference float64 `json:"difference"`
	Notes      string  `json:"notes"`
	CreatedBy  string  `json:"created_by"`
	CreatedAt  string  `json:"created_at"`
}

type Quotation struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Title      string          `json:"title"`
	Status     string          `json:"status"`
	Total      float64         `json:"total"`
	ValidUntil string          `json:"valid_until"`
	Notes      string          `json:"notes"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  string          `json:"created_at"`
	AcceptedAt *string         `json:"accepted_at,omitempty"`
	Items      []QuotationItem `json:"items,omitempty"`
}

type QuotationItem struct {
	ID          int64   `json:"id"`
	QuotationID string  `json:"quotation_id"`
	ProductID   string  `json:"product_id"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
}

type Project struct {
	ID          string        `json:"id"`
	QuotationID string        `json:"quotation_id"`
	CustomerID  string        `json:"customer_id"`
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	Address     string        `json:"address"`
	Notes       string        `json:"notes"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	CompletedAt *string       `json:"completed_at,omitempty"`
	Items       []ProjectItem `json:"items,omitempty"`
}

// ProjectItem carries the procurement flags: needs_po is true iff available
// stock was below the requested quantity at the last evaluation, and
// reserved_qty is the amount actually earmarked from available.
type ProjectItem struct {
	ID          int64   `json:"id"`
	ProjectID   string  `json:"project_id"`
	ProductID   string  `json:"product_id"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	ReturnedQty float64 `json:"returned_qty"`
	ReservedQty float64 `json:"reserved_qty"`
	UnitPrice   float64 `json:"unit_price"`
	NeedsPO     bool    `json:"needs_po"`
	POStatus    string  `json:"po_status"`
}

type PurchaseOrder struct {
	ID         string   `json:"id"`
	SupplierID string   `json:"supplier_id"`
	ProjectID  string   `json:"project_id"`
	Status     string   `json:"status"`
	Total      float64  `json:"total"`
	Notes      string   `json:"notes"`
	CreatedBy  string   `json:"created_by"`
	CreatedAt  string   `json:"created_at"`
	OrderedAt  *string  `json:"ordered_at,omitempty"`
	ReceivedAt *string  `json:"received_at,omitempty"`
	Items      []POItem `json:"items,omitempty"`
}

type POItem struct {
	ID            int64   `json:"id"`
	POID          string  `json:"po_id"`
	ProductID     string  `json:"product_id"`
	ProjectItemID int64   `json:"project_item_id"`
	Description   string  `json:"description"`
	Qty           float64 `json:"qty"`
	QtyReceived   float64 `json:"qty_received"`
	UnitID        int64   `json:"unit_id"`
	UnitPrice     float64 `json:"unit_price"`
}

type Invoice struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	Total      float64   `json:"total"`
	Paid       float64   `json:"paid"`
	DueDate    string    `json:"due_date"`
	Notes      string    `json:"notes"`
	CreatedAt  string    `json:"created_at"`
	PaidAt     *string   `json:"paid_at,omitempty"`
	Payments   []Payment `json:"payments,omitempty"`
}

type Payment struct {
	ID        int64   `json:"id"`
	InvoiceID string  `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"created_at"`
}

type Warranty struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	ProductID string `json:"product_id"`
	Months    int    `json:"months"`
	StartsOn  string `json:"starts_on"`
	ExpiresOn string `json:"expires_on"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

type WarrantyClaim struct {
	ID         string  `json:"id"`
	WarrantyID string  `json:"warranty_id"`
	Issue      string  `json:"issue"`
	Status     string  `json:"status"`
	Resolution string  `json:"resolution"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

type CashflowEntry struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"` // in or out
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	EntryDate string  `json:"entry_date"`
	CreatedAt string  `json:"created_at"`
}
