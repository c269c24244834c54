package entity

// PurchaseOrderHeader is the canonical PO header.
type PurchaseOrderHeader struct {
	PONumber        string   `json:"poNumber"`
	PODate          string   `json:"poDate"`
	ClientName      string   `json:"clientName"`
	TotalItems      int      `json:"totalItems"`
	IncompleteItems int      `json:"incompleteItems"`
	TotalValue      *float64 `json:"totalValue"`
	Status          string   `json:"status"`
}

// LineItem is one ordered row of a purchase order.
type LineItem struct {
	VendorStyleCode               string   `json:"vendorStyleCode"`
	ItemRefNo                     string   `json:"itemRefNo"`
	ItemPoNo                      string   `json:"itemPoNo"`
	InvoiceNumber                 string   `json:"invoiceNumber"`
	OrderQty                      *float64 `json:"orderQty"`
	Metal                         string   `json:"metal"`
	Tone                          string   `json:"tone"`
	Category                      string   `json:"category"`
	StockType                     *string  `json:"stockType"`
	MakeType                      *string  `json:"makeType"`
	CustomerProductionInstruction *string  `json:"customerProductionInstruction"`
	SpecialRemarks                *string  `json:"specialRemarks"`
	DesignProductionInstruction   *string  `json:"designProductionInstruction"`
	StampInstruction              *string  `json:"stampInstruction"`
	ItemSize                      *string  `json:"itemSize"`
	DeadlineDate                  *string  `json:"deadlineDate"`
	ShippingDate                  *string  `json:"shippingDate"`
	IsIncomplete                  bool     `json:"isIncomplete"`
}

// ItemKey identifies a line item for duplicate detection.
type ItemKey struct {
	VendorStyleCode string
	ItemRefNo       string
}

// Key returns the duplicate-detection key. ok is false when both parts are empty,
// in which case the item never participates in duplicate checks.
func (li LineItem) Key() (ItemKey, bool) {
	k := ItemKey{VendorStyleCode: li.VendorStyleCode, ItemRefNo: li.ItemRefNo}
	return k, k.VendorStyleCode != "" || k.ItemRefNo != ""
}

// Qty returns the order quantity, 0 when absent.
func (li LineItem) Qty() float64 {
	if li.OrderQty == nil {
		return 0
	}
	return *li.OrderQty
}

// PurchaseOrder is a header plus its ordered items, the unit the validator and scorer work on.
type PurchaseOrder struct {
	Header PurchaseOrderHeader `json:"po"`
	Items  []LineItem          `json:"items"`
}

// ExtractionResult is what one extraction attempt produces. A fresh value is built per attempt.
type ExtractionResult struct {
	PurchaseOrder
	Confidence  float64           `json:"confidence"`
	NeedsReview bool              `json:"needsReview"`
	Errors      []ValidationError `json:"errors"`
	Attempts    int               `json:"attempts"`
}
