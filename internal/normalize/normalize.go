// Package normalize coerces a parsed model response into a fully typed purchase order.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

// Key aliases, canonical name first. The flat snake_case and PascalCase spellings
// come from the legacy response shape and are still accepted.
var (
	headerKeys    = []string{"po", "header"}
	itemsKeys     = []string{"items", "lines"}
	poNumberKeys  = []string{"poNumber", "po_number", "invoice_number"}
	poDateKeys    = []string{"poDate", "po_date", "invoice_date"}
	clientKeys    = []string{"clientName", "client_name"}
	totalValKeys  = []string{"totalValue", "total_value"}
	totalItemKeys = []string{"totalItems", "total_items", "total_entries"}
)

// field lists the accepted spellings of an item key: camelCase, PascalCase, then aliases.
func field(canonical string, aliases ...string) []string {
	pascal := strings.ToUpper(canonical[:1]) + canonical[1:]
	return append([]string{canonical, pascal}, aliases...)
}

var (
	fVendorStyleCode = field("vendorStyleCode", "vendor_style_code")
	fItemRefNo       = field("itemRefNo", "item_ref_no")
	fItemPoNo        = field("itemPoNo", "item_po_no")
	fInvoiceNumber   = field("invoiceNumber", "invoice_number")
	fOrderQty        = field("orderQty", "order_qty", "qty")
	fMetal           = field("metal")
	fTone            = field("tone")
	fCategory        = field("category")
	fStockType       = field("stockType", "stock_type")
	fMakeType        = field("makeType", "make_type")
	fCustomerProd    = field("customerProductionInstruction")
	fSpecialRemarks  = field("specialRemarks")
	fDesignProd      = field("designProductionInstruction")
	fStamp           = field("stampInstruction")
	fItemSize        = field("itemSize", "item_size")
	fDeadlineDate    = field("deadlineDate", "deadline_date")
	fShippingDate    = field("shippingDate", "shipping_date")
	fIsIncomplete    = field("isIncomplete", "is_incomplete")
)

// Normalize maps any parsed JSON value onto the canonical purchase order.
// Missing structure becomes defaults; entries of items that are not objects are
// dropped. totalItems and incompleteItems are always recomputed, so
// Normalize(Normalize(x)) == Normalize(x) once round-tripped through JSON.
func Normalize(doc any) entity.PurchaseOrder {
	root, _ := doc.(map[string]any)

	header, ok := lookup(root, headerKeys...)
	hdr, isMap := header.(map[string]any)
	if !ok || !isMap {
		// legacy flat shape keeps header fields at the root
		hdr = root
	}

	items := normalizeItems(root)
	po := entity.PurchaseOrder{
		Header: entity.PurchaseOrderHeader{
			PONumber:   str(hdr, poNumberKeys...),
			PODate:     str(hdr, poDateKeys...),
			ClientName: str(hdr, clientKeys...),
			TotalValue: optionalNumber(hdr, totalValKeys...),
			Status:     constants.POStatus,
		},
		Items: items,
	}
	Recount(&po)
	return po
}

// Recount overwrites totalItems and incompleteItems from the items list.
func Recount(po *entity.PurchaseOrder) {
	po.Header.TotalItems = len(po.Items)
	n := 0
	for _, it := range po.Items {
		if it.IsIncomplete {
			n++
		}
	}
	po.Header.IncompleteItems = n
}

// DeclaredTotalItems returns the item count the producer claimed, if any.
func DeclaredTotalItems(doc any) (int, bool) {
	root, _ := doc.(map[string]any)
	hdr := root
	if h, ok := lookup(root, headerKeys...); ok {
		if m, isMap := h.(map[string]any); isMap {
			hdr = m
		}
	}
	v, ok := lookup(hdr, totalItemKeys...)
	if !ok || v == nil {
		return 0, false
	}
	f, ok := toNumber(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func normalizeItems(root map[string]any) []entity.LineItem {
	raw, _ := lookup(root, itemsKeys...)
	list, _ := raw.([]any)
	items := make([]entity.LineItem, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, normalizeItem(m))
	}
	return items
}

func normalizeItem(m map[string]any) entity.LineItem {
	qty := number(m, fOrderQty...)
	incomplete := true
	if v, ok := lookup(m, fIsIncomplete...); ok {
		if b, isBool := v.(bool); isBool {
			incomplete = b
		}
	}
	return entity.LineItem{
		VendorStyleCode:               str(m, fVendorStyleCode...),
		ItemRefNo:                     str(m, fItemRefNo...),
		ItemPoNo:                      str(m, fItemPoNo...),
		InvoiceNumber:                 str(m, fInvoiceNumber...),
		OrderQty:                      &qty,
		Metal:                         canonical(constants.Metals, str(m, fMetal...)),
		Tone:                          canonical(constants.Tones, str(m, fTone...)),
		Category:                      canonical(constants.Categories, str(m, fCategory...)),
		StockType:                     canonicalPtr(constants.StockTypes, optionalStr(m, fStockType...)),
		MakeType:                      canonicalPtr(constants.MakeTypes, optionalStr(m, fMakeType...)),
		CustomerProductionInstruction: optionalStr(m, fCustomerProd...),
		SpecialRemarks:                optionalStr(m, fSpecialRemarks...),
		DesignProductionInstruction:   optionalStr(m, fDesignProd...),
		StampInstruction:              optionalStr(m, fStamp...),
		ItemSize:                      optionalStr(m, fItemSize...),
		DeadlineDate:                  optionalStr(m, fDeadlineDate...),
		ShippingDate:                  optionalStr(m, fShippingDate...),
		IsIncomplete:                  incomplete,
	}
}

// lookup returns the value of the first key present in m, even when it is null.
func lookup(m map[string]any, keys ...string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func str(m map[string]any, keys ...string) string {
	v, _ := lookup(m, keys...)
	return stringify(v)
}

func optionalStr(m map[string]any, keys ...string) *string {
	v, ok := lookup(m, keys...)
	if !ok || v == nil {
		return nil
	}
	s := stringify(v)
	return &s
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func number(m map[string]any, keys ...string) float64 {
	v, _ := lookup(m, keys...)
	f, _ := toNumber(v)
	return f
}

// optionalNumber keeps null and absent apart from zero; anything present that
// does not parse becomes 0.
func optionalNumber(m map[string]any, keys ...string) *float64 {
	v, ok := lookup(m, keys...)
	if !ok || v == nil {
		return nil
	}
	f, _ := toNumber(v)
	return &f
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func canonical(v constants.Vocabulary, s string) string {
	out, _ := v.Canonicalize(s)
	return out
}

func canonicalPtr(v constants.Vocabulary, s *string) *string {
	if s == nil {
		return nil
	}
	out := canonical(v, *s)
	return &out
}
