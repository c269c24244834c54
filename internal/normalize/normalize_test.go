package normalize

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return v
}

func roundTrip(t *testing.T, po entity.PurchaseOrder) any {
	t.Helper()
	b, err := json.Marshal(po)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return decode(t, string(b))
}

func TestNormalizeCleanDocumentIsUnchanged(t *testing.T) {
	raw, err := os.ReadFile("testdata/clean_po.json")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	doc := decode(t, string(raw))
	got := roundTrip(t, Normalize(doc))
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("Normalize() = %#v\nwant %#v", got, doc)
	}
}

func TestNormalizeFixedPoint(t *testing.T) {
	inputs := []string{
		`{}`,
		`[]`,
		`"just a string"`,
		`{"po":{"poNumber":" PO-7 ","totalValue":"1,250.00","totalItems":9},"items":[{"orderQty":"3"},{"orderQty":null,"isIncomplete":"no"},7]}`,
		`{"client_name":"Acme","invoice_number":42,"lines":[{"VendorStyleCode":"V1","OrderQty":"x","Metal":"g14kt"}]}`,
		`{"po":{"poNumber":"1","totalValue":null},"items":[{"stockType":"studded gold jewellery ic","itemSize":7,"specialRemarks":{"a":1}}]}`,
	}
	for _, in := range inputs {
		once := Normalize(decode(t, in))
		twice := Normalize(roundTrip(t, once))
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize not a fixed point for %s:\nonce  %+v\ntwice %+v", in, once, twice)
		}
	}
}

func TestNormalizeRecomputesTotals(t *testing.T) {
	po := Normalize(decode(t, `{"po":{"totalItems":3,"incompleteItems":0},"items":[{"vendorStyleCode":"A"}]}`))
	if po.Header.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", po.Header.TotalItems)
	}
	if po.Header.IncompleteItems != 1 {
		t.Errorf("IncompleteItems = %d, want 1", po.Header.IncompleteItems)
	}
	if n, ok := DeclaredTotalItems(decode(t, `{"po":{"totalItems":3}}`)); !ok || n != 3 {
		t.Errorf("DeclaredTotalItems() = %d, %v, want 3, true", n, ok)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	for _, in := range []string{`null`, `{}`, `[1,2]`, `{"po":"oops","items":"nope"}`} {
		po := Normalize(decode(t, in))
		if po.Header.Status != "PENDING" {
			t.Errorf("%s: Status = %q, want PENDING", in, po.Header.Status)
		}
		if po.Header.TotalValue != nil {
			t.Errorf("%s: TotalValue = %v, want nil", in, *po.Header.TotalValue)
		}
		if po.Items == nil || len(po.Items) != 0 {
			t.Errorf("%s: Items = %#v, want empty slice", in, po.Items)
		}
	}
}

func TestNormalizeItemCoercion(t *testing.T) {
	po := Normalize(decode(t, `{"items":[
		{"orderQty":"1,200","isIncomplete":false},
		{"orderQty":"abc","isIncomplete":"false"},
		{"orderQty":null},
		{"orderQty":-2,"isIncomplete":true,"itemSize":7.5,"stockType":null},
		"not an item"
	]}`))
	if len(po.Items) != 4 {
		t.Fatalf("len(Items) = %d, want 4", len(po.Items))
	}
	wantQty := []float64{1200, 0, 0, -2}
	wantIncomplete := []bool{false, true, true, true}
	for i, it := range po.Items {
		if it.OrderQty == nil || *it.OrderQty != wantQty[i] {
			t.Errorf("item %d OrderQty = %v, want %v", i, it.OrderQty, wantQty[i])
		}
		if it.IsIncomplete != wantIncomplete[i] {
			t.Errorf("item %d IsIncomplete = %v, want %v", i, it.IsIncomplete, wantIncomplete[i])
		}
	}
	if it := po.Items[3]; it.ItemSize == nil || *it.ItemSize != "7.5" || it.StockType != nil {
		t.Errorf("item 3 ItemSize = %v StockType = %v, want \"7.5\" and nil", it.ItemSize, it.StockType)
	}
	if po.Header.IncompleteItems != 3 {
		t.Errorf("IncompleteItems = %d, want 3", po.Header.IncompleteItems)
	}
}

func TestNormalizeLegacyShape(t *testing.T) {
	po := Normalize(decode(t, `{
		"client_name":" Acme Jewels ","invoice_number":"PO9","invoice_date":"2024-02-03",
		"total_value":"1,000.50","total_entries":5,
		"lines":[{"VendorStyleCode":"V1","ItemRefNo":"R1","OrderQty":"3","Metal":"g14kt","Tone":"yw","Category":"RING","StockType":"normal","MakeType":"hip hop"}]
	}`))
	h := po.Header
	if h.ClientName != "Acme Jewels" || h.PONumber != "PO9" || h.PODate != "2024-02-03" {
		t.Errorf("Header = %+v", h)
	}
	if h.TotalValue == nil || *h.TotalValue != 1000.50 {
		t.Errorf("TotalValue = %v, want 1000.50", h.TotalValue)
	}
	if h.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", h.TotalItems)
	}
	it := po.Items[0]
	if it.VendorStyleCode != "V1" || it.ItemRefNo != "R1" || it.Qty() != 3 {
		t.Errorf("item = %+v", it)
	}
	if it.Metal != "G14KT" || it.Tone != "YW" || it.Category != "Ring" {
		t.Errorf("vocab = %q %q %q, want G14KT YW Ring", it.Metal, it.Tone, it.Category)
	}
	if it.StockType == nil || *it.StockType != "Normal" || it.MakeType == nil || *it.MakeType != "HIP HOP" {
		t.Errorf("StockType = %v MakeType = %v", it.StockType, it.MakeType)
	}
}

func TestNormalizeNeverGuessesVocabulary(t *testing.T) {
	po := Normalize(decode(t, `{"items":[{"metal":"14K","tone":"Yellow","category":"Rings"}]}`))
	it := po.Items[0]
	if it.Metal != "14K" || it.Tone != "Yellow" || it.Category != "Rings" {
		t.Errorf("vocab = %q %q %q, want values kept as-is", it.Metal, it.Tone, it.Category)
	}
}

func TestNormalizeDefaultsMissingOrderQty(t *testing.T) {
	po := Normalize(decode(t, `{"items":[{"vendorStyleCode":"A"},{"vendorStyleCode":"B","orderQty":{}}]}`))
	for i, it := range po.Items {
		if it.OrderQty == nil || *it.OrderQty != 0 {
			t.Errorf("item %d OrderQty = %v, want 0", i, it.OrderQty)
		}
	}
}
