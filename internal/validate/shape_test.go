package validate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

func parse(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return v
}

func TestShapeAcceptsWellFormedDocuments(t *testing.T) {
	for _, in := range []string{
		`{}`,
		`{"po":{},"items":[]}`,
		`{"po":null,"items":null}`,
		`{"client_name":"x","lines":[{"VendorStyleCode":"A"}]}`,
	} {
		if errs := Shape(parse(t, in)); len(errs) != 0 {
			t.Errorf("Shape(%s) = %v, want none", in, errs)
		}
	}
}

func TestShapeReportsDiscardedStructure(t *testing.T) {
	errs := Shape(parse(t, `{"po":"x","items":[{},"y"]}`))
	if len(errs) != 2 {
		t.Fatalf("Shape() = %v, want 2 errors", errs)
	}
	var sawItem bool
	for _, e := range errs {
		if e.Kind != entity.TypeMismatch {
			t.Errorf("Shape() kind = %s, want TypeMismatch", e.Kind)
		}
		if e.ItemIndex != nil {
			sawItem = true
			if *e.ItemIndex != 1 || !strings.HasPrefix(e.Message, "items/1") {
				t.Errorf("item error = %+v, want index 1", e)
			}
		}
	}
	if !sawItem {
		t.Errorf("Shape() = %v, want an item-level error", errs)
	}
}

func TestShapeRejectsNonObjectRoot(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"text"`, `null`} {
		errs := Shape(parse(t, in))
		if len(errs) != 1 || errs[0].Kind != entity.TypeMismatch || errs[0].ItemIndex != nil {
			t.Errorf("Shape(%s) = %v, want one document-level TypeMismatch", in, errs)
		}
	}
}
