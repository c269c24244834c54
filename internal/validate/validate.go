// Package validate checks business invariants of a normalized purchase order.
package validate

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

// Validate runs every rule against po and returns the findings in rule order:
// required header fields, item count, total value, per-item quantity, duplicates.
// It never mutates po.
func Validate(po entity.PurchaseOrder) []entity.ValidationError {
	errs := make([]entity.ValidationError, 0)
	h := po.Header

	for _, f := range []struct{ name, value string }{
		{"poNumber", h.PONumber},
		{"poDate", h.PODate},
		{"clientName", h.ClientName},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, entity.ValidationError{
				Kind:    entity.MissingRequiredField,
				Message: f.name + " is required",
			})
		}
	}

	if h.TotalItems != len(po.Items) {
		errs = append(errs, entity.ValidationError{
			Kind:    entity.CountMismatch,
			Message: fmt.Sprintf("totalItems is %d but %d items were extracted", h.TotalItems, len(po.Items)),
		})
	}

	switch {
	case h.TotalValue == nil:
		errs = append(errs, entity.ValidationError{
			Kind:    entity.MissingRequiredField,
			Message: "totalValue is required",
		})
	case *h.TotalValue < 0:
		errs = append(errs, entity.ValidationError{
			Kind:    entity.NegativeValue,
			Message: fmt.Sprintf("totalValue must not be negative (got %v)", *h.TotalValue),
		})
	}

	for i, it := range po.Items {
		switch {
		// Normalize always sets OrderQty; nil only comes from direct callers.
		case it.OrderQty == nil:
			errs = append(errs, entity.NewItemError(entity.MissingRequiredField, i, "orderQty is required"))
		case *it.OrderQty < 0:
			errs = append(errs, entity.NewItemError(entity.NegativeValue, i, "orderQty must not be negative (got %v)", *it.OrderQty))
		}
	}

	return append(errs, Duplicates(po.Items)...)
}

// Duplicates reports one DuplicateItem per repeat of a (vendorStyleCode, itemRefNo)
// key. Items with both parts empty are never considered duplicates.
func Duplicates(items []entity.LineItem) []entity.ValidationError {
	var errs []entity.ValidationError
	seen := make(map[entity.ItemKey]int, len(items))
	for i, it := range items {
		k, ok := it.Key()
		if !ok {
			continue
		}
		if first, dup := seen[k]; dup {
			errs = append(errs, entity.NewItemError(entity.DuplicateItem, i,
				"duplicate of item %d (vendorStyleCode=%q, itemRefNo=%q)", first, k.VendorStyleCode, k.ItemRefNo))
			continue
		}
		seen[k] = i
	}
	return errs
}
