// Package confidence scores how far an extracted purchase order can be trusted.
package confidence

import (
	"math"

	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

const (
	// ReviewThreshold is the score below which a result always needs review.
	ReviewThreshold = 0.8

	countMismatchPenalty  = 0.3
	missingTotalPenalty   = 0.2
	criticalFieldsPenalty = 0.1
	duplicatePenalty      = 0.1

	// criticalFieldsRatio is the share of items that may lack a style code or quantity.
	criticalFieldsRatio = 0.2
)

// Score returns a heuristic trust score in [0,1], rounded to two decimals.
func Score(po entity.PurchaseOrder) float64 {
	s := 1.0
	// Normalize recounts TotalItems, so this only trips for hand-built orders.
	// A producer's wrong count is logged by the pipeline and not penalized.
	if po.Header.TotalItems != len(po.Items) {
		s -= countMismatchPenalty
	}
	if po.Header.TotalValue == nil {
		s -= missingTotalPenalty
	}
	if n := len(po.Items); n > 0 && float64(missingCritical(po.Items))/float64(n) > criticalFieldsRatio {
		s -= criticalFieldsPenalty
	}
	if hasDuplicates(po.Items) {
		s -= duplicatePenalty
	}
	return round2(clamp(s))
}

// Evaluate scores po and decides whether it needs review. Validation errors only
// ever force review; they never change the score.
func Evaluate(po entity.PurchaseOrder, errs []entity.ValidationError) (float64, bool) {
	s := Score(po)
	return s, s < ReviewThreshold || len(errs) > 0
}

func missingCritical(items []entity.LineItem) int {
	n := 0
	for _, it := range items {
		if it.VendorStyleCode == "" || it.Qty() == 0 {
			n++
		}
	}
	return n
}

func hasDuplicates(items []entity.LineItem) bool {
	seen := make(map[entity.ItemKey]struct{}, len(items))
	for _, it := range items {
		k, ok := it.Key()
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
