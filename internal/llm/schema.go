package llm

// BuildPurchaseOrderJSONSchema returns the result contract as a JSON-Schema map.
// Every result leaving the service is checked against it.
func BuildPurchaseOrderJSONSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendorStyleCode":               map[string]any{"type": "string"},
			"itemRefNo":                     map[string]any{"type": "string"},
			"itemPoNo":                      map[string]any{"type": "string"},
			"invoiceNumber":                 map[string]any{"type": "string"},
			"orderQty":                      map[string]any{"type": []string{"number", "null"}},
			"metal":                         map[string]any{"type": "string"},
			"tone":                          map[string]any{"type": "string"},
			"category":                      map[string]any{"type": "string"},
			"stockType":                     nullableString,
			"makeType":                      nullableString,
			"customerProductionInstruction": nullableString,
			"specialRemarks":                nullableString,
			"designProductionInstruction":   nullableString,
			"stampInstruction":              nullableString,
			"itemSize":                      nullableString,
			"deadlineDate":                  nullableString,
			"shippingDate":                  nullableString,
			"isIncomplete":                  map[string]any{"type": "boolean"},
		},
		"required": []string{"vendorStyleCode", "itemRefNo", "orderQty", "isIncomplete"},
	}
	header := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"poNumber":        map[string]any{"type": "string"},
			"poDate":          map[string]any{"type": "string"},
			"clientName":      map[string]any{"type": "string"},
			"totalItems":      map[string]any{"type": "integer", "minimum": 0},
			"incompleteItems": map[string]any{"type": "integer", "minimum": 0},
			"totalValue":      map[string]any{"type": []string{"number", "null"}},
			"status":          map[string]any{"const": "PENDING"},
		},
		"required": []string{"poNumber", "poDate", "clientName", "totalItems", "incompleteItems", "status"},
	}
	errorEntry := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"kind": map[string]any{"enum": []string{
				"MissingRequiredField", "CountMismatch", "NegativeValue", "DuplicateItem", "TypeMismatch",
			}},
			"message":   map[string]any{"type": "string"},
			"itemIndex": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"kind", "message"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"po":          header,
			"items":       map[string]any{"type": "array", "items": item},
			"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"needsReview": map[string]any{"type": "boolean"},
			"errors":      map[string]any{"type": "array", "items": errorEntry},
			"attempts":    map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []string{"po", "items", "confidence", "needsReview", "errors"},
	}
}
