package catalog

// templateSchema returns the JSON-Schema the catalog document must satisfy. Prices may be
// written as strings or numbers.
func templateSchema() map[string]any {
	props := map[string]any{
		"Description":             map[string]any{"type": "string"},
		"Price":                   moneyProp(),
		"CompareToPrice":          moneyProp(),
		"Collections":             stringList(),
		"SearchEngineDescription": map[string]any{"type": "string"},
		"Vendor":                  map[string]any{"type": "string"},
		"ProductType":             map[string]any{"type": "string"},
		"Tags":                    stringList(),
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"Description", "Price", "CompareToPrice", "Collections", "SearchEngineDescription"},
	}
}

func moneyProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string", "pattern": `^\d+(\.\d{1,2})?$`},
			map[string]any{"type": "number", "minimum": 0},
		},
	}
}

func stringList() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "minLength": 1},
	}
}
