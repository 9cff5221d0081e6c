package es

// SimplifyMapping flattens an Elasticsearch properties block into a
// compact schema suitable for prompt construction: field name to type,
// recursing into object and nested fields, noting keyword sub-fields and
// date formats.
func SimplifyMapping(properties map[string]interface{}) map[string]interface{} {
	simplified := make(map[string]interface{}, len(properties))
	for name, raw := range properties {
		field, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fieldType, _ := field["type"].(string)
		nested, hasNested := field["properties"].(map[string]interface{})
		if hasNested && (fieldType == "" || fieldType == "object" || fieldType == "nested") {
			if fieldType == "" {
				fieldType = "object"
			}
			simplified[name] = map[string]interface{}{
				"type":       fieldType,
				"properties": SimplifyMapping(nested),
			}
			continue
		}
		if fieldType == "" {
			fieldType = "unknown"
		}
		info := map[string]interface{}{"type": fieldType}
		if sub, ok := field["fields"].(map[string]interface{}); ok {
			if _, hasKeyword := sub["keyword"]; hasKeyword {
				info["has_keyword_field"] = true
			}
		}
		if format, ok := field["format"].(string); ok && format != "" {
			info["format"] = format
		}
		simplified[name] = info
	}
	return simplified
}
