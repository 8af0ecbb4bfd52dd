package llm

import "encoding/json"

// parseJSONSchema converts a JSON schema string to a map. An empty or
// malformed schema yields an empty object schema.
func parseJSONSchema(schemaStr string) map[string]any {
	if schemaStr == "" {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(schemaStr), &schema); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema
}

// requiredFields extracts the "required" list from a parsed schema.
func requiredFields(schema map[string]any) []string {
	req, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(req))
	for _, r := range req {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// rawArgs returns tool-call input as raw JSON, defaulting to an empty object.
func rawArgs(input string) json.RawMessage {
	if input == "" || !json.Valid([]byte(input)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(input)
}
