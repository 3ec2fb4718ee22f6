package llm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects a Go struct into a strict-mode JSON schema suitable
// for a ResponseSchema. Panics on reflection failure, which is a programming
// error caught at init time (schemas are package-level vars).
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := schema.MarshalJSON()
	if err != nil {
		panic("llm: marshal schema: " + err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic("llm: unmarshal schema: " + err.Error())
	}
	ensureStrictCompliance(m)
	return m
}

// ensureStrictCompliance walks the schema making every object reject
// additional properties and require all declared fields, which the provider's
// strict structured-output mode demands.
func ensureStrictCompliance(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false

		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]any, 0, len(props))
			for name, sub := range props {
				required = append(required, name)
				if subMap, ok := sub.(map[string]any); ok {
					ensureStrictCompliance(subMap)
				}
			}
			schema["required"] = required
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		ensureStrictCompliance(items)
	}
}
