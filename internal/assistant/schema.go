package assistant

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Suggestion is a recommended reading.
type Suggestion struct {
	Title       string `json:"title" jsonschema:"required,description=Title of the article or document"`
	Description string `json:"description" jsonschema:"required,description=One or two sentence summary"`
	Category    string `json:"category" jsonschema:"required,description=Single lowercase category word"`
	URL         string `json:"url" jsonschema:"required,description=Where the reading can be found"`
}

// GenerateSchema reflects a strict JSON schema from T: no additional
// properties and every property required.
func GenerateSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	strict(m)
	delete(m, "$schema")
	delete(m, "$id")
	out, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return out
}

func strict(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				strict(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		strict(items)
	}
}
