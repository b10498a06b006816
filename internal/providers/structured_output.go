package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxStructuredRepairAttempts bounds repair round trips when structured
// output fails to parse or validate.
const MaxStructuredRepairAttempts = 2

// ErrNoJSON is returned when model output contains no JSON document.
var ErrNoJSON = errors.New("failed to parse structured JSON")

// ParseStructuredJSON extracts a JSON document from model output, tolerating
// markdown code fences and surrounding prose. The result is re-marshalled
// into compact form.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	for _, candidate := range []string{content, unfence(content), outermostJSON(content)} {
		if candidate == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			continue
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return out, nil
	}
	return nil, ErrNoJSON
}

// unfence strips a leading ```lang line and a trailing ``` line.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	_, rest, ok := strings.Cut(s, "\n")
	if !ok {
		return ""
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

// outermostJSON returns the span from the first '{' or '[' to the last
// matching closer.
func outermostJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// ValidateStructuredJSON validates parsed JSON against schemaRaw, which may be a
// bare schema or wrapped as {"name","schema"}.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	core, err := unwrapSchema(schemaRaw)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(core)); err != nil {
		return fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile structured schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func unwrapSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var wrapper struct {
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	if len(wrapper.Schema) > 0 {
		return wrapper.Schema, nil
	}
	return schemaRaw, nil
}

// StructuredRepairPrompt asks the model to fix output that failed validation.
func StructuredRepairPrompt(schemaRaw json.RawMessage, lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > 4000 {
		lastOutput = lastOutput[:4000] + "\n...[truncated]"
	}

	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.

Schema:
%s

Your previous output:
%s

Validation issue:
%v`, string(schemaRaw), lastOutput, issue)
}
