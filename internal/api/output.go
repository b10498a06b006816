package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how CLI commands print results.
type OutputFormat string

const (
	// OutputFormatText prints a human summary where a command has one and
	// falls back to YAML otherwise.
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// DefaultOutput is the format used until SetOutputFormat is called.
const DefaultOutput = OutputFormatText

// stdout is swapped by tests.
var (
	stdout       io.Writer = os.Stdout
	outputFormat           = DefaultOutput
)

// ParseOutputFormat maps a --output value to a format.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputFormatText, OutputFormatYAML, OutputFormatJSON:
		return f, nil
	case "":
		return DefaultOutput, nil
	}
	return DefaultOutput, fmt.Errorf("unknown output format %q (want text, yaml or json)", s)
}

// SetOutputFormat sets the format used by Output and Print. Unknown values
// leave the format unchanged and return an error.
func SetOutputFormat(format string) error {
	f, err := ParseOutputFormat(format)
	if err != nil {
		return err
	}
	outputFormat = f
	return nil
}

// GetOutputFormat returns the current output format.
func GetOutputFormat() OutputFormat {
	return outputFormat
}

// Output writes data to stdout. Text mode prints YAML.
func Output(data any) error {
	return OutputTo(stdout, outputFormat, data)
}

// Print writes data to stdout, using human to render it in text mode.
func Print(data any, human func(w io.Writer)) error {
	if outputFormat == OutputFormatText && human != nil {
		human(stdout)
		return nil
	}
	return Output(data)
}

// OutputTo writes data to w in the given format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML, OutputFormatText:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
