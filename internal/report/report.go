// Package report renders a run summary as JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"lifeingest/internal/fileutil"
	"lifeingest/internal/history"
)

// Format selects the report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format %q (want json or yaml)", value)
	}
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("report path %q has no extension", path)
	}
	return ParseFormat(ext)
}

// Encode writes detail to w in the requested format.
func Encode(w io.Writer, format Format, detail history.RunDetail) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(detail); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// WriteFile writes the report to path, choosing the format by extension.
func WriteFile(path string, detail history.RunDetail) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf strings.Builder
	if err := Encode(&buf, format, detail); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
