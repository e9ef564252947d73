package rulepack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"idp-hq/assess/pkg/rules"
)

// Format is a rule pack document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension. Anything other
// than .json is treated as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// IsPackFile reports whether path has a rule pack extension.
func IsPackFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// Decode parses and schema-validates a rule pack document. Problems are
// reported as an *IssueList.
func Decode(data []byte, format Format) (*rules.RulePack, error) {
	issues := NewIssueList()

	doc, err := decodeDocument(data, format)
	if err != nil {
		issues.Add(&Issue{Type: IssueSyntax, Level: LevelError, Index: -1, Message: err.Error()})
		return nil, issues
	}

	if err := validateSchema(doc, issues); err != nil {
		return nil, err
	}
	if issues.HasErrors() {
		return nil, issues
	}

	normalize(doc)
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode rule pack: %w", err)
	}
	var pack rules.RulePack
	if err := json.Unmarshal(normalized, &pack); err != nil {
		issues.Add(&Issue{Type: IssueSchema, Level: LevelError, Index: -1, Message: err.Error()})
		return nil, issues
	}
	return &pack, nil
}

// DecodeFile reads and decodes the rule pack at path. A pack without an
// id takes the file name without its extension.
func DecodeFile(path string) (*rules.RulePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule pack: %w", err)
	}
	pack, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if pack.ID == "" {
		base := filepath.Base(path)
		pack.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return pack, nil
}

// decodeDocument returns the document as generic JSON values
// (map[string]any, []any, float64, string, bool, nil).
func decodeDocument(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("malformed JSON: %w", err)
		}
		return doc, nil
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("malformed YAML: %w", err)
		}
		// Round-trip through JSON so numbers and maps take JSON shapes.
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("unsupported YAML content: %w", err)
		}
		doc = nil
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
}

// normalize turns numeric identifiers into strings so they decode into
// the string fields of rules.RulePack.
func normalize(doc any) {
	m, ok := doc.(map[string]any)
	if !ok {
		return
	}
	stringify(m, "id")
	stringify(m, "version")
	stringify(m, "org_id")
	ruleList, _ := m["rules"].([]any)
	for _, r := range ruleList {
		if rm, ok := r.(map[string]any); ok {
			stringify(rm, "id")
		}
	}
}

func stringify(m map[string]any, key string) {
	if f, ok := m[key].(float64); ok {
		m[key] = strconv.FormatFloat(f, 'f', -1, 64)
	}
}
