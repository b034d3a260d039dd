package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule file formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported rule file format")
	ErrMalformedRuleFile = errors.New("malformed rule file")
)

// NormalizeFormat maps file extensions and content-type style names onto a rule file format.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json", ".json", "application/json":
		return FormatJSON, nil
	case "yaml", "yml", ".yaml", ".yml", "application/yaml", "application/x-yaml", "text/yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// DecodeRuleFile reads a JSON array or a YAML list of rules.
// YAML goes through JSON so both formats report unknown keys the same way.
func DecodeRuleFile(data []byte, format string) ([]RuleDraft, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	if f == FormatYAML {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRuleFile, err)
		}
		data, err = json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRuleFile, err)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a list of rules", ErrMalformedRuleFile)
	}

	var drafts []RuleDraft
	if err := json.Unmarshal(trimmed, &drafts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRuleFile, err)
	}
	return drafts, nil
}

// DecodeRuleDraft reads a single JSON rule object.
func DecodeRuleDraft(data []byte) (RuleDraft, error) {
	var d RuleDraft
	if err := json.Unmarshal(data, &d); err != nil {
		return RuleDraft{}, fmt.Errorf("%w: %v", ErrMalformedRuleFile, err)
	}
	return d, nil
}

// EncodeRuleFile writes rules in the interchange format.
func EncodeRuleFile(drafts []RuleDraft, format string) ([]byte, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = []RuleDraft{}
	}

	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return nil, err
	}
	if f == FormatJSON {
		return data, nil
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}
