package pricing

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// validExpression reports whether raw is a JSON-logic rule.
func validExpression(raw json.RawMessage) bool {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if _, ok := probe.(map[string]any); !ok {
		return false
	}
	return jsonlogic.IsValid(bytes.NewReader(raw))
}

// evalExpression applies a JSON-logic rule to the input. Evaluation errors count as no match.
func evalExpression(raw json.RawMessage, in Input) bool {
	data, err := json.Marshal(expressionData(in))
	if err != nil {
		return false
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(raw), bytes.NewReader(data), &out); err != nil {
		return false
	}

	var res any
	decoder := json.NewDecoder(strings.NewReader(out.String()))
	decoder.UseNumber()
	if err := decoder.Decode(&res); err != nil {
		return false
	}
	return truthy(res)
}

// expressionData exposes every input field, zero values included, so "var" lookups resolve.
func expressionData(in Input) map[string]any {
	locations := in.PrintLocations
	if locations == nil {
		locations = []string{}
	}
	return map[string]any{
		"garment_id":      in.GarmentID,
		"service":         in.Service,
		"quantity":        in.Quantity,
		"print_locations": locations,
		"color_count":     in.ColorCount,
		"stitch_count":    in.StitchCount,
		"customer_type":   in.CustomerType,
		"garment_type":    in.GarmentType,
		"supplier":        in.Supplier,
		"is_rush":         in.IsRush,
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
