package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ServiceEmbroidery is the service identifier for embroidered decoration.
const ServiceEmbroidery = "embroidery"

var ErrInvalidInput = errors.New("invalid pricing input")

// Input is a single pricing request.
type Input struct {
	GarmentID      string   `json:"garment_id"`
	Service        string   `json:"service"`
	Quantity       int      `json:"quantity"`
	PrintLocations []string `json:"print_locations,omitempty"`
	ColorCount     int      `json:"color_count,omitempty"`
	StitchCount    int      `json:"stitch_count,omitempty"`
	CustomerType   string   `json:"customer_type,omitempty"`
	GarmentType    string   `json:"garment_type,omitempty"`
	Supplier       string   `json:"supplier,omitempty"`
	IsRush         bool     `json:"is_rush,omitempty"`
}

// Normalize returns a copy with trimmed, lower-cased tags and de-duplicated, sorted locations.
// GarmentID keeps its case since SKUs are case sensitive upstream.
func (in Input) Normalize() Input {
	out := in
	out.GarmentID = strings.TrimSpace(in.GarmentID)
	out.Service = normTag(in.Service)
	out.CustomerType = normTag(in.CustomerType)
	out.GarmentType = normTag(in.GarmentType)
	out.Supplier = normTag(in.Supplier)
	out.PrintLocations = normSet(in.PrintLocations)
	return out
}

// Validate rejects malformed requests. Zero quantity is legal.
func (in Input) Validate() error {
	var problems []string
	if strings.TrimSpace(in.GarmentID) == "" {
		problems = append(problems, "garment_id is required")
	}
	if strings.TrimSpace(in.Service) == "" {
		problems = append(problems, "service is required")
	}
	if in.Quantity < 0 {
		problems = append(problems, "quantity must not be negative")
	}
	if in.ColorCount < 0 {
		problems = append(problems, "color_count must not be negative")
	}
	if in.StitchCount < 0 {
		problems = append(problems, "stitch_count must not be negative")
	}
	for _, l := range in.PrintLocations {
		if strings.TrimSpace(l) == "" {
			problems = append(problems, "print_locations must not contain empty entries")
			break
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// embroideryOnly reports whether the stitch price replaces the garment base cost.
func (in Input) embroideryOnly() bool {
	return in.Service == ServiceEmbroidery && in.StitchCount > 0 && len(in.PrintLocations) == 0
}

func normTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = normTag(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
