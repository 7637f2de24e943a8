// Package annotation models the labeled regions a reviewer draws over a
// rendered drawing page: the per-category field schema, shape geometry and
// the drawing/labeling state machine.
package annotation

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the kind of P&ID element a shape marks.
type Category string

const (
	Instrument    Category = "Instrument"
	Valve         Category = "Valve"
	Equipment     Category = "Equipment"
	Pipe          Category = "Pipe"
	SpecialtyItem Category = "Specialty Item"
	Package       Category = "Package"
	Miscellaneous Category = "Miscellaneous"
)

// Categories lists every category in display order.
var Categories = []Category{Instrument, Valve, Equipment, Pipe, SpecialtyItem, Package, Miscellaneous}

var (
	ErrUnknownCategory  = errors.New("unknown annotation category")
	ErrIncompleteFields = errors.New("required annotation fields missing")
)

// Field is one attribute a category requires.
type Field struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

var tagNo = Field{Name: "Tag No", Key: "tagNo"}

var schemas = map[Category][]Field{
	Instrument:    {tagNo},
	Valve:         {tagNo, {Name: "Size", Key: "size"}, {Name: "Type", Key: "type"}, {Name: "Operation", Key: "operation"}},
	Equipment:     {tagNo},
	Pipe:          {tagNo},
	SpecialtyItem: {tagNo, {Name: "Description", Key: "description"}},
	Package:       {tagNo, {Name: "Package Type", Key: "packageType"}},
	Miscellaneous: {tagNo, {Name: "Notes", Key: "notes"}},
}

var colors = map[Category]string{
	Instrument:    "#1976d2",
	Valve:         "#e53935",
	Equipment:     "#43a047",
	Pipe:          "#fbc02d",
	SpecialtyItem: "#8e24aa",
	Package:       "#00838f",
	Miscellaneous: "#6d4c41",
}

// ParseCategory accepts the display name of a category.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if _, ok := schemas[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
	return c, nil
}

// Schema returns the required fields of c in form order. Unknown categories
// have none.
func Schema(c Category) []Field {
	fields := schemas[c]
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Color returns the stroke color used to render shapes of c.
func Color(c Category) string {
	if col, ok := colors[c]; ok {
		return col
	}
	return colors[Instrument]
}

// MissingFields returns the names of required fields that are absent, empty
// or whitespace-only in values.
func MissingFields(c Category, values map[string]string) []string {
	var missing []string
	for _, f := range schemas[c] {
		if strings.TrimSpace(values[f.Key]) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// ValidateFields returns ErrIncompleteFields naming every missing field.
func ValidateFields(c Category, values map[string]string) error {
	if missing := MissingFields(c, values); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteFields, strings.Join(missing, ", "))
	}
	return nil
}
