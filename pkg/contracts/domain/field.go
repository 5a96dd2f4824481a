package domain

import (
	"encoding/json"
	"fmt"
)

// DisplayFormat tells presentation code how to format a numeric value
type DisplayFormat string

const (
	FormatCount    DisplayFormat = "count"
	FormatCurrency DisplayFormat = "currency"
	FormatPercent  DisplayFormat = "percent"
)

// NumericField enumerates the numeric columns of a TransactionRecord.
// The zero value is not a valid field.
type NumericField int

const (
	FieldDisplacement NumericField = iota + 1
	FieldManufactureYear
	FieldAge
	FieldPreviousOwners
	FieldMileage
	FieldReferencePrice
)

// NumericFields is the display order of the numeric columns
var NumericFields = []NumericField{
	FieldDisplacement,
	FieldManufactureYear,
	FieldAge,
	FieldPreviousOwners,
	FieldMileage,
	FieldReferencePrice,
}

type fieldInfo struct {
	label  string
	key    string
	format DisplayFormat
}

var fieldInfos = map[NumericField]fieldInfo{
	FieldDisplacement:    {label: ColumnDisplacement, key: "displacement_cc", format: FormatCount},
	FieldManufactureYear: {label: ColumnManufactureYear, key: "manufacture_year", format: FormatCount},
	FieldAge:             {label: ColumnAge, key: "age", format: FormatCount},
	FieldPreviousOwners:  {label: ColumnPreviousOwners, key: "previous_owners", format: FormatCount},
	FieldMileage:         {label: ColumnMileage, key: "mileage_km", format: FormatCount},
	FieldReferencePrice:  {label: ColumnReferencePrice, key: "reference_price", format: FormatCurrency},
}

// Label returns the column header of the field
func (f NumericField) Label() string {
	if info, ok := fieldInfos[f]; ok {
		return info.label
	}
	return fmt.Sprintf("NumericField(%d)", int(f))
}

// Key returns the snake_case identifier used in JSON payloads
func (f NumericField) Key() string {
	if info, ok := fieldInfos[f]; ok {
		return info.key
	}
	return ""
}

// Format returns the display format tag of the field
func (f NumericField) Format() DisplayFormat {
	if info, ok := fieldInfos[f]; ok {
		return info.format
	}
	return FormatCount
}

// Valid reports whether f is one of the enumerated fields
func (f NumericField) Valid() bool {
	_, ok := fieldInfos[f]
	return ok
}

func (f NumericField) String() string {
	return f.Label()
}

// MarshalJSON encodes the field as its key
func (f NumericField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Key())
}

// ParseNumericField resolves a key or column label to a field
func ParseNumericField(s string) (NumericField, error) {
	for _, f := range NumericFields {
		if s == f.Key() || s == f.Label() {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown numeric field %q", s)
}
