package domain

import (
	"encoding/json"
	"time"
)

// BrandCount is one row of the brand frequency table
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// CorrelationCell is one (field_a, field_b, r) triple.
// Defined is false when either field has zero variance.
type CorrelationCell struct {
	FieldA      NumericField `json:"field_a"`
	FieldB      NumericField `json:"field_b"`
	Correlation float64      `json:"-"`
	Defined     bool         `json:"defined"`
}

// MarshalJSON encodes an undefined correlation as null
func (c CorrelationCell) MarshalJSON() ([]byte, error) {
	var r *float64
	if c.Defined {
		v := c.Correlation
		r = &v
	}
	return json.Marshal(struct {
		FieldA      NumericField `json:"field_a"`
		FieldB      NumericField `json:"field_b"`
		Correlation *float64     `json:"correlation"`
		Defined     bool         `json:"defined"`
	}{c.FieldA, c.FieldB, r, c.Defined})
}

// MonthCount is the number of transactions in a calendar month
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// ScatterPoint is one record projected for the age/mileage chart
type ScatterPoint struct {
	Brand          string  `json:"brand"`
	Age            int     `json:"age"`
	MileageKM      float64 `json:"mileage_km"`
	ReferencePrice int64   `json:"reference_price"`
	EngineBucket   string  `json:"engine_bucket"`
}

// BucketCount is the number of records in an engine-size bucket
type BucketCount struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// ColorShare is one exterior colour of a brand breakdown
type ColorShare struct {
	Color string  `json:"color"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}
