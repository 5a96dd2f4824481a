package domain

import (
	"time"
)

// Source column headers of the transaction export
const (
	ColumnTransactionDate = "Transaction Date"
	ColumnCarBrand        = "Car Brand"
	ColumnCarModel        = "Car Model"
	ColumnExteriorColor   = "Exterior Color"
	ColumnDisplacement    = "Displacement (c.c.)"
	ColumnManufactureYear = "Manufacture Year"
	ColumnPreviousOwners  = "No. of Previous Owners"
	ColumnMileage         = "Milleage (km)"
	ColumnReferencePrice  = "Reference Price (HKD)"
	ColumnAge             = "Age"
)

// RequiredColumns lists every column a source file must carry
var RequiredColumns = []string{
	ColumnTransactionDate,
	ColumnCarBrand,
	ColumnCarModel,
	ColumnExteriorColor,
	ColumnDisplacement,
	ColumnManufactureYear,
	ColumnPreviousOwners,
	ColumnMileage,
	ColumnReferencePrice,
}

// TransactionRecord is one cleaned used-car transaction.
// PreviousOwners is the raw owner count plus one, so it is always >= 1.
// Age is the transaction year minus the manufacture year.
type TransactionRecord struct {
	TransactionDate time.Time `json:"transaction_date"`
	CarBrand        string    `json:"car_brand"`
	CarModel        string    `json:"car_model"`
	ExteriorColor   string    `json:"exterior_color"`
	DisplacementCC  int       `json:"displacement_cc"`
	ManufactureYear int       `json:"manufacture_year"`
	PreviousOwners  int       `json:"previous_owners"`
	MileageKM       float64   `json:"mileage_km"`
	ReferencePrice  int64     `json:"reference_price"`
	Age             int       `json:"age"`
}

// Value returns the numeric value of field for the record
func (r TransactionRecord) Value(field NumericField) float64 {
	switch field {
	case FieldDisplacement:
		return float64(r.DisplacementCC)
	case FieldManufactureYear:
		return float64(r.ManufactureYear)
	case FieldAge:
		return float64(r.Age)
	case FieldPreviousOwners:
		return float64(r.PreviousOwners)
	case FieldMileage:
		return r.MileageKM
	case FieldReferencePrice:
		return float64(r.ReferencePrice)
	default:
		return 0
	}
}

// Identity returns the non-numeric columns used to label a record in tables
func (r TransactionRecord) Identity() RecordIdentity {
	return RecordIdentity{
		TransactionDate: r.TransactionDate,
		CarBrand:        r.CarBrand,
		CarModel:        r.CarModel,
		ExteriorColor:   r.ExteriorColor,
	}
}

// RecordIdentity holds the descriptive columns of a transaction
type RecordIdentity struct {
	TransactionDate time.Time `json:"transaction_date"`
	CarBrand        string    `json:"car_brand"`
	CarModel        string    `json:"car_model"`
	ExteriorColor   string    `json:"exterior_color"`
}

// CleanReport summarises what the cleaner kept and dropped
type CleanReport struct {
	RowsRead            int `json:"rows_read"`
	DroppedMissing      int `json:"dropped_missing"`
	DroppedInvalidPrice int `json:"dropped_invalid_price"`
	DroppedInvalidOwner int `json:"dropped_invalid_owners"`
	DroppedInvalidOther int `json:"dropped_invalid_other"`
	Kept                int `json:"kept"`
}

// Dropped returns the total number of excluded rows
func (c CleanReport) Dropped() int {
	return c.DroppedMissing + c.DroppedInvalidPrice + c.DroppedInvalidOwner + c.DroppedInvalidOther
}
