package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DatasetHeader is the header row of a transaction export.
const DatasetHeader = "Transaction Date,Car Brand,Car Model,Exterior Color,Displacement (c.c.),Manufacture Year,No. of Previous Owners,Milleage (km),Reference Price (HKD)"

// SampleRows is a small clean export spanning 2023. The latest transaction
// is 2023-12-28 and Toyota is the most frequent brand.
var SampleRows = []string{
	`2023-01-15,Toyota,Corolla,White,1600,2015,0,"85,000","$88,000"`,
	`2023-02-10,Honda,Civic,Black,1800,2017,1,60000,"$120,000"`,
	`2023-04-20,BMW,320i,Blue,2000,2018,1,40000,"$210,000"`,
	`2023-06-18,Toyota,Alphard,Black,3500,2020,0,25000,"$450,000"`,
	`2023-07-09,Mercedes-Benz,C200,White,2000,2017,2,55000,"$180,000"`,
	`2023-11-03,Toyota,Yaris,Red,1000,2021,0,15000,"$125,000"`,
	`2023-12-05,Toyota,Vios,White,1500,2022,0,8000,"$140,000"`,
	`2023-12-28,Honda,Fit,Blue,1300,2020,1,20000,"$115,000"`,
}

// WriteDataset writes an export with the given data rows to a temporary
// directory and returns its path.
func WriteDataset(t *testing.T, rows ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(DatasetHeader)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}

	path := filepath.Join(t.TempDir(), "export_car_df.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

// WriteSampleDataset writes SampleRows and returns the file path.
func WriteSampleDataset(t *testing.T) string {
	t.Helper()
	return WriteDataset(t, SampleRows...)
}
