// Package dataprocessing turns a used-car transaction export into the
// aggregates shown on the dashboard.
//
// # Architecture
//
// The package is organized into three main components:
//
// 1. Loader: Reads the CSV or XLSX export and maps header columns
// 2. Cleaner: Drops incomplete rows, parses prices and owner counts, derives age
// 3. Analytics: Windowed medians, relative deviations, brand and correlation tables
//
// # Usage
//
// Loading a dataset:
//
//	result, err := dataprocessing.NewLoader(logger).Load(ctx, "export_car_df.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Computing the trailing 1 month medians:
//
//	recent := dataprocessing.ComputeWindowedMedians(result.Records, time.Time{}, 1)
//
// # Data Flow
//
//	Export File → Loader → raw rows → Cleaner → TransactionRecords → Analytics → Views
//
// # Error Handling
//
// Only source level problems are fatal: a missing file, an unreadable or
// headerless file, a missing required column or an unparseable transaction
// date. Those are reported as *LoadError. Rows that fail price, owner or
// numeric parsing after the missing value drop are excluded and counted in
// the CleanReport.
//
// Analytics never fail. Empty windows produce a snapshot with Count zero and
// divisions by a zero baseline produce an undefined domain.Ratio.
package dataprocessing
