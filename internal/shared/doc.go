// Package shared holds helpers used across the dashboard packages that
// belong to no single layer.
//
// The testutil subpackage provides:
//
//   - A buffered slog handler with assertions on messages and attributes
//   - Dataset fixtures written to temporary directories
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteSampleDataset(t)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset loaded")
//	}
package shared
