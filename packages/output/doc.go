// Package output provides formatters for displaying suite results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Each formatter implements the Formatter interface. Formats that
// accumulate results before writing also implement Flushable.
package output
