// Package assertions evaluates a captured HTTP response.
//
// An Evaluator wraps exactly one fully buffered response and answers
// boolean predicates about it:
//   - Status code checks (StatusCodeIs)
//   - Header presence and value checks, including comma-separated lists
//   - Body substring, regular expression and byte-exact checks
//   - JSON path and JSON Schema checks on JSON bodies
//
// Expectation bundles predicates for suites and the CLI; Check turns it into
// a list of Results suitable for reporting.
package assertions
