// Package env handles variables for hiteval suites.
//
// It provides functionality for:
//   - Loading .env files without touching the process environment
//   - Expanding ${NAME} references in suite files
//   - Reporting references that could not be resolved
package env
