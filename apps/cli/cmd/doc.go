// Package cmd implements the hiteval CLI commands using Cobra.
//
// Available commands:
//   - check: Send one request and assert on its response
//   - run: Execute YAML check suites
//   - validate: Check suite files without sending requests
//   - list: Display the checks defined in suite files
//   - init: Create a config file and an example suite
//   - version: Show hiteval version information
//
// Most flags default to a HITEVAL_* environment variable, and run supports
// a watch mode that re-runs suites when they change on disk.
package cmd
