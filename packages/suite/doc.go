// Package suite loads YAML check suites and runs them against live servers.
//
// A suite is a named list of checks. Each check describes one request and
// the expectations its response must meet:
//
//	name: smoke
//	checks:
//	  - name: homepage
//	    request:
//	      url: ${BASE_URL}/
//	    expect:
//	      status: 200
//	      bodyContains: ["Example Domain"]
//
// Checks run in file order, one at a time. ${VAR} references are expanded
// from an optional dotenv file and the process environment before the
// request is sent.
package suite
