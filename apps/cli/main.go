package main

import "github.com/abdul-hamid-achik/hiteval/apps/cli/cmd"

// Set by the release build via -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
