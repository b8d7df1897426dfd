package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate suite files without sending requests",
	Long: `Validate suite files: YAML syntax, known fields, URLs, charsets and
regular expressions. Nothing is sent over the network.

Examples:
  hiteval validate checks/smoke.yaml
  hiteval validate ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, errors.New("no .yaml or .yml suite files found"))
	}

	hasErrors := false
	for _, file := range files {
		s, err := suite.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %v\n", err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d checks)\n", file, len(s.Checks))
	}

	if hasErrors {
		return withExitCode(ExitParseError, errors.New("validation failed"))
	}

	return nil
}
