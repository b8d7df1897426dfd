package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List all checks in suite files",
	Long: `List the checks defined in suite files, with the request each one sends.

Examples:
  hiteval list checks/smoke.yaml
  hiteval list ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, errors.New("no .yaml or .yml suite files found"))
	}

	for _, file := range files {
		s, err := suite.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %v\n", err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", s.Name, file)
		for _, c := range s.Checks {
			method := c.Request.Method
			if method == "" {
				method = "GET"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", c.DisplayName())
			if c.Name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s %s\n", method, c.Request.URL)
			}
			if c.Skip != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    skip: %s\n", c.Skip)
			}
		}
	}

	return nil
}
