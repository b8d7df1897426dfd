package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hiteval/packages/assertions"
	"github.com/abdul-hamid-achik/hiteval/packages/core/config"
	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a config file and an example suite",
	Long: `Initialize hiteval in a directory (default: the current one).

This creates:
  - hiteval.yaml          - Configuration file
  - checks/example.yaml   - Example check suite
  - .env.example          - Variables used by the example

Examples:
  hiteval init
  hiteval init ./api-checks --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

// exampleSuite is written by init and must stay valid.
var exampleSuite = &suite.Suite{
	Name: "example",
	Checks: []*suite.Check{
		{
			Name:    "homepage",
			Request: suite.Request{URL: "${BASE_URL:-https://example.com}/"},
			Expect: &assertions.Expectation{
				Status:       200,
				HeaderValues: map[string]string{"content-type": "text/html"},
				BodyContains: []string{"Example Domain"},
				BodyMatches:  []string{`<title>\s*Example Domain\s*</title>`},
			},
		},
		{
			Name:    "missing page",
			Request: suite.Request{URL: "${BASE_URL:-https://example.com}/missing", Method: "GET"},
			Expect:  &assertions.Expectation{Status: 404},
		},
	},
}

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	configFile := filepath.Join(dir, "hiteval.yaml")
	suiteFile := filepath.Join(dir, "checks", "example.yaml")
	envFile := filepath.Join(dir, ".env.example")

	if !forceInit {
		for _, f := range []string{configFile, suiteFile, envFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(suiteFile), 0755); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Headers = map[string]string{"User-Agent": "hiteval/" + version}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	data, err := yaml.Marshal(exampleSuite)
	if err != nil {
		return err
	}
	if err := os.WriteFile(suiteFile, data, 0644); err != nil {
		return fmt.Errorf("failed to create example suite: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", suiteFile)

	if err := os.WriteFile(envFile, []byte("BASE_URL=https://example.com\n"), 0644); err != nil {
		return fmt.Errorf("failed to create env file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhiteval initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hiteval run checks/ --env-file .env.example' to execute the example.\n")

	return nil
}
