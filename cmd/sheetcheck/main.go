// Command sheetcheck validates Excel workbooks against rule sets without
// running the API.
//
//	sheetcheck validate --rule 1 imports/tax_codes.xlsx
//	sheetcheck rules 2
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/taxref/internal/logging"
)

// errInvalidRows makes validate exit 1 after printing a failure result.
var errInvalidRows = errors.New("workbook has invalid rows")

func main() {
	os.Exit(Execute())
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInvalidRows) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		rulesFile string
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:           "sheetcheck",
		Short:         "Validate Excel workbooks against column rule sets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional
			_ = godotenv.Load()

			if !cmd.Flags().Changed("rules-file") {
				rulesFile = os.Getenv("RULES_FILE")
			}
			if !cmd.Flags().Changed("log-level") {
				if v := os.Getenv("LOG_LEVEL"); v != "" {
					logLevel = v
				}
			}

			// stdout carries the JSON result
			logger := logging.New(cmd.ErrOrStderr(), logLevel, logFormat)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules-file", "", "YAML rule sets merged over the built-ins (env RULES_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(newValidateCmd(&rulesFile))
	rootCmd.AddCommand(newRulesCmd(&rulesFile))
	return rootCmd
}
