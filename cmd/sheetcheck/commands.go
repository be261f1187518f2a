package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/taxref/internal/rules"
	"github.com/JonMunkholm/taxref/internal/sheet"
	"github.com/JonMunkholm/taxref/internal/validation"
)

func newValidateCmd(rulesFile *string) *cobra.Command {
	var (
		ruleID   string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "validate <file.xlsx>",
		Short: "Validate a workbook and print the result as JSON",
		Long: `Decodes the first sheet of the workbook, validates it against the rule set
and prints {"errors": {...}, "data": [...]}. Exits 1 when any row is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := rules.Load(*rulesFile)
			if err != nil {
				return err
			}
			decoder, err := sheet.NewDecoder(strategy)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			table, err := sheet.NewReader(decoder).Read(ctx, args[0], f)
			if err != nil {
				return err
			}

			result, err := validation.NewEngine(registry).Validate(ctx, table, ruleID)
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Valid() {
				return errInvalidRows
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&ruleID, "rule", "r", "", "Rule set id")
	cmd.Flags().StringVar(&strategy, "strategy", sheet.StrategyCSV, fmt.Sprintf("Decode strategy (%s, %s)", sheet.StrategyCSV, sheet.StrategyDirect))
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func newRulesCmd(rulesFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rules [id]",
		Short: "List rule sets, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := rules.Load(*rulesFile)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), registry.All())
			}

			rs, ok := registry.Lookup(args[0])
			if !ok {
				return &validation.UnknownRuleError{RuleID: args[0]}
			}
			return printJSON(cmd.OutOrStdout(), rs)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
