package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mathpad "github.com/njchilds90/gomathpad"
)

// =============================================================================
// EXPRESSION COMMANDS
// =============================================================================

func newEvalCmd() *cobra.Command {
	var set map[string]string
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression with variable bindings",
		Example: `  mathpad eval "x**2+1" --set x=3
  mathpad eval --from-display "2×π"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := parseBindings(set)
			if err != nil {
				return err
			}
			expr := exprArg(args[0])
			v, err := mathpad.Evaluate(expr, bindings)
			if err != nil {
				return err
			}
			logger.Debug("evaluated", zap.String("expr", expr), zap.Float64("value", v))
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&set, "set", nil, "variable bindings, e.g. --set x=2,y=0.5")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <expression>",
		Short: "Check parentheses and syntax",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := mathpad.NewValidator(mathpad.WithValidatorLogger(logger)).Validate(exprArg(args[0]))
			if err := r.Err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

func newDisplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display <canonical>",
		Short: "Render canonical text in display notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), mathpad.ToDisplay(args[0]))
			return nil
		},
	}
}

func newCanonicalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canonical <display>",
		Short: "Convert display notation back to canonical text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), mathpad.ToCanonical(args[0]))
			return nil
		},
	}
}

func newLatexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latex <expression>",
		Short: "Render an expression as LaTeX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := mathpad.ToLaTeX(exprArg(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the editor's buttons",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := mathpad.Catalog()
			if asJSON {
				return writeJSON(cmd, tokens)
			}
			t := newTable("label", "inserts", "category", "title")
			for _, tok := range tokens {
				t.Row(tok.Label, tok.Insert, tok.Category.String(), tok.Title)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// exprArg converts from display notation when --from-display is set.
func exprArg(s string) string {
	if fromDisplay {
		return mathpad.ToCanonical(s)
	}
	return strings.TrimSpace(s)
}

func parseBindings(set map[string]string) (mathpad.Bindings, error) {
	if len(set) == 0 {
		return nil, nil
	}
	b := make(mathpad.Bindings, len(set))
	for name, raw := range set {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %q is not a number", name, raw)
		}
		b[name] = v
	}
	return b, nil
}

// formatValue prints finite values in shortest form and marks the rest
// as having no real value.
func formatValue(v float64) string {
	if !mathpad.Available(v) {
		return "undefined (no real value)"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7685"))).
		Headers(headers...)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
