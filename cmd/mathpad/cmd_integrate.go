package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mathpad "github.com/njchilds90/gomathpad"
)

// =============================================================================
// INTEGRATION COMMANDS
// =============================================================================

type intervalFlags struct {
	lower    float64
	upper    float64
	variable string
	set      map[string]string
	asJSON   bool
}

func (f *intervalFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&f.lower, "lower", "a", 0, "lower bound")
	cmd.Flags().Float64VarP(&f.upper, "upper", "b", 1, "upper bound")
	cmd.Flags().StringVar(&f.variable, "var", "x", "integration variable")
	cmd.Flags().StringToStringVar(&f.set, "set", nil, "bindings for the other variables")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON")
}

func newIntegrateCmd() *cobra.Command {
	var (
		f    intervalFlags
		rule string
		n    int
	)
	cmd := &cobra.Command{
		Use:   "integrate <expression>",
		Short: "Integrate with the composite trapezoid or Simpson rule",
		Long: `Integrates locally over [a, b] with n subintervals and prints the node
table. Rule and n default to the configured integration settings.
Nodes where the expression has no real value are listed but skipped.`,
		Example: `  mathpad integrate "x**2" -a 0 -b 2 -n 4 --rule simpson
  mathpad integrate "sin(x)" -b 3.14159 --rule trapezoid -n 100 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := cfg.GetDefaultRule()
			if rule != "" {
				parsed, err := mathpad.ParseRule(rule)
				if err != nil {
					return err
				}
				r = parsed
			}
			if !cmd.Flags().Changed("subintervals") {
				n = cfg.Integration.DefaultSubintervals
			}
			bindings, err := parseBindings(f.set)
			if err != nil {
				return err
			}

			res, err := mathpad.Integrate(r, mathpad.IntegrationRequest{
				Expression:   exprArg(args[0]),
				Variable:     f.variable,
				Lower:        f.lower,
				Upper:        f.upper,
				Subintervals: n,
				Bindings:     bindings,
			})
			if err != nil {
				return err
			}
			logger.Debug("integrated",
				zap.String("rule", string(r)),
				zap.Int("n", n),
				zap.Float64("integral", res.Integral),
				zap.Int("skipped", res.Skipped))

			if f.asJSON {
				return writeJSON(cmd, res)
			}
			printIntegration(cmd, res)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&rule, "rule", "", "trapezoid or simpson")
	cmd.Flags().IntVarP(&n, "subintervals", "n", 0, "number of subintervals")
	return cmd
}

func printIntegration(cmd *cobra.Command, res *mathpad.IntegrationResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  ∫ %s  over [%g, %g], n = %d, h = %g\n",
		res.Method, mathpad.ToDisplay(res.Expression),
		res.Interval[0], res.Interval[1], res.Subintervals, res.StepSize)

	t := newTable("i", "x", "f(x)", "weight", "weight·f(x)")
	for _, row := range res.Rows {
		fx, contrib := "n/a", "0"
		if row.Available {
			fx = strconv.FormatFloat(row.FX, 'g', 10, 64)
			contrib = strconv.FormatFloat(row.Contribution, 'g', 10, 64)
		}
		t.Row(strconv.Itoa(row.Index), strconv.FormatFloat(row.X, 'g', 10, 64), fx, strconv.Itoa(row.Weight), contrib)
	}
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "integral ≈ %s\n", strconv.FormatFloat(res.Integral, 'g', 12, 64))
	if res.Skipped > 0 {
		fmt.Fprintf(out, "%d node(s) without a real value were skipped\n", res.Skipped)
	}
}

func newSampleCmd() *cobra.Command {
	var (
		f      intervalFlags
		points int
	)
	cmd := &cobra.Command{
		Use:   "sample <expression>",
		Short: "Sample an expression across an interval for plotting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("points") {
				points = cfg.Integration.SamplePoints
			}
			bindings, err := parseBindings(f.set)
			if err != nil {
				return err
			}
			pts, err := mathpad.Sample(exprArg(args[0]), f.variable, f.lower, f.upper, points, bindings)
			if err != nil {
				return err
			}
			if f.asJSON {
				return writeJSON(cmd, pts)
			}
			out := cmd.OutOrStdout()
			for _, p := range pts {
				fmt.Fprintf(out, "%g\t%g\n", p.X, p.Y)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&points, "points", "p", 0, "number of sample intervals (default from config)")
	return cmd
}
