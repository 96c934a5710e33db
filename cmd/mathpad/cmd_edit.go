package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/cmd/mathpad/ui"
)

func newEditCmd() *cobra.Command {
	var (
		lower, upper float64
		n            int
		rule         string
	)
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the interactive expression editor",
		Long: `Opens the button-pad editor. Arrow keys move between buttons, enter
presses one, and digits, operators and x/y/z can be typed directly.
"=" commits the expression and integrates it over [a, b].`,
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

			model := ui.NewEditorModel(ui.Options{
				Rule:         r,
				Subintervals: n,
				Lower:        lower,
				Upper:        upper,
				Logger:       logger,
			})
			final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}

			m, ok := final.(ui.EditorModel)
			if !ok || m.Committed() == "" {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.Committed())
			if res := m.Result(); res != nil {
				printIntegration(cmd, res)
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&lower, "lower", "a", 0, "initial lower bound")
	cmd.Flags().Float64VarP(&upper, "upper", "b", 1, "initial upper bound")
	cmd.Flags().IntVarP(&n, "subintervals", "n", 0, "initial number of subintervals")
	cmd.Flags().StringVar(&rule, "rule", "", "trapezoid or simpson")
	return cmd
}
