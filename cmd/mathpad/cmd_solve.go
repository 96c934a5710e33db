package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/backend"
)

// =============================================================================
// SOLVER COMMANDS
// =============================================================================

func newClient() *backend.Client {
	return backend.NewClient(cfg.Endpoints(),
		backend.WithTimeout(cfg.GetBackendTimeout()),
		backend.WithLogger(logger))
}

func newSolveCmd() *cobra.Command {
	var (
		params []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "solve <method> [function]",
		Short: "Submit a problem to a numerical-method service",
		Long: `Validates the request locally, then posts it to the configured service
for the method. Parameter values are parsed as JSON when possible, so
matrices and vectors can be passed as --param 'A=[[4,1],[1,3]]'.

Methods: bisection, fixed-point, newton-raphson, secant, jacobi,
gauss-seidel, euler, romberg, simpson, trapezoid.`,
		Example: `  mathpad solve newton-raphson "x**2-2" --param x0=1
  mathpad solve jacobi --param 'A=[[4,1],[1,3]]' --param 'b=[1,2]'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backend.ParseMethod(args[0])
			if err != nil {
				return err
			}
			req := backend.Request{}
			if len(args) == 2 {
				req = backend.NewRequest(exprArg(args[1]))
			}
			for _, p := range params {
				k, v, err := parseParam(p)
				if err != nil {
					return err
				}
				req.Set(k, v)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sub := backend.NewSubmitter(newClient(),
				backend.WithSubmitValidator(mathpad.NewValidator(mathpad.WithValidatorLogger(logger))),
				backend.WithSubmitLogger(logger))
			resp, err := sub.Do(ctx, m, req)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return backend.ErrCanceled
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			printResponse(cmd, resp)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "request parameter key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

// parseParam splits key=value; the value is JSON if it parses as JSON and
// a plain string otherwise.
func parseParam(s string) (string, interface{}, error) {
	k, raw, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", nil, fmt.Errorf("parameter %q: want key=value", s)
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return k, raw, nil
	}
	return k, v, nil
}

// printResponse writes the scalar fields of a solver reply followed by its
// iteration table, if it has one.
func printResponse(cmd *cobra.Command, resp backend.Response) {
	out := cmd.OutOrStdout()
	for _, k := range sortedKeys(resp) {
		switch resp[k].(type) {
		case []interface{}, map[string]interface{}:
			continue
		}
		fmt.Fprintf(out, "%s: %v\n", k, resp[k])
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return
	}
	cols := sortedKeys(rows[0])
	t := newTable(cols...)
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok {
				cells[i] = fmt.Sprint(v)
			}
		}
		t.Row(cells...)
	}
	fmt.Fprintln(out, t.Render())
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List numerical methods, their parameters and endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			eps := cfg.Endpoints()
			t := newTable("method", "parameters", "endpoint")
			for _, m := range backend.Methods() {
				t.Row(string(m), strings.Join(m.RequiredParams(), ", "), eps[m])
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health [method...]",
		Short: "Check that the solver services are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			methods := backend.Methods()
			if len(args) > 0 {
				methods = methods[:0:0]
				for _, a := range args {
					m, err := backend.ParseMethod(a)
					if err != nil {
						return err
					}
					methods = append(methods, m)
				}
			}

			client := newClient()
			failed := 0
			for _, m := range methods {
				status := "ok"
				if err := client.Health(cmd.Context(), m); err != nil {
					status = err.Error()
					failed++
					logger.Debug("health check failed", zap.String("method", string(m)), zap.Error(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-15s %s\n", m, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d services unhealthy", failed, len(methods))
			}
			return nil
		},
	}
}
