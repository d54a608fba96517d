package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Simplici0/pricer/internal/expr"
)

var errInvalidExpression = errors.New("invalid expression")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <expression>",
		Short: "Check an expression without evaluating it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			source := strings.Join(args, " ")

			raw, err := expr.Lex(source)
			if err != nil {
				fmt.Fprintf(out, "invalid: %v\n", err)
				return errInvalidExpression
			}
			problems := expr.Validate(raw)
			if len(problems) == 0 {
				fmt.Fprintln(out, "valid")
				return nil
			}
			fmt.Fprintln(out, "invalid:")
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return errInvalidExpression
		},
	}
}

func newEvalCmd(a *app) *cobra.Command {
	var (
		vars         []string
		subtotal     float64
		runningTotal float64
	)

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression against the given variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseVars(vars)
			if err != nil {
				return err
			}
			compiled, err := expr.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}

			calc := expr.Context{Subtotal: subtotal, RunningTotal: runningTotal}
			res, err := compiled.Evaluate(values, calc)
			if err != nil {
				return err
			}
			a.logger.Debug("expression evaluated")

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strconv.FormatFloat(res.Value, 'f', -1, 64))
			if a.verbose {
				fmt.Fprintf(out, "calculation: %s\n", compiled.Render(values, calc))
				fmt.Fprintf(out, "used: %s\n", strings.Join(res.UsedVariables, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable as id=value (repeatable)")
	cmd.Flags().Float64Var(&subtotal, "subtotal", 0, "value of the reserved word subtotal")
	cmd.Flags().Float64Var(&runningTotal, "running-total", 0, "value of the reserved word runningTotal")
	return cmd
}

func parseVars(pairs []string) (expr.Values, error) {
	values := make(expr.Values, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, want id=value", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --var %q: %w", pair, err)
		}
		values[k] = f
	}
	return values, nil
}
