package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/variables"
)

// quoteFile is an offline pricing request: everything the engine needs,
// without a database.
type quoteFile struct {
	Currency          string               `yaml:"currency"`
	Now               time.Time            `yaml:"now"`
	Price             pricing.Price        `yaml:"price"`
	Formulas          []pricing.Formula    `yaml:"formulas"`
	ProductVariables  []variables.Variable `yaml:"product_variables"`
	PurchaseVariables []variables.Variable `yaml:"purchase_variables"`
	SystemVariables   []variables.Variable `yaml:"system_variables"`
	Context           variables.Context    `yaml:"context"`
}

func loadQuoteFile(path string) (quoteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return quoteFile{}, fmt.Errorf("read quote file: %w", err)
	}

	var qf quoteFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return quoteFile{}, fmt.Errorf("parse quote file: %w", err)
	}

	// Without an explicit list the formulas run in file order.
	if len(qf.Price.FormulaNames) == 0 && qf.Price.PricingType != pricing.TypeFixed {
		for _, f := range qf.Formulas {
			qf.Price.FormulaNames = append(qf.Price.FormulaNames, f.FormulaName)
		}
	}
	return qf, nil
}

func (qf quoteFile) request() pricing.Request {
	return pricing.Request{
		Price:            qf.Price,
		Formulas:         pricing.FormulaMap(qf.Formulas),
		ProductVariables: qf.ProductVariables,
		Sources: variables.Sources{
			PurchaseVariables: qf.PurchaseVariables,
			SystemVariables:   qf.SystemVariables,
		},
		Context:  qf.Context,
		Currency: qf.Currency,
	}
}

func newQuoteCmd(a *app) *cobra.Command {
	var (
		file   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a request described in a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			qf, err := loadQuoteFile(file)
			if err != nil {
				return err
			}

			resolverOpts := []variables.Option{}
			if !qf.Now.IsZero() {
				now := qf.Now
				resolverOpts = append(resolverOpts, variables.WithClock(func() time.Time { return now }))
			}
			engine := pricing.NewEngine(
				pricing.WithLogger(a.logger.Named("pricing")),
				pricing.WithResolver(variables.NewResolver(resolverOpts...)),
				pricing.WithDefaultCurrency(a.cfg.Currency),
			)

			res := engine.Price(cmd.Context(), qf.request())
			return writeResult(cmd.OutOrStdout(), res, output)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML request file")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writeResult(w io.Writer, res pricing.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "text", "":
		fmt.Fprintln(w, res.Calculation)
		for _, fr := range res.AppliedFormulas {
			status := "skipped"
			if fr.Applied {
				status = "applied"
			}
			fmt.Fprintf(w, "  %-24s %-8s %10.2f  %s\n", fr.FormulaName, status, fr.Value, fr.Calculation)
		}
		fmt.Fprintf(w, "Final price: %.2f %s\n", res.FinalPrice, res.Currency)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
