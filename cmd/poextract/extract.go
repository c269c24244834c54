package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/app"
	"github.com/joseph-ayodele/po-extractor/internal/core"
)

var (
	extractClient   string
	extractMapping  string
	extractExpected int
	extractStrict   bool
	extractOut      string
	extractXLSX     string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract one purchase order document",
	Long: `Extract one document and print the result JSON.

Examples:
  poextract extract order.pdf --client Aneri
  poextract extract order.xlsx --expected-items 12 --strict
  poextract extract order.pdf --out order.json --xlsx order.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		loader, logger, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(ctx, loader.Get(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := core.Options{
			ClientName:  extractClient,
			MappingText: extractMapping,
			Strict:      extractStrict || loader.Get().Pipeline.Strict,
		}
		if cmd.Flags().Changed("expected-items") {
			n := extractExpected
			opts.ExpectedItems = &n
		}

		res, err := a.Processor.ProcessFile(ctx, args[0], opts)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		if extractOut != "" {
			if err := os.WriteFile(extractOut, append(data, '\n'), 0o644); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}

		if extractXLSX != "" {
			book, err := a.Exporter.ResultXLSX(ctx, res)
			if err != nil {
				return err
			}
			if err := os.WriteFile(extractXLSX, book, 0o644); err != nil {
				return err
			}
		}
		if res.NeedsReview {
			logger.Warn("result needs review", "confidence", res.Confidence, "errors", len(res.Errors))
		}
		return nil
	},
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractClient, "client", "", "client name; selects the registered column mapping")
	f.StringVar(&extractMapping, "mapping", "", "column mapping text, overrides the client profile")
	f.IntVar(&extractExpected, "expected-items", 0, "number of line items the document is known to contain")
	f.BoolVar(&extractStrict, "strict", false, "fail instead of returning a result that still has validation errors")
	f.StringVarP(&extractOut, "out", "o", "", "write the result JSON to this file instead of stdout")
	f.StringVar(&extractXLSX, "xlsx", "", "also write the result as an XLSX workbook")
}
