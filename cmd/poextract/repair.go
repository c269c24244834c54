package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/pipeline"
	"github.com/joseph-ayodele/po-extractor/internal/recovery"
)

var repairCanonical bool

var repairCmd = &cobra.Command{
	Use:   "repair [file]",
	Short: "Repair malformed model JSON read from a file or stdin",
	Long: `Run the JSON recovery engine over saved model output and print the
repaired document. With --canonical the document is also normalized,
validated and scored exactly as an extraction attempt would be.

No model is called and no configuration is required.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		raw, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
		rec, err := recovery.New(logger).Recover(string(raw))
		if err != nil {
			return err
		}

		var out any = rec.Value
		if repairCanonical {
			out = pipeline.Evaluate(rec, 1)
		}
		if rec.Repaired {
			logger.Warn("repaired", "strategy", rec.Strategy, "truncated", rec.Truncated)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	repairCmd.Flags().BoolVar(&repairCanonical, "canonical", false, "normalize, validate and score the repaired document")
}
