package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/common"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "poextract",
	Short: "Extract structured purchase orders from PDFs, spreadsheets and text",
	Long: `poextract converts purchase order documents into a canonical JSON
purchase order using an LLM, repairing malformed model output and retrying
with validation feedback until the result is usable.

Configuration comes from --config (YAML) and environment variables such as
OPENAI_API_KEY, LLM_PROVIDER, DB_DRIVER and DB_URL.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(extractCmd, repairCmd, watchCmd, serveCmd, profilesCmd, runsCmd)
}

// loadConfig reads and validates configuration and builds the stderr logger,
// keeping stdout free for command output.
func loadConfig() (*common.ConfigLoader, *slog.Logger, error) {
	loader, err := common.NewConfigLoader(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	cfg := loader.Get()
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, nil, err
	}
	return loader, logger, nil
}
