package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/repository"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent extraction runs from the audit store",
	Long: `Connect to the configured audit store (DB_DRIVER, DB_URL), confirm it is
reachable and list the most recent extraction runs, newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		logger := common.NewLogger(cfg.Log, cmd.ErrOrStderr())
		if cfg.Database.DSN == "" {
			return common.NewAppError("CONFIG_ERROR", "DB_URL is not set", common.ErrInvalidInput)
		}
		runs, closeFn, err := repository.Open(cmd.Context(), repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer closeFn()

		list, err := runs.ListRecent(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tATTEMPTS\tCONFIDENCE\tSTARTED")
		for _, r := range list {
			conf := "-"
			if r.Confidence != nil {
				conf = fmt.Sprintf("%.2f", *r.Confidence)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.Filename, r.Status, r.Attempts, conf, r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
}
