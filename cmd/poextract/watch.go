package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/app"
)

var (
	watchClient   string
	watchForce    bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Extract documents dropped into one or more folders",
	Long: `Extract every unprocessed document under the given folders, then keep
watching them. Each result is written beside its document as
"<file name>.po.json". A document counts as processed while its result is
at least as new as the document itself.

Examples:
  poextract watch ./inbox
  poextract watch ./inbox/aneri --client Aneri
  poextract watch ./inbox --force     # reprocess everything once`,
	Args: cobra.MinimumNArgs(1),
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
		loader.Watch(logger, a.ApplyConfig)
		a.WatchProfiles(ctx)

		return a.Watch(ctx, app.WatchOptions{
			Roots:    args,
			Client:   watchClient,
			Force:    watchForce,
			Debounce: watchDebounce,
		})
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchClient, "client", "", "client name applied to every document")
	f.BoolVar(&watchForce, "force", false, "reprocess documents that already have a result")
	f.DurationVar(&watchDebounce, "debounce", 750*time.Millisecond, "quiet period before a changed file is picked up")
}
