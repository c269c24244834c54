package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/profiles"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Short: "List client profiles or print one mapping",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		reg, err := profiles.Load(cfg.ProfilesPath, common.NewLogger(cfg.Log, cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, name := range reg.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		}
		p, ok := reg.Lookup(args[0])
		if !ok {
			return fmt.Errorf("no profile named %q in %s", args[0], reg.Path())
		}
		fmt.Fprintf(out, "%s\n\n%s\n", p.Name, p.Mapping)
		return nil
	},
}
