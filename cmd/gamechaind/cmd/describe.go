package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gamechain/internal/config"
	"gamechain/internal/gametx"
)

func describeCmd(cfg *config.Config) *cobra.Command {
	var (
		brief, asJSON, noColon bool
		prefix, suffix         string
	)
	cmd := &cobra.Command{
		Use:   "describe <hex-script>",
		Short: "Render a game input script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := hex.DecodeString(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("decode script hex: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(gametx.ToStructured(script))
			}

			opts := cfg.DescribeOptions()
			flags := cmd.Flags()
			if flags.Changed("brief") {
				opts.Brief = brief
			}
			if flags.Changed("no-colon") {
				opts.UseColon = !noColon
			}
			if flags.Changed("prefix") {
				opts.NameWrap.Prefix = prefix
			}
			if flags.Changed("suffix") {
				opts.NameWrap.Suffix = suffix
			}
			_, err = fmt.Fprintln(out, gametx.Describe(script, opts))
			return err
		},
	}
	cmd.Flags().BoolVar(&brief, "brief", false, "omit killers and the colon")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured form")
	cmd.Flags().BoolVar(&noColon, "no-colon", false, "do not put a colon after the name")
	cmd.Flags().StringVar(&prefix, "prefix", "", "text before the name")
	cmd.Flags().StringVar(&suffix, "suffix", "", "text after the name")
	return cmd
}
