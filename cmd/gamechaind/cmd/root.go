package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gamechain/internal/config"
)

const flagConfig = "config"

// NewRootCmd creates the gamechaind command tree. Every subcommand sees the
// merged configuration through the returned command's context.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:           "gamechaind",
		Short:         "Game ledger node: derives death and bounty transactions from game steps",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlag("home", cmd.Flags().Lookup("home")); err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString(flagConfig)
			loaded, err := config.Load(v, path)
			if err != nil {
				return err
			}
			*cfg = loaded
			return nil
		},
	}
	rootCmd.PersistentFlags().String("home", ".gamechain", "node home directory")
	rootCmd.PersistentFlags().String(flagConfig, "", "config file (yaml, toml or json)")

	rootCmd.AddCommand(
		startCmd(cfg),
		describeCmd(cfg),
		encodeCmd(cfg),
	)
	return rootCmd
}
