package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gamechain/internal/codec"
	"gamechain/internal/config"
	"gamechain/internal/gametx"
	"gamechain/internal/ledger"
	"gamechain/internal/names"
)

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// encodeCmd runs the encoder offline so a block's game txs can be audited
// without a node.
func encodeCmd(cfg *config.Config) *cobra.Command {
	var (
		stepPath, namesPath string
		height              int64
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a game step into ledger transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var msg codec.GameStepTx
			if err := readJSON(stepPath, &msg); err != nil {
				return err
			}
			step, err := msg.StepResult()
			if err != nil {
				return err
			}

			params := ledger.MainNetParams()
			idx := names.NewMemIndex()
			if namesPath != "" {
				var regs []codec.NameRegisterTx
				if err := readJSON(namesPath, &regs); err != nil {
					return err
				}
				for _, r := range regs {
					script, err := ledger.PayToAddress(r.Address, params)
					if err != nil {
						return fmt.Errorf("name %q: %w", r.Name, err)
					}
					tx, err := names.NewRegistrationTx(r.Name, []byte(r.Value), script, 0)
					if err != nil {
						return fmt.Errorf("name %q: %w", r.Name, err)
					}
					if err := idx.Register(r.Name, 0, tx); err != nil {
						return err
					}
				}
			}

			logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			txs, err := gametx.NewEncoder(idx, params, logger).Encode(gametx.GameState{Height: height}, step)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := cfg.DescribeOptions()
			for _, tx := range txs {
				b, err := ledger.SerializeTx(tx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", tx.TxHash(), hex.EncodeToString(b))
				for _, line := range gametx.DescribeTx(tx, opts) {
					fmt.Fprintf(out, "  %s\n", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stepPath, "step", "", "game step JSON file")
	cmd.Flags().StringVar(&namesPath, "names", "", "JSON list of {name, address, value} registered before the step")
	cmd.Flags().Int64Var(&height, "height", 1, "step height")
	_ = cmd.MarkFlagRequired("step")
	return cmd
}
