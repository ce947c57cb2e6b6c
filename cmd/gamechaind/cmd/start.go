package cmd

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/spf13/cobra"

	"gamechain/internal/app"
	"gamechain/internal/config"
	"gamechain/internal/eventindex"
	"gamechain/internal/eventlog"
)

func startCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the ABCI application server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())

			db, err := dbm.NewDB("gamechain", dbm.BackendType(cfg.DB.Backend), filepath.Join(cfg.Home, "data"))
			if err != nil {
				return err
			}

			opts := app.Options{
				Home:     cfg.Home,
				DB:       db,
				Logger:   logger,
				Describe: cfg.DescribeOptions(),
			}
			if cfg.EventLog.Enabled {
				opts.Sinks = append(opts.Sinks, eventlog.NewGameEventLogger(cfg.Home))
			}
			if cfg.EventIndex.Enabled {
				idx, err := eventindex.OpenSQLite(filepath.Join(cfg.Home, "index", "events.sqlite"))
				if err != nil {
					_ = db.Close()
					return err
				}
				opts.Sinks = append(opts.Sinks, idx)
				opts.History = idx
			}

			a, err := app.New(opts)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer func() { _ = a.Close() }()

			srv, err := server.NewServer(cfg.ABCI.Addr, cfg.ABCI.Transport, a)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() { _ = srv.Stop() }()
			logger.Info("abci server started", "addr", cfg.ABCI.Addr, "transport", cfg.ABCI.Transport, "home", cfg.Home)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-cmd.Context().Done():
			}
			logger.Info("shutting down")
			return nil
		},
	}
}
