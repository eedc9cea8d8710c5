package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stsysd/dosesim/api"
	"github.com/stsysd/dosesim/archive"
	"github.com/stsysd/dosesim/metrics"
	"github.com/stsysd/dosesim/seed"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Bool("seed", false, "Seed the builtin substance catalog before serving")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if err := e.cfg.RequireAPIKey(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if doSeed, _ := cmd.Flags().GetBool("seed"); doSeed {
		subs, err := seed.Builtin()
		if err != nil {
			return err
		}
		if _, err := seed.NewSeeder(st, e.logger).Seed(ctx, subs); err != nil {
			return err
		}
	}

	arc, err := archive.OpenFromConfig(ctx, e.cfg.Archive)
	if err != nil {
		return err
	}
	opts := []api.Option{
		api.WithLogger(e.logger),
		api.WithMetrics(metrics.New()),
	}
	if arc != nil {
		e.logger.Info("Archiving simulations", "driver", arc.Driver())
		opts = append(opts, api.WithArchive(arc))
	}

	server := api.NewServer(st, e.cfg, opts...)
	if err := server.Run(ctx, ":"+e.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
