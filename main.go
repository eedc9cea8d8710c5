// Package main はアプリケーションのエントリーポイントを提供します。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stsysd/dosesim/config"
	"github.com/stsysd/dosesim/logging"
	"github.com/stsysd/dosesim/store"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dosesim",
		Short: "Pharmacokinetic dose simulation service",
		Long: `dosesim simulates blood concentration, effect and tolerance of a
substance over time for a given dosing regimen and subject.

Without a subcommand the HTTP API server is started.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServe,
	}
	rootCmd.Flags().Bool("seed", false, "Seed the builtin substance catalog before serving")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newSimulateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// env は設定とロガーをまとめたものです。
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadEnv は設定を読み込み、設定に従ったロガーを作成します。
func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.LogLevel, os.Stderr),
	}, nil
}

// openStore は設定に従いストアを開きます。スキーマは開く際に適用されます。
func (e *env) openStore(ctx context.Context) (*store.SQLStore, error) {
	st, err := store.Open(ctx, e.cfg)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Store opened", "dialect", st.Dialect())
	return st, nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dosesim version %s\n", version)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
