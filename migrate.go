package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stsysd/dosesim/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			// ストアを開くとマイグレーションが実行される
			st, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			v, err := db.Version(st.DB(), st.Dialect())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", v, st.Dialect())
			return nil
		},
	}
}
