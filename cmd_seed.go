package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stsysd/dosesim/model"
	"github.com/stsysd/dosesim/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a substance catalog into the store",
		Long: `Upserts substances by name. Without --file the builtin catalog
(Caffeine, Alcohol, Nicotine, Paracetamol) is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			file, _ := cmd.Flags().GetString("file")
			var subs []model.Substance
			if file != "" {
				subs, err = seed.LoadFile(file)
			} else {
				subs, err = seed.Builtin()
			}
			if err != nil {
				return err
			}

			st, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := seed.NewSeeder(st, e.logger).Seed(cmd.Context(), subs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d substances (%d added, %d updated)\n", res.Total(), res.Added, res.Updated)
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML catalog to load instead of the builtin one")
	return cmd
}
