package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/export"
	"github.com/sells-group/zipdata-cli/internal/places"
	"github.com/sells-group/zipdata-cli/internal/store"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a built dataset into the datastore",
	Long: `Reads the keyed CSV export and replaces the datastore's contents with it
in one transaction. With --places, also attaches the city/state mapping to
the freshly loaded records.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		csvPath, _ := cmd.Flags().GetString("csv")
		placesPath, _ := cmd.Flags().GetString("places")

		f, err := os.Open(csvPath)
		if err != nil {
			return eris.Wrapf(err, "load: open %s", csvPath)
		}
		defer f.Close() //nolint:errcheck

		records, err := export.ReadKeyedCSV(f)
		if err != nil {
			return err
		}

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		if err := st.ReplaceAll(ctx, records); err != nil {
			return err
		}
		zap.L().Info("dataset loaded", zap.Int("records", len(records)))

		if placesPath != "" {
			pf, err := os.Open(placesPath)
			if err != nil {
				return eris.Wrapf(err, "load: open %s", placesPath)
			}
			defer pf.Close() //nolint:errcheck

			mapping, err := places.ReadCSV(ctx, pf)
			if err != nil {
				return err
			}
			updated, err := st.UpdatePlaces(ctx, mapping)
			if err != nil {
				return err
			}
			zap.L().Info("places attached",
				zap.Int("mappings", len(mapping)),
				zap.Int("updated", updated),
			)
		}

		fmt.Printf("Loaded %d records into %s store\n", len(records), cfg.Store.Driver)
		return nil
	},
}

func init() {
	loadCmd.Flags().String("csv", "dist/zip_codes.csv", "keyed CSV export to load")
	loadCmd.Flags().String("places", "", "optional zip,city,state,type CSV to attach")
	rootCmd.AddCommand(loadCmd)
}
