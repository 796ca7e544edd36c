package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/places"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Derive the ZIP to city/state mapping",
	Long: `Joins the Census ZCTA-to-place relationship file against the place
gazetteer, picks one place per ZIP by the chosen overlap metric, splits the
place name into base name and type, and writes a zip,city,state,type CSV.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		relPath, _ := cmd.Flags().GetString("relationships")
		gazPath, _ := cmd.Flags().GetString("place-gazetteer")
		outPath, _ := cmd.Flags().GetString("out")
		byPop, _ := cmd.Flags().GetBool("by-population")

		relFile, err := os.Open(relPath)
		if err != nil {
			return eris.Wrapf(err, "places: open relationships %s", relPath)
		}
		defer relFile.Close() //nolint:errcheck

		gazFile, err := os.Open(gazPath)
		if err != nil {
			return eris.Wrapf(err, "places: open place gazetteer %s", gazPath)
		}
		defer gazFile.Close() //nolint:errcheck

		lookup, err := places.LoadPlaceGazetteer(ctx, gazFile)
		if err != nil {
			return err
		}
		rels, err := places.LoadRelationships(ctx, relFile)
		if err != nil {
			return err
		}

		selection := places.SelectMaxArea
		if byPop {
			selection = places.SelectMaxPop
		}
		mapping, missing := places.Convert(lookup, places.SelectBest(rels, selection))
		zap.L().Info("place mapping built",
			zap.Int("zips", len(mapping)),
			zap.Int("missing_places", missing),
		)

		out, err := os.Create(outPath)
		if err != nil {
			return eris.Wrapf(err, "places: create %s", outPath)
		}
		defer out.Close() //nolint:errcheck

		if err := places.WriteCSV(out, mapping); err != nil {
			return err
		}

		fmt.Printf("Wrote %d place mappings to %s\n", len(mapping), outPath)
		return nil
	},
}

func init() {
	placesCmd.Flags().String("relationships", "", "ZCTA-to-place relationship file (pipe-delimited)")
	placesCmd.Flags().String("place-gazetteer", "", "place gazetteer file (tab-delimited)")
	placesCmd.Flags().String("out", "places.csv", "output CSV path")
	placesCmd.Flags().Bool("by-population", false, "rank overlapping places by population instead of land area")
	_ = placesCmd.MarkFlagRequired("relationships")
	_ = placesCmd.MarkFlagRequired("place-gazetteer")
	rootCmd.AddCommand(placesCmd)
}
