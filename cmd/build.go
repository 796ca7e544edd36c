package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/zipdata-cli/internal/gazetteer"
	"github.com/sells-group/zipdata-cli/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the canonical dataset and export every format",
	Long: `Parses the gazetteer, assigns canonical record ids in ZIP order, merges
population where a source is given, and writes the CSV, JSON, and SQL exports
plus a build manifest to the output directory. Validation failures abort the
run before anything is written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gazPath, _ := cmd.Flags().GetString("gazetteer")
		popPath, _ := cmd.Flags().GetString("population")
		outDir, _ := cmd.Flags().GetString("out-dir")
		acsRaw, _ := cmd.Flags().GetBool("acs-raw")
		fromShp, _ := cmd.Flags().GetBool("from-shapefile")

		if outDir == "" {
			outDir = cfg.Build.OutDir
		}

		result, err := pipeline.Run(ctx, pipeline.RunOptions{
			GazetteerPath:  gazPath,
			FromShapefile:  fromShp,
			PopulationPath: popPath,
			ACSRaw:         acsRaw,
			PopZipColumn:   cfg.Build.PopZipColumn,
			PopColumn:      cfg.Build.PopColumn,
			Columns: gazetteer.Columns{
				Zip: cfg.Build.ZipColumn,
				Lat: cfg.Build.LatColumn,
				Lng: cfg.Build.LngColumn,
			},
			Encoding: cfg.Build.Encoding,
			OutDir:   outDir,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Built %d records (%d with population) into %s\n",
			result.Manifest.Records, result.Manifest.Merge.Matched, outDir)
		return nil
	},
}

func init() {
	buildCmd.Flags().String("gazetteer", "", "path to the gazetteer text file or ZCTA shapefile")
	buildCmd.Flags().String("population", "", "optional population file (CSV or XLSX)")
	buildCmd.Flags().String("out-dir", "", "export directory (default from config)")
	buildCmd.Flags().Bool("acs-raw", false, "population file is a raw ACS export (ZCTA5-prefixed, two header rows)")
	buildCmd.Flags().Bool("from-shapefile", false, "derive coordinates from polygon centroids in a .shp file")
	_ = buildCmd.MarkFlagRequired("gazetteer")
	rootCmd.AddCommand(buildCmd)
}
