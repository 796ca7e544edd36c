package main

import (
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/zipdata-cli/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and unpack the source files",
	Long: `Downloads the ZCTA gazetteer archive and (if configured) the population
file into the data directory, and extracts the gazetteer text file from its
archive. Supports http(s):// and ftp:// source URLs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dataDir, _ := cmd.Flags().GetString("data-dir")
		if dataDir == "" {
			dataDir = cfg.Fetch.DataDir
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return eris.Wrapf(err, "fetch: create data dir %s", dataDir)
		}

		timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second

		download := func(rawURL string) (string, error) {
			dest := filepath.Join(dataDir, path.Base(rawURL))

			var f fetcher.Fetcher
			if strings.HasPrefix(rawURL, "ftp://") {
				f = fetcher.NewFTPFetcher(timeout)
			} else {
				f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
					UserAgent: cfg.Fetch.UserAgent,
					Timeout:   timeout,
				})
			}

			zap.L().Info("downloading source", zap.String("url", rawURL), zap.String("dest", dest))
			n, err := f.DownloadToFile(ctx, rawURL, dest)
			if err != nil {
				return "", eris.Wrapf(err, "fetch: download %s", rawURL)
			}
			zap.L().Info("download complete", zap.String("dest", dest), zap.Int64("bytes", n))
			return dest, nil
		}

		var gazArchive, popArchive string
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			dest, err := download(cfg.Fetch.GazetteerURL)
			gazArchive = dest
			return err
		})
		if cfg.Fetch.PopulationURL != "" {
			g.Go(func() error {
				dest, err := download(cfg.Fetch.PopulationURL)
				popArchive = dest
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if strings.EqualFold(filepath.Ext(gazArchive), ".zip") {
			// The gazetteer archive holds exactly one TXT.
			extracted, err := fetcher.ExtractZIPSingle(gazArchive, dataDir)
			if err != nil {
				return eris.Wrapf(err, "fetch: extract %s", gazArchive)
			}
			fmt.Printf("Gazetteer extracted to %s\n", extracted)
		} else {
			fmt.Printf("Gazetteer downloaded to %s\n", gazArchive)
		}

		if popArchive != "" && strings.EqualFold(filepath.Ext(popArchive), ".zip") {
			// ACS table downloads bundle the data CSV with metadata files.
			extracted, err := fetcher.ExtractZIP(popArchive, dataDir)
			if err != nil {
				return eris.Wrapf(err, "fetch: extract %s", popArchive)
			}
			fmt.Printf("Population archive extracted (%d files)\n", len(extracted))
		}

		return nil
	},
}

func init() {
	fetchCmd.Flags().String("data-dir", "", "download directory (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
