package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zipdata",
	Short: "ZIP code reference dataset pipeline",
	Long:  "Downloads Census gazetteer sources, builds the canonical ZIP-to-coordinate dataset with population, exports it in every published format, and serves read-only queries over it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
