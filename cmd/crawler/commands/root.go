package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/romangod6/shop-crawler/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "crawler",
	Short: "crawler audits and scrapes storefront pages listed in a sitemap.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if debug {
			spew.Fdump(os.Stderr, cfg)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default ./config.yaml or ./config/config.yaml).")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Dump the effective configuration and log debug messages.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
