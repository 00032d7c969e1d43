package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for SiteMapper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapper",
		Short: "Map web sites into page and link graphs",
		Long: `SiteMapper crawls a web site breadth-first and stores the pages it found
together with the links between them.

Crawls respect robots.txt and are throttled per site. The www and bare
spellings of a domain are treated as one site. Stored sites are crawled
again once they become stale, either on demand or by 'sitemapper run'.`,
		Version:       readBuildInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitemapper in current or home directory)")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory for stored sites (default: XDG data directory)")
	cmd.PersistentFlags().String("storage", "",
		"Storage backend: sqlite, file or memory (default: from configuration)")
	cmd.PersistentFlags().String("log-format", "",
		"Log format: text or json (default: from configuration)")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSitesCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
