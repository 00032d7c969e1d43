package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/report"
)

// adminTimeout bounds the storage operations of the sites subcommands.
const adminTimeout = time.Minute

// NewSitesCmd creates the sites command and its subcommands.
func NewSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Inspect and manage stored sites",
		Long: `Sites lists, shows and deletes stored sites, and toggles whether a site is
refreshed by 'sitemapper run'.

Examples:
  # List every stored site
  sitemapper sites list

  # Show the page graph of a site as JSON
  sitemapper sites show --json example.com

  # Stop refreshing a site
  sitemapper sites refresh example.com --enabled=false

  # Delete a site
  sitemapper sites delete example.com`,
	}

	cmd.AddCommand(newSitesListCmd())
	cmd.AddCommand(newSitesShowCmd())
	cmd.AddCommand(newSitesDeleteCmd())
	cmd.AddCommand(newSitesRefreshCmd())

	return cmd
}

func newSitesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sites",
		Args:  cobra.NoArgs,
		RunE:  runSitesListCmd,
	}
	reportFlags(cmd)
	return cmd
}

func newSitesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <domain>",
		Short: "Show the stored report of a site",
		Args:  cobra.ExactArgs(1),
		RunE:  runSitesShowCmd,
	}
	reportFlags(cmd)
	return cmd
}

func newSitesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <domain>",
		Short: "Delete a stored site",
		Args:  cobra.ExactArgs(1),
		RunE:  runSitesDeleteCmd,
	}
}

func newSitesRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh <domain>",
		Short: "Enable or disable periodic refresh of a site",
		Args:  cobra.ExactArgs(1),
		RunE:  runSitesRefreshCmd,
	}
	cmd.Flags().Bool("enabled", true, "Whether the site is refreshed when it becomes stale")
	return cmd
}

// withAdminApp builds the app for a sites subcommand, runs fn and closes
// the app.
func withAdminApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
	defer cancel()

	fnErr := fn(ctx, a)
	if err := a.close(ctx); err != nil && fnErr == nil {
		fnErr = err
	}
	return fnErr
}

func runSitesListCmd(cmd *cobra.Command, _ []string) error {
	return withAdminApp(cmd, func(ctx context.Context, a *app) error {
		infos, err := a.engine.GetSites(ctx)
		if err != nil {
			return err
		}
		return withReportWriter(cmd, func(w report.Writer) error {
			_, err := w.WriteSites(infos)
			return err
		})
	})
}

func runSitesShowCmd(cmd *cobra.Command, args []string) error {
	return withAdminApp(cmd, func(ctx context.Context, a *app) error {
		site, err := a.loadSite(ctx, args[0])
		if err != nil {
			return err
		}
		return withReportWriter(cmd, func(w report.Writer) error {
			_, err := w.Write(site)
			return err
		})
	})
}

func runSitesDeleteCmd(cmd *cobra.Command, args []string) error {
	return withAdminApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.engine.DeleteSite(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted site: %s\n", args[0])
		return nil
	})
}

func runSitesRefreshCmd(cmd *cobra.Command, args []string) error {
	enabled, err := cmd.Flags().GetBool("enabled")
	if err != nil {
		return err
	}
	return withAdminApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.engine.SetRefreshEnabled(ctx, args[0], enabled); err != nil {
			return fmt.Errorf("failed to update %s: %w", args[0], err)
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Refresh %s for site: %s\n", state, args[0])
		return nil
	})
}
