package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/stateguard/internal/cli"
	"github.com/aretw0/stateguard/internal/presentation/report"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/persistence/middleware"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Inspect stored pages",
	Long: `List, inspect and remove the pages a file or redis store holds for a session.
Use --session application for the long-lived application page.`,
}

var pagesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the live pages of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPages(cmd, func(ctx context.Context, scope string, store ports.PageStore) error {
			names, err := store.ListPages(ctx, scope)
			if err != nil {
				return fmt.Errorf("failed to list pages: %w", err)
			}
			return report.Write(cmd.OutOrStdout(), report.PageList(scope, names))
		})
	},
}

var pagesInspectCmd = &cobra.Command{
	Use:   "inspect <page>",
	Short: "Show the states of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withPages(cmd, func(ctx context.Context, scope string, store ports.PageStore) error {
			page, err := store.LoadPage(ctx, scope, args[0])
			if err != nil {
				return fmt.Errorf("failed to load page %q: %w", args[0], err)
			}
			return printPages(cmd, format, scope, []*domain.Page{page})
		})
	},
}

var pagesGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print a Mermaid flowchart of every page of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPages(cmd, func(ctx context.Context, scope string, store ports.PageStore) error {
			names, err := store.ListPages(ctx, scope)
			if err != nil {
				return fmt.Errorf("failed to list pages: %w", err)
			}
			pages := make([]*domain.Page, 0, len(names))
			for _, name := range names {
				page, err := store.LoadPage(ctx, scope, name)
				if errors.Is(err, domain.ErrPageNotFound) {
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to load page %q: %w", name, err)
				}
				pages = append(pages, page)
			}
			return printPages(cmd, "mermaid", scope, pages)
		})
	},
}

var pagesRmCmd = &cobra.Command{
	Use:   "rm <page>...",
	Short: "Remove one or more pages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPages(cmd, func(ctx context.Context, scope string, store ports.PageStore) error {
			var failed error
			for _, name := range args {
				if err := store.DeletePage(ctx, scope, name); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", name, err)
					failed = errors.New("some pages were not removed")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed page '%s'\n", name)
			}
			return failed
		})
	},
}

var pagesSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the sessions that have pages (file store only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stores, err := cli.OpenStores(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer stores.Close()

		lister, ok := stores.Pages.(interface {
			ListScopes(ctx context.Context) ([]string, error)
		})
		if !ok {
			return fmt.Errorf("the %s backend cannot enumerate sessions", cfg.Store.Backend)
		}
		scopes, err := lister.ListScopes(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range scopes {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
	pagesCmd.PersistentFlags().String("session", "", "Session id (page store scope)")
	pagesInspectCmd.Flags().String("format", "markdown", "Output format: markdown, json or mermaid")

	pagesCmd.AddCommand(pagesLsCmd)
	pagesCmd.AddCommand(pagesInspectCmd)
	pagesCmd.AddCommand(pagesGraphCmd)
	pagesCmd.AddCommand(pagesRmCmd)
	pagesCmd.AddCommand(pagesSessionsCmd)
}

// withPages opens the configured store, sealed with the configured keys, and runs fn on it.
func withPages(cmd *cobra.Command, fn func(ctx context.Context, scope string, store ports.PageStore) error) error {
	scope, _ := cmd.Flags().GetString("session")
	if scope == "" {
		return errors.New("--session is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == "memory" {
		return errors.New("the memory backend keeps nothing between runs: configure a file or redis store")
	}

	stores, err := cli.OpenStores(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer stores.Close()
	mws, err := cli.StoreMiddlewares(cfg.Store)
	if err != nil {
		return err
	}

	store := stores.Pages
	if ports.IsApplicationScope(scope) {
		store = stores.App
	}
	return fn(cmd.Context(), scope, middleware.Chain(store, mws...))
}

func printPages(cmd *cobra.Command, format, scope string, pages []*domain.Page) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(pages) == 1 {
			return enc.Encode(pages[0])
		}
		return enc.Encode(pages)
	case "mermaid":
		_, err := fmt.Fprint(out, report.Mermaid(pages))
		return err
	case "markdown", "":
		for _, p := range pages {
			if err := report.Write(out, report.Markdown(scope, p)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

