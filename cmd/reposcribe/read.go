package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <owner/repo>",
		Short: "Show the generation status of a repository's wiki",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepoArg(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, cleanup, err := newReadOnlyService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			w, err := svc.GetStatus(cmdContext(cmd), owner, repo)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Repository: %s\n", w.Repository)
			fmt.Fprintf(out, "Status:     %s\n", w.Status)
			if w.Branch != "" {
				fmt.Fprintf(out, "Branch:     %s\n", w.Branch)
			}
			return nil
		},
	}
	return cmd
}

func pagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages <owner/repo>",
		Short: "List the generated wiki pages of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepoArg(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, cleanup, err := newReadOnlyService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			pages, err := svc.GetPages(cmdContext(cmd), owner, repo)
			if err != nil {
				return err
			}

			if len(pages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pages generated yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tSLUG\tTITLE")
			for _, p := range pages {
				fmt.Fprintf(w, "%d\t%s\t%s\n", p.Order, p.Slug, p.Title)
			}
			return w.Flush()
		},
	}
	return cmd
}

func pageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page <owner/repo> <slug>",
		Short: "Print one generated wiki page as Markdown",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepoArg(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, cleanup, err := newReadOnlyService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := svc.GetPageBySlug(cmdContext(cmd), owner, repo, args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), p.MarkdownContent)
			return nil
		},
	}
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
