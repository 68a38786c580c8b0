package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/julianshen/reposcribe/internal/wiki"
)

func generateCmd() *cobra.Command {
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "generate <owner/repo>",
		Short: "Generate a wiki for a repository",
		Long: `Analyse the repository's file tree and README, plan a set of wiki pages,
and generate each page's Markdown content with inline source citations.

Generation for a repository that already has a run in flight is rejected.
Re-running after a finished run regenerates the wiki in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepoArg(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			svc, cleanup, err := newService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			w, err := svc.RequestGeneration(ctx, owner, repo)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generation started for %s\n", w.Repository)

			// Mirror status transitions while the background run progresses.
			done := make(chan struct{})
			go func() {
				svc.Wait()
				close(done)
			}()

			last := w.Status
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					final, err := svc.GetStatus(ctx, owner, repo)
					if err != nil {
						return err
					}
					if final.Status != wiki.StatusGenerated {
						return fmt.Errorf("generation for %s finished with status %s", final.Repository, final.Status)
					}
					pages, err := svc.GetPages(ctx, owner, repo)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Generated %d pages for %s (branch %s)\n", len(pages), final.Repository, final.Branch)
					return nil
				case <-ticker.C:
					current, err := svc.GetStatus(ctx, owner, repo)
					if err != nil {
						continue
					}
					if current.Status != last {
						fmt.Fprintf(out, "Status: %s\n", current.Status)
						last = current.Status
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "status polling interval")
	return cmd
}
