// cmd/reposcribe/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/julianshen/reposcribe/internal/config"
	"github.com/julianshen/reposcribe/internal/integrations"
	"github.com/julianshen/reposcribe/internal/provider"
	"github.com/julianshen/reposcribe/internal/repohost"
	"github.com/julianshen/reposcribe/internal/store"
	"github.com/julianshen/reposcribe/internal/wiki"

	// Register providers via init() side effects.
	_ "github.com/julianshen/reposcribe/internal/provider/anthropic"
	_ "github.com/julianshen/reposcribe/internal/provider/openai"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
	storePath  string
	modelFlag  string
	hostFlag   string
)

func versionString() string {
	return fmt.Sprintf("reposcribe %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "reposcribe",
		Short:         "Generate documentation wikis for code repositories",
		Long:          "reposcribe — analyse a repository with an LLM and generate a multi-page documentation wiki with inline source citations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "override wiki database path")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override model name")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "override source host: github, gitlab")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(versionString())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(pagesCmd())
	rootCmd.AddCommand(pageCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path, loads the config, and applies any
// flag overrides.
func loadConfig() (*config.Config, error) {
	cfgPath := configPath
	if cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgPath = filepath.Join(home, ".config", "reposcribe", "config.toml")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if modelFlag != "" {
		cfg.Provider.Model = modelFlag
	}
	if hostFlag != "" {
		cfg.Host.Kind = hostFlag
	}

	return cfg, nil
}

// parseRepoArg splits an "owner/repo" argument.
func parseRepoArg(arg string) (owner, repo string, err error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/repo", arg)
	}
	return parts[0], parts[1], nil
}

// newHost builds the source-control host client selected by the config.
func newHost(cfg *config.Config) (repohost.Host, error) {
	switch cfg.Host.Kind {
	case "", "github":
		token, err := config.ResolveAPIKey(cfg.Host.TokenSource, cfg.Host.Token, "GITHUB_TOKEN")
		if err != nil {
			return nil, fmt.Errorf("resolving github token: %w", err)
		}
		return repohost.NewGitHub(token, cfg.Host.BaseURL, cfg.Host.RequestsPerSecond)
	case "gitlab":
		token, err := config.ResolveAPIKey(cfg.Host.TokenSource, cfg.Host.Token, "GITLAB_TOKEN")
		if err != nil {
			return nil, fmt.Errorf("resolving gitlab token: %w", err)
		}
		return repohost.NewGitLab(token, cfg.Host.BaseURL, cfg.Host.RequestsPerSecond)
	default:
		return nil, fmt.Errorf("unknown host kind %q", cfg.Host.Kind)
	}
}

// newService wires the full generation pipeline from config. The returned
// cleanup closes the store.
func newService(cfg *config.Config) (*wiki.Service, func(), error) {
	p, err := provider.NewProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating provider: %w", err)
	}
	completer := integrations.NewLLMCompleter(p, cfg.Provider.Model)

	host, err := newHost(cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	planner := wiki.NewPlanner(host, completer)
	pages := wiki.NewPageGenerator(host, completer, s, cfg.Generator.FileFetchConcurrency)
	orch := wiki.NewOrchestrator(host, planner, pages, s, cfg.Generator.Concurrency)

	return wiki.NewService(orch, s), func() { s.Close() }, nil
}

// newReadOnlyService wires a service over the store alone, enough for the
// read commands. No provider or host credentials are needed.
func newReadOnlyService(cfg *config.Config) (*wiki.Service, func(), error) {
	s, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return wiki.NewService(nil, s), func() { s.Close() }, nil
}
