package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/drpaneas/voiceprint/internal/config"
	"github.com/drpaneas/voiceprint/internal/pipeline"
	"github.com/drpaneas/voiceprint/internal/report"
	"github.com/drpaneas/voiceprint/internal/textutil"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd(viper.New(), os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if out := pipeline.Classify(err); out.Remedy != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", out.Remedy)
		}
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	var (
		cfg        *config.Config
		configFile string
	)

	root := &cobra.Command{
		Use:   "voiceprint",
		Short: "Write comments on other people's posts in a person's own voice",
		Long: `voiceprint learns how a person writes from their public posts and comments,
then drafts comments on someone else's recent post that sound like them.

Examples:
  voiceprint style https://www.linkedin.com/in/jane-doe
  voiceprint posts sam-lee
  voiceprint generate jane-doe sam-lee --count 3
  voiceprint generate jane-doe sam-lee --post 7312345 --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config %s: %w", configFile, err)
				}
			}
			var err error
			cfg, err = config.Load(v)
			if err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), cfg)
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	f.String("provider", "anthropic", "LLM provider: openai, anthropic, gemini, ollama")
	f.String("model", "", "LLM model (default: per-provider)")
	f.String("openai-base-url", "", "Override the OpenAI API endpoint")
	f.String("data-source", config.SourceAPI, "Where profiles come from: api or file")
	f.String("data-file", "", "JSON or YAML export to read profiles from (data-source file)")
	f.Int("requests-per-hour", 100, "Client-side limit on data API requests")
	f.Int("max-pages", 3, "Maximum post pages fetched per profile")
	f.Int("min-history", 10, "Minimum history items needed to derive a style")
	f.Duration("recency-window", 30*24*time.Hour, "Only posts newer than this are eligible")
	f.Int("variations", 3, "Default number of comments to generate")
	f.Int("retries-per-slot", 2, "Regenerations allowed for each rejected comment")
	f.Float64("temperature", 0.7, "Sampling temperature")
	f.StringSlice("approaches", []string{"agreement-elaboration", "question", "personal-anecdote"}, "Comment approaches, cycled across variations")
	f.String("denylist", "", "YAML file replacing the built-in phrase denylist")
	f.String("cache", config.CacheSQLite, "Cache backend: sqlite, memory or redis")
	f.String("cache-path", "", "SQLite cache file (default: <output>/cache.db)")
	f.String("redis-url", "", "Redis URL (cache redis)")
	f.Duration("signature-ttl", 7*24*time.Hour, "How long a derived style stays cached")
	f.Duration("posts-ttl", 24*time.Hour, "How long fetched posts stay cached")
	f.Duration("call-timeout", 60*time.Second, "Deadline for each external call")
	f.String("output", "./output", "Directory for style and comment reports")
	f.BoolP("verbose", "v", false, "Enable verbose logging")
	f.String("log-format", "text", "Log format: text or json")
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}

	root.AddCommand(
		newStyleCmd(&cfg, stdout),
		newPostsCmd(&cfg, stdout),
		newGenerateCmd(&cfg, stdout),
	)
	return root
}

func setupLogging(w io.Writer, cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func newStyleCmd(cfg **config.Config, stdout io.Writer) *cobra.Command {
	var refresh, asJSON bool
	cmd := &cobra.Command{
		Use:   "style <profile>",
		Short: "Derive and print a person's writing style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*cfg).ValidateData(); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), *cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			sr, err := a.orch.DeriveStyle(cmd.Context(), args[0], refresh)
			if err != nil {
				return fmt.Errorf("deriving style: %w", err)
			}
			if asJSON {
				return writeJSON(stdout, sr)
			}
			return report.RenderStyle(stdout, sr)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore any cached style and fetch again")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of markdown")
	return cmd
}

func newPostsCmd(cfg **config.Config, stdout io.Writer) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "posts <target>",
		Short: "List a person's posts that are recent enough to comment on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*cfg).ValidateData(); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), *cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			posts, err := a.orch.EligiblePosts(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("listing posts: %w", err)
			}
			if asJSON {
				return writeJSON(stdout, posts)
			}
			for _, p := range posts {
				fmt.Fprintf(stdout, "%s  %s  %-11s %4d likes  %s\n",
					p.ID, p.PostedAt.Format("2006-01-02"), p.Kind, p.Engagement.Likes,
					textutil.Truncate(p.Text, 80, "..."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a list")
	return cmd
}

func newGenerateCmd(cfg **config.Config, stdout io.Writer) *cobra.Command {
	var (
		postID string
		count  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "generate <profile> <target>",
		Short: "Write comments in <profile>'s voice on one of <target>'s recent posts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*cfg).Validate(); err != nil {
				return err
			}
			if count < 0 {
				return errors.New("--count must not be negative")
			}
			a, err := newApp(cmd.Context(), *cfg, true)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.orch.Generate(cmd.Context(), pipeline.Request{
				ProfileID: args[0],
				TargetID:  args[1],
				PostID:    postID,
				Count:     count,
			})
			if err != nil {
				return fmt.Errorf("generating comments: %w", err)
			}
			if res.Shortfall != nil {
				slog.Warn("fewer comments than requested", "accepted", res.Shortfall.Accepted, "requested", res.Shortfall.Requested)
			}
			if asJSON {
				return writeJSON(stdout, res)
			}
			return report.RenderResult(stdout, res)
		},
	}
	cmd.Flags().StringVar(&postID, "post", "", "Post id to comment on (default: the newest eligible post)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of comments (default: --variations)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of markdown")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
