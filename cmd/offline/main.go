package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	offline "github.com/nairobell/offline"
	"github.com/nairobell/offline/internal/output"
	"github.com/nairobell/offline/internal/source"
	"github.com/nairobell/offline/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath   string
	cfg          *storage.Config
	outputFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "offline",
		Short: "Offline news cache - prioritized article caching for disconnected reading",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "output format: json, text, human (default: json)")

	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(initConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg = storage.DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	return cfg.ApplyEnv()
}

func openEngine() (*offline.Engine, error) {
	engine, err := offline.NewEngine(offline.EngineConfig{
		DBPath:                  cfg.Database.Path,
		MaxArticlesStored:       cfg.Cache.MaxArticlesStored,
		CacheDurationHours:      cfg.Cache.CacheDurationHours,
		PriorityCategories:      cfg.Cache.PriorityCategories,
		ImagesCacheSizeMB:       cfg.Cache.ImagesCacheSizeMB,
		AudioCacheSizeMB:        cfg.Cache.AudioCacheSizeMB,
		TranslationsCacheSizeMB: cfg.Cache.TranslationsCacheSizeMB,
		DataSaverImageQuality:   cfg.Cache.DataSaverImageQuality,
		DataSaverThumbnailSize:  cfg.Cache.DataSaverThumbnailSize,
		ActivityLogPath:         cfg.Sync.ActivityLogPath,
		HistoryURL:              cfg.Sync.HistoryURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open offline cache: %w", err)
	}
	return engine, nil
}

func cacheCmd() *cobra.Command {
	var (
		limit     int
		category  string
		country   string
		preferred []string
		dataSaver bool
		file      string
	)
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Fetch articles and cache them for offline reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			var articles []offline.Article
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read article file: %w", err)
				}
				if err := json.Unmarshal(data, &articles); err != nil {
					return fmt.Errorf("failed to parse article file: %w", err)
				}
			} else {
				if cfg.Source.BaseURL == "" {
					return fmt.Errorf("no article source configured: set source.base_url or pass --file")
				}
				client := source.NewClient(cfg.Source.BaseURL)
				fetchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
				defer cancel()
				result, err := client.FetchArticles(fetchCtx, source.Filters{
					Category: category,
					PageSize: limit,
				})
				if err != nil {
					return fmt.Errorf("failed to fetch articles: %w", err)
				}
				for _, a := range result.Articles {
					articles = append(articles, offline.FromSource(a))
				}
			}

			if limit > 0 && len(articles) > limit {
				articles = articles[:limit]
			}
			if len(articles) == 0 {
				formatter.Warning("no articles to cache")
				return formatter.OutputCacheResult(&offline.CacheResult{})
			}

			// Persisted data-saver preference applies unless overridden
			// on the command line.
			if !cmd.Flags().Changed("data-saver") {
				if saved, err := engine.DataSaver(); err == nil {
					dataSaver = saved
				}
			}

			result, err := engine.CacheForOffline(ctx, articles, offline.UserProfile{
				Country:             country,
				PreferredCategories: preferred,
				DataSaver:           dataSaver,
			})
			if err != nil {
				return err
			}
			return formatter.OutputCacheResult(result)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of articles to cache")
	cmd.Flags().StringVar(&category, "category", "", "fetch only this category")
	cmd.Flags().StringVar(&country, "country", "", "user country for local-relevance priority")
	cmd.Flags().StringSliceVar(&preferred, "preferred", nil, "preferred categories for priority boost")
	cmd.Flags().BoolVar(&dataSaver, "data-saver", false, "cache summaries only, skip images")
	cmd.Flags().StringVar(&file, "file", "", "cache articles from a JSON file instead of the source")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		limit    int
		category string
		region   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached articles by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			articles, err := engine.CachedArticles(offline.CachedFilter{
				Category: category,
				Region:   region,
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list cached articles: %w", err)
			}
			return formatter.OutputArticleList(articles)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of articles to show")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&region, "region", "", "filter by region tag")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <article-id>",
		Short: "Show a cached article's offline content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			article, err := engine.CachedArticle(args[0])
			if err != nil {
				return fmt.Errorf("failed to load article: %w", err)
			}
			if article == nil {
				return fmt.Errorf("article %s is not cached", args[0])
			}
			return formatter.OutputArticle(article)
		},
	}
}

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the offline reading queue",
	}
	cmd.AddCommand(queueAddCmd())
	cmd.AddCommand(queueListCmd())
	cmd.AddCommand(queueDoneCmd())
	return cmd
}

func queueAddCmd() *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "add <article-id>",
		Short: "Add a cached article to the reading queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			item, err := engine.AddToQueue(args[0], tier)
			if err != nil {
				return fmt.Errorf("failed to queue article: %w", err)
			}
			formatter.Success("Queued article %s at tier %s (queue id %s)",
				item.ArticleID, item.Tier, item.ID)
			if outputFormat != string(output.FormatHuman) {
				return json.NewEncoder(os.Stdout).Encode(item)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tier, "tier", "t", offline.TierMedium, "queue tier: high, medium, low")
	return cmd
}

func queueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending reading-queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			items, err := engine.ReadingQueue()
			if err != nil {
				return fmt.Errorf("failed to load reading queue: %w", err)
			}
			return formatter.OutputQueue(items)
		},
	}
}

func queueDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <queue-id>",
		Short: "Mark a reading-queue entry as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.MarkQueueItemRead(args[0]); err != nil {
				return fmt.Errorf("failed to mark queue entry read: %w", err)
			}
			fmt.Printf("Marked queue entry %s as read\n", args[0])
			return nil
		},
	}
}

func recordCmd() *cobra.Command {
	var (
		interaction string
		duration    int
		percentage  float64
	)
	cmd := &cobra.Command{
		Use:   "record <article-id>",
		Short: "Record offline reading activity for later sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			activity, err := engine.RecordActivity(args[0], interaction, duration, percentage)
			if err != nil {
				return fmt.Errorf("failed to record activity: %w", err)
			}
			formatter.Success("Recorded %s activity for article %s", activity.Type, activity.ArticleID)
			if outputFormat != string(output.FormatHuman) {
				return json.NewEncoder(os.Stdout).Encode(activity)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&interaction, "type", "t", "read", "interaction type")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "reading duration in seconds")
	cmd.Flags().Float64VarP(&percentage, "percentage", "p", 0, "percentage of the article read")
	return cmd
}

func syncCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync offline reading activity to the history backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			if cfg.Sync.HistoryURL == "" {
				return fmt.Errorf("no history backend configured: set sync.history_url")
			}

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			result, err := engine.SyncActivity(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to sync activity: %w", err)
			}
			return formatter.OutputFlushResult(result)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID to attribute the activity to")
	cmd.MarkFlagRequired("user")
	return cmd
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Expire stale cache entries and enforce the article limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Cleanup()
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			return formatter.OutputCleanupResult(result)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage per collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			info, err := engine.CacheInfo()
			if err != nil {
				return fmt.Errorf("failed to inspect cache: %w", err)
			}
			return formatter.OutputCacheInfo(info)
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached content and the reading queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the cache without --yes")
			}

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.ClearCache(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Println("Offline cache cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the cache")
	return cmd
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = "./config/config.yaml"
			}

			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config file already exists: %s", configPath)
			}

			data, err := yaml.Marshal(storage.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}

			if err := os.WriteFile(configPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}
