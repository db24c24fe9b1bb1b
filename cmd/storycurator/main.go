package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"storycurator/internal/catalog"
	"storycurator/internal/config"
	"storycurator/internal/flagging"
	"storycurator/internal/llm"
	"storycurator/internal/report"
	"storycurator/internal/storage"
	"storycurator/internal/tagging"
	"storycurator/internal/textproc"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "storycurator",
		Short: "AI-assisted safety review and skill tagging for children's stories",
	}
	configPath string
	dataDir    string
	outDir     string
	dbPath     string
	storyID    string
	gradeLevel int
	runLimit   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Override the story corpus directory")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "Override the output directory")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Override the review run database path (SQLite)")

	flagCmd.Flags().StringVarP(&storyID, "story", "s", "", "Review a single story by id")
	flagCmd.Flags().IntVarP(&gradeLevel, "grade", "g", -1, "Review only stories at this grade level")
	tagCmd.Flags().StringVarP(&storyID, "story", "s", "", "Tag a single story by id")
	tagCmd.Flags().IntVarP(&gradeLevel, "grade", "g", -1, "Tag only stories at this grade level")
	runsCmd.Flags().IntVar(&runLimit, "limit", 10, "Maximum number of runs to list")

	rootCmd.AddCommand(flagCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if dbPath != "" {
		cfg.DB.Path = dbPath
	}
	return cfg, nil
}

// initPipeline builds the pieces shared by the review commands: the
// story catalog, the sentence indexer and the model client.
func initPipeline(ctx context.Context, cfg *config.Config) (*catalog.Catalog, *textproc.Indexer, llm.Client, error) {
	cat, err := catalog.Load(cfg.Data.Dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	fmt.Printf("📂 Loaded %d stories and %d skills from %s\n", len(cat.Stories()), len(cat.Skills()), cfg.Data.Dir)

	ix, err := textproc.NewIndexer()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build sentence indexer: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.Options{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cat, ix, client, nil
}

// selectStories resolves the --story and --grade filters against the
// catalog.
func selectStories(cat *catalog.Catalog) ([]catalog.Story, error) {
	if storyID != "" {
		story, err := cat.Story(storyID)
		if err != nil {
			return nil, err
		}
		return []catalog.Story{story}, nil
	}
	if gradeLevel >= 0 {
		stories := cat.StoriesByGrade(gradeLevel)
		if len(stories) == 0 {
			return nil, fmt.Errorf("no stories for grade level %d", gradeLevel)
		}
		return stories, nil
	}
	return cat.Stories(), nil
}

// writeJSON writes results under the machine-readable output directory
// and returns the file path.
func writeJSON(outputDir, name string, v any) (string, error) {
	dir := filepath.Join(outputDir, report.MachineDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// closeClient closes provider clients that hold connections.
func closeClient(client llm.Client) {
	if closer, ok := client.(io.Closer); ok {
		closer.Close()
	}
}

// modelLabel resolves the model name recorded for a run.
func modelLabel(cfg *config.Config) string {
	if cfg.AI.Model != "" {
		return cfg.AI.Model
	}
	return llm.DefaultModel(cfg.AI.Provider)
}

var flagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Review stories against the safety rubrics",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("%v", err)
		}

		cat, ix, client, err := initPipeline(ctx, cfg)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer closeClient(client)

		stories, err := selectStories(cat)
		if err != nil {
			log.Fatalf("%v", err)
		}

		flagger := flagging.New(cat, ix, client, flagging.Options{
			MaxTokens:       cfg.AI.MaxTokens,
			CategoryWorkers: cfg.Review.CategoryWorkers,
			StoryWorkers:    cfg.Review.StoryWorkers,
		})

		fmt.Printf("🚀 Reviewing %d stories for content issues...\n", len(stories))
		reviews := flagger.ReviewBatch(ctx, stories)

		path, err := writeJSON(cfg.Output.Dir, report.FlaggingFile, reviews)
		if err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}

		printReviewSummary(reviews)
		fmt.Printf("💾 Results saved to %s\n", path)
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Tag stories with the reading skills they exercise",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("%v", err)
		}

		cat, ix, client, err := initPipeline(ctx, cfg)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer closeClient(client)

		stories, err := selectStories(cat)
		if err != nil {
			log.Fatalf("%v", err)
		}

		tagger := tagging.New(cat, ix, client, tagging.Options{
			MaxTokens:    cfg.AI.MaxTokens,
			StoryWorkers: cfg.Review.StoryWorkers,
		})

		fmt.Printf("🚀 Tagging %d stories with reading skills...\n", len(stories))
		tags := tagger.TagBatch(ctx, stories)

		path, err := writeJSON(cfg.Output.Dir, report.TaggingFile, tags)
		if err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}

		printTagSummary(tags)
		fmt.Printf("💾 Results saved to %s\n", path)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the HTML review report from saved results",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("%v", err)
		}

		machineDir := filepath.Join(cfg.Output.Dir, report.MachineDir)
		page := report.Build(
			report.LoadReviews(filepath.Join(machineDir, report.FlaggingFile)),
			report.LoadTags(filepath.Join(machineDir, report.TaggingFile)),
		)
		if page.TotalStories == 0 {
			log.Fatalf("No review results found in %s. Run 'storycurator run' first.", machineDir)
		}

		path := filepath.Join(cfg.Output.Dir, report.HumanDir, report.ReportFile)
		if err := report.WriteFile(path, page); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}

		fmt.Printf("✅ Report for %d stories written to %s\n", page.TotalStories, path)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: flag, tag, persist and report",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("%v", err)
		}

		cat, ix, client, err := initPipeline(ctx, cfg)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer closeClient(client)

		stories := cat.Stories()

		// 1. Safety review
		flagger := flagging.New(cat, ix, client, flagging.Options{
			MaxTokens:       cfg.AI.MaxTokens,
			CategoryWorkers: cfg.Review.CategoryWorkers,
			StoryWorkers:    cfg.Review.StoryWorkers,
		})
		fmt.Printf("🚀 Reviewing %d stories for content issues...\n", len(stories))
		reviews := flagger.ReviewBatch(ctx, stories)
		printReviewSummary(reviews)

		// 2. Skill tagging
		tagger := tagging.New(cat, ix, client, tagging.Options{
			MaxTokens:    cfg.AI.MaxTokens,
			StoryWorkers: cfg.Review.StoryWorkers,
		})
		fmt.Printf("🚀 Tagging %d stories with reading skills...\n", len(stories))
		tags := tagger.TagBatch(ctx, stories)
		printTagSummary(tags)

		// 3. Machine-readable outputs
		flagPath, err := writeJSON(cfg.Output.Dir, report.FlaggingFile, reviews)
		if err != nil {
			log.Fatalf("Failed to write flagging results: %v", err)
		}
		tagPath, err := writeJSON(cfg.Output.Dir, report.TaggingFile, tags)
		if err != nil {
			log.Fatalf("Failed to write tagging results: %v", err)
		}
		fmt.Printf("💾 Results saved to %s and %s\n", flagPath, tagPath)

		// 4. Persist the run
		store, err := storage.NewSQLiteStore(cfg.DB.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		run := storage.NewRun(cfg.AI.Provider, modelLabel(cfg))
		if err := store.SaveRun(ctx, &run, reviews, tags); err != nil {
			log.Fatalf("Failed to persist run: %v", err)
		}

		// 5. Human review report
		page := report.Build(reviews, tags)
		reportPath := filepath.Join(cfg.Output.Dir, report.HumanDir, report.ReportFile)
		if err := report.WriteFile(reportPath, page); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}

		fmt.Printf("🎉 Run %s complete! Report: %s\n", run.ID, reportPath)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted review runs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("%v", err)
		}

		store, err := storage.NewSQLiteStore(cfg.DB.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), runLimit)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No review runs recorded yet.")
			return
		}
		for _, run := range runs {
			fmt.Printf("%s  %s  %s/%s  stories=%d flags=%d skills=%d critical=%d\n",
				run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Provider, run.Model,
				run.StoryCount, run.FlagCount, run.SkillCount, run.CriticalCount)
		}
	},
}

func printReviewSummary(reviews []flagging.StoryReview) {
	totalFlags := 0
	critical := 0
	degraded := 0
	for _, review := range reviews {
		totalFlags += review.FlagCount
		if review.HasCritical {
			critical++
		}
		if review.Error != "" {
			degraded++
		}
	}
	fmt.Printf("✅ Review complete: %d flags, %d stories with critical issues\n", totalFlags, critical)
	if degraded > 0 {
		fmt.Printf("⚠️  %d stories failed and were recorded as errors\n", degraded)
	}
}

func printTagSummary(tags []tagging.StoryTags) {
	totalTags := 0
	degraded := 0
	for _, story := range tags {
		totalTags += len(story.Tags)
		if story.Error != "" {
			degraded++
		}
	}
	fmt.Printf("✅ Tagging complete: %d skill tags\n", totalTags)
	if degraded > 0 {
		fmt.Printf("⚠️  %d stories failed and were recorded as errors\n", degraded)
	}
}
