package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/merchantlab/curator/internal/config"
	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/pipeline"
	"github.com/merchantlab/curator/internal/server"
	"github.com/merchantlab/curator/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "curator",
	Short:   "Best-practice knowledge ingestion for merchants",
	Long:    "Curator extracts, analyzes, and quality-gates best-practice content into a curated knowledge store.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			// A missing config is fine; defaults cover local use.
			cfg = config.Default()
			return nil
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("curator", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/curator/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the LLM provider and quality thresholds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := db.CountEntries()
		if err != nil {
			return fmt.Errorf("counting entries: %w", err)
		}
		ingestions, err := db.CountIngestions()
		if err != nil {
			return fmt.Errorf("counting ingestions: %w", err)
		}

		fmt.Printf("Database: %s\n", db.Path())
		fmt.Printf("Approved entries: %d\n", count)
		fmt.Printf("Ingestion attempts: %d\n", ingestions)
		return nil
	},
}

// --- ingest command ---

var (
	ingestFile         string
	ingestURL          string
	ingestText         string
	ingestTitle        string
	ingestDescription  string
	skipQualityCheck   bool
	skipDuplicateCheck bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one item (file, URL, or text) into the knowledge store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ac, err := buildAgentContext()
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		outcome, err := pipe.Ingest(context.Background(), *ac)
		if err != nil {
			return err
		}

		printOutcome(outcome)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Path to a file to ingest")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "URL to ingest")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "Raw text to ingest")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "Title for raw text input")
	ingestCmd.Flags().StringVar(&ingestDescription, "description", "", "Description for raw text input")
	ingestCmd.Flags().BoolVar(&skipQualityCheck, "skip-quality-check", false, "Bypass quality scoring")
	ingestCmd.Flags().BoolVar(&skipDuplicateCheck, "skip-duplicate-check", false, "Bypass duplicate detection")
}

func buildAgentContext() (*pipeline.AgentContext, error) {
	ac := &pipeline.AgentContext{
		SkipQualityCheck:   skipQualityCheck,
		SkipDuplicateCheck: skipDuplicateCheck,
	}

	set := 0
	if ingestFile != "" {
		set++
	}
	if ingestURL != "" {
		set++
	}
	if ingestText != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of --file, --url, or --text is required")
	}

	switch {
	case ingestFile != "":
		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		ac.Source = extract.SourceFile
		ac.File = &extract.FileInput{Name: filepath.Base(ingestFile), Data: data}
	case ingestURL != "":
		ac.Source = extract.SourceURL
		ac.URL = ingestURL
	default:
		ac.Source = extract.SourceText
		ac.Text = &extract.TextInput{
			Text:        ingestText,
			Title:       ingestTitle,
			Description: ingestDescription,
		}
	}
	return ac, nil
}

func printOutcome(outcome *pipeline.Outcome) {
	a := outcome.Assessment
	fmt.Printf("\nTitle:    %s\n", outcome.Analysis.Title)
	fmt.Printf("Platform: %s  Category: %s  Goal: %s\n",
		outcome.Analysis.Platform, outcome.Analysis.Category, outcome.Analysis.Goal)
	fmt.Printf("Score:    %.1f/10 (relevance %.0f, actionability %.0f, accuracy %.0f, completeness %.0f, uniqueness %.0f)\n",
		a.OverallScore, a.Scores.Relevance, a.Scores.Actionability,
		a.Scores.Accuracy, a.Scores.Completeness, a.Scores.Uniqueness)

	if a.IsDuplicate {
		fmt.Printf("Duplicate of %s (similarity %.2f)\n", a.DuplicateOf, a.DuplicateSimilarity)
	}

	if len(a.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, issue := range a.Issues {
			fmt.Printf("  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Message)
		}
	}

	if len(a.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range a.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}

	if a.IsApproved {
		fmt.Printf("\nApproved. Stored as entry %s\n", outcome.EntryID)
	} else {
		fmt.Println("\nRejected; entry was not stored.")
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		pipe := pipeline.New(cfg, db)
		return server.Serve(db, pipe, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	dbPath := filepath.Join(dataDir, "curator.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
