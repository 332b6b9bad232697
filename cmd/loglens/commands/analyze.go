package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/analyzer"
	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/knowledge"
	"github.com/loglens/loglens/internal/sentry"
	"github.com/loglens/loglens/internal/triage"
)

var (
	analyzeDescription string
	analyzeTimestamp   string
	analyzeCustomerID  string
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the result",
	Long: `Run the analysis pipeline once for a single support issue and print
the suggested causes and response. Useful for scripting and for trying
out configuration without starting the server.`,
	Run: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDescription, "description", "", "The customer's description of the problem (required)")
	analyzeCmd.Flags().StringVar(&analyzeTimestamp, "timestamp", "", "When the problem occurred, ISO 8601 (required)")
	analyzeCmd.Flags().StringVar(&analyzeCustomerID, "customer-id", "", "The customer identifier to search error events for (required)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the raw result JSON instead of text")

	_ = analyzeCmd.MarkFlagRequired("description")
	_ = analyzeCmd.MarkFlagRequired("timestamp")
	_ = analyzeCmd.MarkFlagRequired("customer-id")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	HandleError(err, "Configuration error")

	// Keep the result readable: log at warn unless asked otherwise.
	levelFlags := logLevelFlags
	if !cmd.Root().PersistentFlags().Changed("log-level") {
		levelFlags = []string{"warn"}
	}
	HandleError(setupLog(levelFlags), "Failed to setup logging")

	registry := prometheus.NewRegistry()

	store := sentry.NewClient(sentry.ClientConfig{
		BaseURL:   cfg.Sentry.BaseURL,
		Org:       cfg.Sentry.Org,
		Project:   cfg.Sentry.Project,
		AuthToken: cfg.Sentry.AuthToken,
		Timeout:   cfg.Sentry.Timeout(),
		CacheSize: cfg.Sentry.CacheSize,
	}, registry)
	narrator := sentry.NewNarrator(store.BaseURL(), cfg.Sentry.Org, cfg.Sentry.Project)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	caller, err := analyzer.NewGeminiCaller(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	HandleError(err, "Model client initialization error")

	service := triage.NewService(triage.ServiceConfig{
		Store:         store,
		Narrator:      narrator,
		Analyzer:      analyzer.New(caller, registry),
		Docs:          knowledge.NewLoader(cfg.Docs.Dir),
		WindowMinutes: cfg.Sentry.WindowMinutes,
	})

	result, err := service.Analyze(ctx, triage.Request{
		Description: analyzeDescription,
		Timestamp:   analyzeTimestamp,
		CustomerID:  analyzeCustomerID,
	})
	HandleError(err, "Analysis failed")

	if analyzeJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		HandleError(err, "Failed to format result")
		fmt.Println(string(out))
		return
	}

	printResult(result)
}

func printResult(result *triage.Result) {
	fmt.Println("Probable causes:")
	for _, cause := range result.Causes {
		fmt.Printf("  %d. [%s] %s\n", cause.Rank, strings.ToUpper(cause.Confidence), cause.Cause)
		fmt.Printf("     %s\n", cause.Explanation)
	}

	fmt.Println()
	fmt.Println("Suggested response:")
	fmt.Printf("  %s\n", result.SuggestedResponse)

	fmt.Println()
	fmt.Println("Logs summary:")
	fmt.Printf("  %s\n", result.LogsSummary)

	fmt.Println()
	fmt.Printf("Events found: %d\n", result.EventsFound)
	if len(result.SentryLinks) > 0 {
		fmt.Println("Sentry links:")
		for _, link := range result.SentryLinks {
			fmt.Printf("  - %s\n", link)
		}
	}
}
