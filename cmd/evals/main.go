// Command evals loads the MCP tool evaluation suites and runs the argument
// contracts against the real tool registry.
//
// Usage:
//
//	go run ./cmd/evals -dir ./evals -suite all
//
// Tool selection and confusion pair suites need an LLM behind the
// evals.ToolSelector interface; this command reports their coverage.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/olgasafonova/benkyokai-mcp-server/evals"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/github"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/zipcode"
	"github.com/olgasafonova/benkyokai-mcp-server/tools"
)

func main() {
	dir := flag.String("dir", "./evals", "Directory containing eval JSON files")
	suite := flag.String("suite", "all", "Suite to run: tool_selection, confusion_pairs, arguments, or all")
	verbose := flag.Bool("verbose", false, "Show detailed test information")
	flag.Parse()

	fmt.Println("Benkyokai MCP Server - Evaluation Framework")
	fmt.Println("============================================")
	fmt.Println()

	ok := true
	switch *suite {
	case "tool_selection":
		loadToolSelection(*dir, *verbose)
	case "confusion_pairs":
		loadConfusionPairs(*dir, *verbose)
	case "arguments":
		ok = runArguments(*dir, *verbose)
	case "all":
		loadToolSelection(*dir, *verbose)
		loadConfusionPairs(*dir, *verbose)
		ok = runArguments(*dir, *verbose)
	default:
		fmt.Fprintf(os.Stderr, "Unknown suite: %s\n", *suite)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadToolSelection(dir string, verbose bool) {
	suite, err := evals.LoadToolSelectionSuite(filepath.Join(dir, evals.ToolSelectionFile))
	if err != nil {
		fatal("Error loading tool selection suite: %v", err)
	}

	fmt.Printf("Tool Selection Suite: %s (v%s)\n", suite.Name, suite.Version)
	fmt.Printf("Total Tests: %d\n\n", len(suite.Tests))

	tools := make(map[string]int)
	for _, test := range suite.Tests {
		tools[test.ExpectedTool]++
	}
	printCounts("Tests by Tool:", tools)

	if verbose {
		fmt.Println("Test Cases:")
		for _, test := range suite.Tests {
			fmt.Printf("  [%s] %s\n", test.ID, test.Input)
			fmt.Printf("    → %s %v\n", test.ExpectedTool, test.ExpectedArgs)
			if len(test.NotTools) > 0 {
				fmt.Printf("    ✗ %v\n", test.NotTools)
			}
		}
		fmt.Println()
	}
}

func loadConfusionPairs(dir string, verbose bool) {
	suite, err := evals.LoadConfusionPairSuite(filepath.Join(dir, evals.ConfusionPairsFile))
	if err != nil {
		fatal("Error loading confusion pairs suite: %v", err)
	}

	fmt.Printf("Confusion Pairs Suite: %s (v%s)\n", suite.Name, suite.Version)
	for _, pair := range suite.Pairs {
		fmt.Printf("  %s: %v, %d tests\n", pair.ID, pair.Tools, len(pair.Tests))
		fmt.Printf("    Rule: %s\n", pair.Disambiguation)
		if verbose {
			for _, test := range pair.Tests {
				fmt.Printf("      %q → %s (%s)\n", test.Input, test.Expected, test.Reason)
			}
		}
	}
	fmt.Println()
}

// runArguments validates every argument case with the real registry.
func runArguments(dir string, verbose bool) bool {
	suite, err := evals.LoadArgumentSuite(filepath.Join(dir, evals.ArgumentContractsFile))
	if err != nil {
		fatal("Error loading argument suite: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	registry := tools.NewRegistry(tools.WithLogger(logger))
	handlers := tools.NewHandlerRegistry(
		zipcode.NewClient("", zipcode.WithLogger(logger)),
		github.NewClient(github.Config{}, github.WithLogger(logger)),
		logger,
	)
	if err := handlers.RegisterAll(registry); err != nil {
		fatal("Error registering tools: %v", err)
	}

	metrics, results := evals.EvaluateArguments(suite, registry)
	fmt.Print(evals.FormatMetrics(metrics, suite.Name))

	if verbose {
		fmt.Println("\nCases:")
		for _, r := range results {
			mark := "✓"
			if !r.Passed {
				mark = "✗"
			}
			fmt.Printf("  %s [%s] %s\n", mark, r.CaseID, r.Tool)
		}
	}
	fmt.Println()
	return metrics.FailedTests == 0
}

func printCounts(title string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(title)
	for _, name := range names {
		fmt.Printf("  %-40s: %d\n", name, counts[name])
	}
	fmt.Println()
}
