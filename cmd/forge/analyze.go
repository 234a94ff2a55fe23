// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/nativeforge/forge/internal/output"
	"github.com/nativeforge/forge/internal/ui"
	"github.com/nativeforge/forge/pkg/depgraph"
)

// runAnalyze executes the 'analyze' CLI command: it runs the
// Dependency Analyzer over an entry program and prints the resulting
// graph, any import cycles, and exclusion suggestions.
func runAnalyze(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	skipDynamic := fs.Bool("skip-dynamic", false, "Skip the instrumented dynamic trace pass")
	interpreter := fs.String("interpreter", "python3", "Python interpreter used for resolution and tracing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge analyze <entry.py> [options]

Prints the dependency graph, any import cycles, and exclusion
suggestions for an entry program, without running any stage.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	entry := fs.Arg(0)

	logger := newLogger(globals.Verbose)
	analyzer := depgraph.NewAnalyzer(logger)
	analyzer.Interpreter = *interpreter
	analyzer.Resolver = depgraph.NewHostResolver(*interpreter)
	analyzer.SkipDynamic = *skipDynamic

	ctx, cancel := signalContext(logger)
	defer cancel()
	result, buildErr := analyzer.Analyze(ctx, entry)
	if buildErr != nil {
		if globals.JSON {
			_ = output.JSONError(buildErr)
		} else {
			ui.Errorf("analyze: %v", buildErr)
		}
		os.Exit(1)
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	printAnalysis(result)
}

func printAnalysis(result *depgraph.Result) {
	ui.Header("dependency graph")
	names := make([]string, 0, len(result.Graph.Nodes))
	for name := range result.Graph.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		node := result.Graph.Nodes[name]
		fmt.Printf("  %-30s %-12s %8d bytes\n", name, node.Classification, node.SizeBytes)
	}

	if len(result.Cycles) > 0 {
		fmt.Println()
		ui.Warningf("%d import cycle(s) detected:", len(result.Cycles))
		for _, c := range result.Cycles {
			fmt.Printf("  %v\n", []string(c))
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Println()
		for _, w := range result.Warnings {
			ui.Warningf("%s: %s (%s)", w.Source, w.Message, w.Path)
		}
	}

	fmt.Println()
	ui.SubHeader("optimization suggestions")
	if len(result.Suggestions.ExcludableModules) == 0 {
		fmt.Println("  no excludable modules detected")
	} else {
		fmt.Printf("  excludable: %v (%d bytes total)\n", result.Suggestions.ExcludableModules, result.Suggestions.TotalExcludableBytes)
	}
	for _, n := range result.Suggestions.TopLargest {
		fmt.Printf("  %-30s %8d bytes\n", n.Name, n.SizeBytes)
	}
}
