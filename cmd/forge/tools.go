// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/nativeforge/forge/internal/config"
	"github.com/nativeforge/forge/internal/output"
	"github.com/nativeforge/forge/internal/ui"
	"github.com/nativeforge/forge/pkg/registry"
)

// ToolStatus is one discovered tool's JSON representation.
type ToolStatus struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
}

// ToolsResult is the full 'tools' command JSON payload.
type ToolsResult struct {
	Tools     []ToolStatus `json:"tools"`
	Timestamp time.Time    `json:"timestamp"`
}

// runTools executes the 'tools' CLI command: it discovers every
// compiler, compressor, and protector this binary knows how to drive
// and reports which are actually present on the host.
func runTools(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "Force re-probing, bypassing the registry cache")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge tools [options]

Lists every compiler, compressor, and protector tool this binary knows
how to drive, and whether it was found on this host.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := newLogger(globals.Verbose)
	defaults, err := config.LoadJobDefaults(globals.Config)
	if err != nil {
		ui.Errorf("load config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	var reg *registry.Registry
	if *refresh {
		reg = registry.New(logger)
		reg.Discover(ctx, defaultProbes(defaults.ToolPaths))
	} else {
		reg = buildRegistry(ctx, defaults, logger)
	}

	result := ToolsResult{Timestamp: time.Now()}
	for _, kind := range []registry.Kind{registry.KindCompiler, registry.KindCompressor, registry.KindProtector} {
		for _, d := range reg.ByKind(kind) {
			result.Tools = append(result.Tools, ToolStatus{
				Kind: string(d.Kind), Name: d.Name, Path: d.Path, Version: d.Version, Available: d.Available,
			})
		}
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	printTools(result)
}

func printTools(result ToolsResult) {
	ui.Header("forge tools")
	lastKind := ""
	for _, t := range result.Tools {
		if t.Kind != lastKind {
			fmt.Printf("\n%s\n", t.Kind)
			lastKind = t.Kind
		}
		if t.Available {
			ui.Successf("%-22s %s", t.Name, t.Path)
		} else {
			ui.Warningf("%-22s not found", t.Name)
		}
	}
}
