// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/nativeforge/forge/internal/config"
	"github.com/nativeforge/forge/internal/jobvalidate"
	"github.com/nativeforge/forge/internal/output"
	"github.com/nativeforge/forge/internal/ui"
	"github.com/nativeforge/forge/pkg/job"
)

// runCompile executes the 'compile' CLI command: it builds a job.Spec
// from flags and config defaults, validates it, and runs it through the
// full Pipeline.
func runCompile(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	var (
		outputDir    = fs.StringP("output", "o", "dist", "Output directory for the compiled artifact")
		name         = fs.String("name", "", "Artifact name (default: input file stem)")
		console      = fs.Bool("console", true, "Keep a console window")
		oneFile      = fs.Bool("onefile", false, "Bundle into a single executable")
		optimize     = fs.Bool("optimize", false, "Enable compiler optimizations")
		iconPath     = fs.String("icon", "", "Path to an icon file")
		excludes     = fs.StringSlice("exclude", nil, "Module to exclude (repeatable)")
		hiddenImport = fs.StringSlice("hidden-import", nil, "Module to force-include (repeatable)")
		compiler     = fs.String("compiler", "", "Preferred compiler tool name (e.g. pyinstaller)")
		compress     = fs.String("compress", "", "Compression method: none, auto, upx, lzma, brotli, adaptive")
		compressLvl  = fs.Int("compress-level", 0, "Compression level, 1-9")
		protect      = fs.String("protect", "", "Protection level: none, basic, intermediate, advanced, maximum")
		protectWith  = fs.StringSlice("protect-with", nil, "Explicit protect backend list, overrides --protect's defaults")
		obfNames     = fs.Bool("obfuscate-names", false, "Rewrite identifiers (self-obfuscator)")
		obfStrings   = fs.Bool("obfuscate-strings", false, "Encode string literals (self-obfuscator)")
		obfFlow      = fs.Bool("obfuscate-control-flow", false, "Inject control-flow noise (self-obfuscator)")
		obfAntiDebug = fs.Bool("anti-debug", false, "Prepend an anti-debug shim (self-obfuscator)")
		backup       = fs.Bool("backup", true, "Back up the artifact before compressing")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge compile <entry.py> [options]

Runs one job through the compile, compress, and protect stages.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  forge compile app.py --onefile --console=false
  forge compile app.py --compress upx --protect advanced
  forge compile app.py --protect maximum --protect-with self-obfuscator
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	entry := fs.Arg(0)

	defaults, err := config.LoadJobDefaults(globals.Config)
	if err != nil {
		ui.Errorf("load config: %v", err)
		os.Exit(1)
	}

	spec := job.Spec{
		InputPath:         entry,
		OutputDir:         *outputDir,
		ArtifactName:      *name,
		Console:           *console,
		OneFile:           *oneFile,
		Optimize:          *optimize,
		IconPath:          *iconPath,
		Excludes:          *excludes,
		HiddenImports:     *hiddenImport,
		PreferredCompiler: *compiler,
		CompressionMethod: job.CompressionMethod(*compress),
		CompressionLevel:  *compressLvl,
		ProtectionLevel:   job.ProtectionLevel(*protect),
		ProtectionMethods: *protectWith,
		Obfuscation: job.ObfuscationFlags{
			Names:       *obfNames,
			Strings:     *obfStrings,
			ControlFlow: *obfFlow,
			AntiDebug:   *obfAntiDebug,
		},
		BackupOriginal: *backup,
	}
	spec = defaults.Apply(spec)

	if buildErr := jobvalidate.Validate(spec); buildErr != nil {
		reportValidationFailure(buildErr.Error(), globals)
		os.Exit(1)
	}

	logger := newLogger(globals.Verbose)
	ctx, cancel := signalContext(logger)
	defer cancel()
	reg := buildRegistry(ctx, defaults, logger)
	p := buildPipeline(reg, logger)

	if !globals.Quiet && !globals.JSON {
		ui.Header("forge compile")
		fmt.Printf("input:  %s\n", entry)
		fmt.Printf("output: %s\n\n", filepath.Join(spec.OutputDir, spec.Name()))
	}

	report := p.Run(ctx, spec)

	if globals.JSON {
		_ = output.JSON(report)
	} else {
		printCompileReport(report)
	}

	if !report.Success {
		os.Exit(1)
	}
}

func reportValidationFailure(msg string, globals GlobalFlags) {
	if globals.JSON {
		_ = output.JSONError(fmt.Errorf("%s", msg))
		return
	}
	ui.Error(msg)
}

func printCompileReport(report *job.Report) {
	if report.Compile != nil {
		if report.Compile.Success {
			ui.Successf("compile: %s produced %s (%s)", ui.ToolText(report.Compile.ToolName), report.Compile.ArtifactPath, report.Compile.WallTime)
		} else {
			ui.Errorf("compile: %s", report.Compile.ErrorText)
		}
	}
	if report.Compress != nil {
		if report.Compress.Success {
			ui.Successf("compress: %s reduced size by %.0f%% (%s)", ui.ToolText(report.Compress.ToolName), report.Compress.Ratio()*100, report.Compress.WallTime)
		} else {
			ui.Warningf("compress: %s", report.Compress.ErrorText)
		}
	}
	if report.Protect != nil {
		if report.Protect.Success {
			ui.Successf("protect: applied %s", strings.Join(report.Protect.Methods, ", "))
		} else {
			ui.Errorf("protect: %s", report.Protect.ErrorText)
		}
	}
	if report.Success {
		ui.Success("job complete")
	} else if report.Cancelled {
		ui.Warning("job cancelled")
	} else {
		ui.Error("job failed")
	}
}
