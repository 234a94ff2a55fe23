// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nativeforge/forge/internal/config"
	"github.com/nativeforge/forge/internal/output"
	"github.com/nativeforge/forge/internal/ui"
	"github.com/nativeforge/forge/pkg/job"
	"github.com/nativeforge/forge/pkg/pipeline"
)

// manifestJob is one entry in a batch YAML manifest. Field names are
// spelled out rather than reusing job.Spec directly so the manifest
// format stays stable independent of the Spec's internal shape.
type manifestJob struct {
	ID                string   `yaml:"id"`
	Input             string   `yaml:"input"`
	Output            string   `yaml:"output"`
	Name              string   `yaml:"name"`
	Console           bool     `yaml:"console"`
	OneFile           bool     `yaml:"onefile"`
	Optimize          bool     `yaml:"optimize"`
	Icon              string   `yaml:"icon"`
	Excludes          []string `yaml:"exclude"`
	HiddenImports     []string `yaml:"hidden_import"`
	Compiler          string   `yaml:"compiler"`
	CompressionMethod string   `yaml:"compress"`
	CompressionLevel  int      `yaml:"compress_level"`
	ProtectionLevel   string   `yaml:"protect"`
	ProtectionMethods []string `yaml:"protect_with"`
	Backup            bool     `yaml:"backup"`
	StopOnFirstError  bool     `yaml:"stop_on_first_error"`
}

// manifest is the top-level shape of a batch YAML file.
type manifest struct {
	Parallelism int           `yaml:"parallelism"`
	Jobs        []manifestJob `yaml:"jobs"`
}

func loadManifest(path string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read manifest %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %q: %w", path, err)
	}
	return m, nil
}

func (mj manifestJob) toSpec(defaults config.JobDefaults) job.Spec {
	spec := job.Spec{
		ID:                mj.ID,
		InputPath:         mj.Input,
		OutputDir:         mj.Output,
		ArtifactName:      mj.Name,
		Console:           mj.Console,
		OneFile:           mj.OneFile,
		Optimize:          mj.Optimize,
		IconPath:          mj.Icon,
		Excludes:          mj.Excludes,
		HiddenImports:     mj.HiddenImports,
		PreferredCompiler: mj.Compiler,
		CompressionMethod: job.CompressionMethod(mj.CompressionMethod),
		CompressionLevel:  mj.CompressionLevel,
		ProtectionLevel:   job.ProtectionLevel(mj.ProtectionLevel),
		ProtectionMethods: mj.ProtectionMethods,
		BackupOriginal:    mj.Backup,
		StopOnFirstError:  mj.StopOnFirstError,
	}
	if spec.OutputDir == "" {
		spec.OutputDir = "dist"
	}
	return defaults.Apply(spec)
}

// runBatch executes the 'batch' CLI command: it loads a YAML manifest
// of jobs and runs them through the Pipeline with bounded parallelism.
func runBatch(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	parallelism := fs.IntP("parallelism", "p", 0, "Max concurrent jobs (default: manifest value, or 4)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge batch <jobs.yaml> [options]

Runs every job in a YAML manifest through compile, compress, and
protect, bounded to a fixed number of jobs running concurrently.

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

	m, err := loadManifest(fs.Arg(0))
	if err != nil {
		ui.Errorf("batch: %v", err)
		os.Exit(1)
	}
	if len(m.Jobs) == 0 {
		ui.Error("batch: manifest contains no jobs")
		os.Exit(1)
	}

	limit := m.Parallelism
	if *parallelism > 0 {
		limit = *parallelism
	}

	logger := newLogger(globals.Verbose)
	defaults, err := config.LoadJobDefaults(globals.Config)
	if err != nil {
		ui.Errorf("load config: %v", err)
		os.Exit(1)
	}

	specs := make([]job.Spec, len(m.Jobs))
	for i, mj := range m.Jobs {
		specs[i] = mj.toSpec(defaults)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()
	reg := buildRegistry(ctx, defaults, logger)
	p := buildPipeline(reg, logger)

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, fmt.Sprintf("running %d jobs", len(specs)))

	reports, err := pipeline.RunBatch(ctx, p, specs, limit)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		if globals.JSON {
			_ = output.JSONError(err)
		} else {
			ui.Errorf("batch: %v", err)
		}
		os.Exit(1)
	}

	if globals.JSON {
		_ = output.JSON(reports)
	} else {
		printBatchSummary(reports)
	}

	for _, r := range reports {
		if r != nil && !r.Success {
			os.Exit(1)
		}
	}
}

func printBatchSummary(reports []*job.Report) {
	ui.Header("forge batch")
	succeeded, failed, cancelled := 0, 0, 0
	for _, r := range reports {
		if r == nil {
			failed++
			continue
		}
		switch {
		case r.Success:
			succeeded++
			ui.Successf("%s", r.JobID)
		case r.Cancelled:
			cancelled++
			ui.Warningf("%s cancelled", r.JobID)
		default:
			failed++
			ui.Errorf("%s failed", r.JobID)
		}
	}
	fmt.Printf("\n%d succeeded, %d failed, %d cancelled (of %d)\n", succeeded, failed, cancelled, len(reports))
}
