// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the Pipeline Driver: it sequences the
// Compile, Compress, and Protect stages for one job, enforces the
// backup/commit/rollback discipline around the compress stage, and fans
// out batches of jobs with bounded parallelism.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nativeforge/forge/internal/metrics"
	"github.com/nativeforge/forge/pkg/depgraph"
	"github.com/nativeforge/forge/pkg/job"
	"github.com/nativeforge/forge/pkg/scheduler"
)

// CompressTimeout and ProtectTimeout bound their respective stage
// subprocesses; Compile has no default timeout (user-configurable via
// context).
const (
	CompressTimeout = 300 * time.Second
	ProtectTimeout  = 600 * time.Second
)

// Pipeline wires the three per-kind Schedulers and the Dependency
// Analyzer into one end-to-end driver.
type Pipeline struct {
	Compile  *scheduler.Scheduler
	Compress *scheduler.Scheduler
	Protect  *scheduler.Scheduler
	Analyzer *depgraph.Analyzer
	Logger   *slog.Logger
}

// New constructs a Pipeline from its three stage schedulers.
func New(compile, compress, protect *scheduler.Scheduler, analyzer *depgraph.Analyzer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Compile: compile, Compress: compress, Protect: protect, Analyzer: analyzer, Logger: logger}
}

// Run executes one job end-to-end, producing its aggregate report.
func (p *Pipeline) Run(ctx context.Context, spec job.Spec) *job.Report {
	runID := spec.ID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &job.Report{JobID: runID}

	if _, err := os.Stat(spec.InputPath); err != nil {
		p.Logger.Error("pipeline.job.input_not_found", "job", runID, "path", spec.InputPath)
		report.Success = false
		return report
	}

	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		p.Logger.Error("pipeline.job.output_dir_failed", "job", runID, "err", err)
		report.Success = false
		return report
	}

	if p.Analyzer != nil {
		if _, buildErr := p.Analyzer.Analyze(ctx, spec.InputPath); buildErr != nil {
			p.Logger.Warn("pipeline.job.analysis_failed", "job", runID, "err", buildErr)
		}
	}

	spec.Obfuscation = effectiveObfuscation(spec)

	compileResult := p.runCompile(ctx, spec)
	report.Compile = &compileResult
	if !compileResult.Success {
		metrics.JobsTotal.WithLabelValues("failed").Inc()
		report.Success = false
		return report
	}

	if spec.CompressionMethod != "" && spec.CompressionMethod != job.CompressionNone {
		compressResult, cancelled := p.runCompressWithRollback(ctx, spec, compileResult.ArtifactPath)
		report.Compress = &compressResult
		if cancelled {
			report.Cancelled = true
			metrics.JobsTotal.WithLabelValues("cancelled").Inc()
			return report
		}
		if !compressResult.Success {
			if spec.CompressionMethod != job.CompressionAuto {
				metrics.JobsTotal.WithLabelValues("failed").Inc()
				report.Success = false
				return report
			}
			p.Logger.Warn("pipeline.job.compress_skipped", "job", runID, "reason", compressResult.ErrorText)
		}
	}

	if spec.ProtectionLevel != "" && spec.ProtectionLevel != job.ProtectionNone {
		protectResult := p.runProtect(ctx, spec)
		report.Protect = &protectResult
		if !protectResult.Success {
			metrics.JobsTotal.WithLabelValues("failed").Inc()
			report.Success = false
			return report
		}
	}

	report.Success = true
	metrics.JobsTotal.WithLabelValues("success").Inc()
	p.Logger.Info("pipeline.job.done", "job", runID, "success", report.Success)
	return report
}

func (p *Pipeline) runCompile(ctx context.Context, spec job.Spec) job.CompileResult {
	input := computeInputInfo(spec.InputPath)

	backend, desc, buildErr := p.Compile.Select(spec, spec.PreferredCompiler, input)
	if buildErr != nil {
		return job.CompileResult{Success: false, ErrorText: buildErr.Error()}
	}

	outcome, buildErr := p.Compile.Run(ctx, backend, desc, spec, input, scheduler.Invocation{Stage: "compile"})
	if buildErr != nil {
		return job.CompileResult{Success: false, ToolName: desc.Name, ErrorText: buildErr.Error()}
	}

	return job.CompileResult{
		Success:      true,
		ArtifactPath: outcome.ArtifactPath,
		WallTime:     outcome.WallTime,
		ByteSize:     outcome.ByteSize,
		ToolName:     outcome.ToolName,
	}
}

// runCompressWithRollback backs up artifactPath, runs the compress
// stage, and restores the backup on failure or cancellation. It
// deletes the backup on success, leaving no trace behind.
func (p *Pipeline) runCompressWithRollback(ctx context.Context, spec job.Spec, artifactPath string) (job.CompressResult, bool) {
	backupPath := artifactPath + ".backup"
	if err := copyFile(artifactPath, backupPath); err != nil {
		return job.CompressResult{Success: false, ErrorText: "backup failed: " + err.Error()}, false
	}

	originalSize := fileSize(artifactPath)
	input := computeInputInfo(artifactPath)

	preferred := ""
	if spec.CompressionMethod != job.CompressionAuto {
		preferred = string(spec.CompressionMethod)
	}
	backend, desc, buildErr := p.Compress.Select(spec, preferred, input)
	if buildErr != nil {
		os.Remove(backupPath)
		return job.CompressResult{Success: false, ErrorText: buildErr.Error(), OriginalSize: originalSize}, false
	}

	outcome, buildErr := p.Compress.Run(ctx, backend, desc, spec, input, scheduler.Invocation{Stage: "compress", Timeout: CompressTimeout})

	if ctx.Err() == context.Canceled {
		restoreBackup(artifactPath, backupPath)
		return job.CompressResult{Success: false, ErrorText: "cancelled"}, true
	}

	if buildErr != nil {
		p.Logger.Warn("pipeline.job.compress_rollback", "err", buildErr)
		if err := restoreBackup(artifactPath, backupPath); err != nil {
			p.Logger.Error("pipeline.job.rollback_failed", "err", err)
		}
		return job.CompressResult{Success: false, ErrorText: buildErr.Error(), OriginalSize: originalSize, ToolName: desc.Name}, false
	}

	os.Remove(backupPath)
	return job.CompressResult{
		Success:        true,
		OriginalSize:   originalSize,
		CompressedSize: outcome.ByteSize,
		WallTime:       outcome.WallTime,
		ToolName:       outcome.ToolName,
		ArtifactPath:   outcome.ArtifactPath,
	}, false
}

func (p *Pipeline) runProtect(ctx context.Context, spec job.Spec) job.ProtectResult {
	methods := protectionMethods(spec)

	protected := make(map[string]string)
	currentPath := spec.InputPath
	applied := make([]string, 0, len(methods))

	for _, method := range methods {
		input := computeInputInfo(currentPath)

		backend, desc, buildErr := p.Protect.Select(spec, method, input)
		if buildErr != nil {
			return job.ProtectResult{Success: false, ErrorText: buildErr.Error(), Protected: protected, Methods: applied}
		}

		outcome, buildErr := p.Protect.Run(ctx, backend, desc, spec, input, scheduler.Invocation{Stage: "protect", Timeout: ProtectTimeout})
		if buildErr != nil {
			return job.ProtectResult{Success: false, ErrorText: buildErr.Error(), Protected: protected, Methods: applied}
		}

		protected[currentPath] = outcome.ArtifactPath
		currentPath = outcome.ArtifactPath
		applied = append(applied, desc.Name)
	}

	return job.ProtectResult{Success: true, Protected: protected, Methods: applied}
}

// protectionMethods resolves the Job's effective backend list: the
// explicit method list if present, otherwise the level's default list.
func protectionMethods(spec job.Spec) []string {
	if len(spec.ProtectionMethods) > 0 {
		return spec.ProtectionMethods
	}
	switch spec.ProtectionLevel {
	case job.ProtectionBasic:
		return []string{"bytecode-encryptor"}
	case job.ProtectionIntermediate:
		return []string{"self-obfuscator"}
	case job.ProtectionAdvanced:
		return []string{"self-obfuscator"}
	case job.ProtectionMaximum:
		return []string{"external-obfuscator", "self-obfuscator", "bytecode-encryptor"}
	default:
		return nil
	}
}

// effectiveObfuscation turns on the self-obfuscator passes a protection
// level implies, per the same level table protectionMethods resolves
// backend names from. Flags already set on spec.Obfuscation are
// preserved (OR'd in), so an explicit CLI override still takes effect
// at a level that wouldn't otherwise enable it. AntiDebug has no
// level-derived default anywhere in this table; it stays purely
// user-driven.
func effectiveObfuscation(spec job.Spec) job.ObfuscationFlags {
	o := spec.Obfuscation
	switch spec.ProtectionLevel {
	case job.ProtectionBasic:
		o.BytecodeEncr = true
	case job.ProtectionIntermediate:
		o.Names = true
		o.Strings = true
	case job.ProtectionAdvanced:
		o.Names = true
		o.Strings = true
		o.ControlFlow = true
	case job.ProtectionMaximum:
		o.Names = true
		o.Strings = true
		o.ControlFlow = true
		o.BytecodeEncr = true
	}
	return o
}

func computeInputInfo(path string) scheduler.InputInfo {
	info := scheduler.InputInfo{Path: path, Extension: filepath.Ext(path)}
	fi, err := os.Stat(path)
	if err != nil {
		return info
	}
	info.SizeBytes = fi.Size()
	info.IsExecutable = fi.Mode()&0o111 != 0
	info.IsPE = hasPEHeader(path)
	return info
}

func hasPEHeader(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}
	return magic[0] == 'M' && magic[1] == 'Z'
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// restoreBackup moves backupPath back over artifactPath.
func restoreBackup(artifactPath, backupPath string) error {
	return os.Rename(backupPath, artifactPath)
}
