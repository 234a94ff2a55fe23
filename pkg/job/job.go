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

// Package job defines the data model shared by every subsystem of the
// build orchestration engine: the job specification a caller submits,
// and the stage results and aggregate report the scheduler and
// pipeline emit. The dependency graph lives in pkg/depgraph and tool
// descriptors in pkg/registry.
package job

import "time"

// ProtectionLevel selects the default set of protect-stage backends.
type ProtectionLevel string

const (
	ProtectionNone         ProtectionLevel = "none"
	ProtectionBasic        ProtectionLevel = "basic"
	ProtectionIntermediate ProtectionLevel = "intermediate"
	ProtectionAdvanced     ProtectionLevel = "advanced"
	ProtectionMaximum      ProtectionLevel = "maximum"
)

// CompressionMethod selects a compress-stage backend, or "none"/"auto".
type CompressionMethod string

const (
	CompressionNone     CompressionMethod = "none"
	CompressionAuto     CompressionMethod = "auto"
	CompressionUPX      CompressionMethod = "upx"
	CompressionLZMA     CompressionMethod = "lzma"
	CompressionBrotli   CompressionMethod = "brotli"
	CompressionAdaptive CompressionMethod = "adaptive"
)

// ObfuscationFlags selects which self-obfuscator passes run.
type ObfuscationFlags struct {
	Names        bool
	Strings      bool
	ControlFlow  bool
	BytecodeEncr bool
	AntiDebug    bool
}

// Spec is the immutable per-run job record. Every field is set by the
// caller at construction time; nothing in the pipeline mutates a Spec.
type Spec struct {
	// ID is an opaque external-facing identifier. The Pipeline copies it
	// into Report.JobID and generates a UUID there when it is empty.
	ID string

	InputPath    string
	OutputDir    string
	ArtifactName string // defaults to the input file's stem when empty

	Console    bool
	OneFile    bool
	Optimize   bool
	IconPath   string
	Excludes   []string
	HiddenImports []string

	PreferredCompiler string // optional tool name hint

	CompressionMethod CompressionMethod
	CompressionLevel  int // 1-9

	ProtectionLevel   ProtectionLevel
	ProtectionMethods []string // overrides the level's default list when non-empty
	Obfuscation       ObfuscationFlags

	BackupOriginal bool

	// StopOnFirstError, when set on a job submitted as part of a batch,
	// transitions the batch pool into a draining state on this job's
	// failure.
	StopOnFirstError bool
}

// Name returns the artifact name, defaulting to the input file's stem.
func (s Spec) Name() string {
	if s.ArtifactName != "" {
		return s.ArtifactName
	}
	return stem(s.InputPath)
}

func stem(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '/', '\\':
			base = path[i+1:]
			i = -1
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// CompileResult is the Compile stage's result variant.
type CompileResult struct {
	Success      bool
	ArtifactPath string
	WallTime     time.Duration
	ByteSize     int64
	ToolName     string
	ErrorText    string
	Warnings     []string
}

// CompressResult is the Compress stage's result variant.
type CompressResult struct {
	Success         bool
	OriginalSize    int64
	CompressedSize  int64
	WallTime        time.Duration
	ToolName        string
	ArtifactPath string // same path as input on in-place compression
	ErrorText       string
}

// Ratio computes (orig - new) / orig, or 0 when OriginalSize is 0.
func (r CompressResult) Ratio() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.OriginalSize-r.CompressedSize) / float64(r.OriginalSize)
}

// ProtectResult is the Protect stage's result variant.
type ProtectResult struct {
	Success   bool
	Protected map[string]string // original source path -> protected path
	Methods   []string
	WallTime  time.Duration
	ErrorText string
}

// Report is the Pipeline Driver's aggregate output for one Job. Stage
// sections are pointers so a missing stage (nil) is distinguishable
// from a stage that ran and produced a result.
type Report struct {
	JobID     string
	Success   bool
	Cancelled bool

	Compile  *CompileResult
	Compress *CompressResult
	Protect  *ProtectResult
}
