// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads job defaults and tool search paths from a YAML
// file so repeated CLI invocations do not need to repeat every flag.
// The core orchestration packages never read this file themselves;
// the CLI layer loads it and feeds the result into a job.Spec.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nativeforge/forge/pkg/job"
)

// JobDefaults holds the subset of job.Spec fields a config file may
// pre-populate, plus tool search overrides the registry consults before
// falling back to $PATH.
type JobDefaults struct {
	Console           bool              `yaml:"console"`
	OneFile           bool              `yaml:"one_file"`
	Optimize          bool              `yaml:"optimize"`
	CompressionMethod job.CompressionMethod `yaml:"compression_method"`
	CompressionLevel  int               `yaml:"compression_level"`
	ProtectionLevel   job.ProtectionLevel   `yaml:"protection_level"`
	BackupOriginal    bool              `yaml:"backup_original"`

	// ToolPaths overrides the search path for a named tool, e.g.
	// {"pyinstaller": "/opt/pyinstaller/bin/pyinstaller"}.
	ToolPaths map[string]string `yaml:"tool_paths"`
}

// LoadJobDefaults reads and parses a YAML config file at path. A
// missing file is not an error: it returns the zero JobDefaults, which
// applies no overrides.
func LoadJobDefaults(path string) (JobDefaults, error) {
	var defaults JobDefaults

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("parse config %q: %w", path, err)
	}
	return defaults, nil
}

// Apply overlays non-zero JobDefaults fields onto spec, preferring
// fields already set on spec (explicit flags win over config file
// defaults).
func (d JobDefaults) Apply(spec job.Spec) job.Spec {
	if !spec.Console {
		spec.Console = d.Console
	}
	if !spec.OneFile {
		spec.OneFile = d.OneFile
	}
	if !spec.Optimize {
		spec.Optimize = d.Optimize
	}
	if spec.CompressionMethod == "" {
		spec.CompressionMethod = d.CompressionMethod
	}
	if spec.CompressionLevel == 0 {
		spec.CompressionLevel = d.CompressionLevel
	}
	if spec.ProtectionLevel == "" {
		spec.ProtectionLevel = d.ProtectionLevel
	}
	if !spec.BackupOriginal {
		spec.BackupOriginal = d.BackupOriginal
	}
	return spec
}
