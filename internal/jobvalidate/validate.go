// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package jobvalidate performs structural validation of a job.Spec before
// it is handed to the Pipeline Driver. It catches mistakes the caller
// made while building the spec, not failures that occur during a build.
package jobvalidate

import (
	"fmt"
	"os"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/pkg/job"
)

// DefaultMaxExcludes bounds the exclusion list to a sane size; a caller
// passing an unbounded list is almost certainly feeding it machine
// generated garbage rather than a hand-curated exclusion set.
const DefaultMaxExcludes = 1024

var validProtectionLevels = map[job.ProtectionLevel]bool{
	job.ProtectionNone:         true,
	job.ProtectionBasic:        true,
	job.ProtectionIntermediate: true,
	job.ProtectionAdvanced:     true,
	job.ProtectionMaximum:      true,
}

var validCompressionMethods = map[job.CompressionMethod]bool{
	job.CompressionNone:     true,
	job.CompressionAuto:     true,
	job.CompressionUPX:      true,
	job.CompressionLZMA:     true,
	job.CompressionBrotli:   true,
	job.CompressionAdaptive: true,
}

// Validate checks a job.Spec for structural errors: missing input file,
// out-of-range compression level, unknown protection level or
// compression method, and an oversized exclusion list. It does not
// check tool availability; that is the Scheduler's job.
func Validate(spec job.Spec) *builderrors.BuildError {
	if spec.InputPath == "" {
		return builderrors.New(builderrors.InputNotFound, "input path is empty", nil)
	}
	if _, err := os.Stat(spec.InputPath); err != nil {
		return builderrors.New(builderrors.InputNotFound, fmt.Sprintf("input file %q", spec.InputPath), err)
	}

	if spec.CompressionLevel != 0 && (spec.CompressionLevel < 1 || spec.CompressionLevel > 9) {
		return builderrors.Newf(builderrors.ParseError, nil, "compression level %d out of range [1,9]", spec.CompressionLevel)
	}

	if spec.CompressionMethod != "" && !validCompressionMethods[spec.CompressionMethod] {
		return builderrors.Newf(builderrors.ParseError, nil, "unknown compression method %q", spec.CompressionMethod)
	}

	if spec.ProtectionLevel != "" && !validProtectionLevels[spec.ProtectionLevel] {
		return builderrors.Newf(builderrors.ParseError, nil, "unknown protection level %q", spec.ProtectionLevel)
	}

	if len(spec.Excludes) > DefaultMaxExcludes {
		return builderrors.Newf(builderrors.ParseError, nil, "exclusion list has %d entries, exceeds limit of %d", len(spec.Excludes), DefaultMaxExcludes)
	}

	return nil
}
