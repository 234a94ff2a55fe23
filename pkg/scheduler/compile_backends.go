// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"path/filepath"

	"github.com/nativeforge/forge/pkg/job"
)

// PyInstallerBackend favors broad compatibility over compile speed.
type PyInstallerBackend struct{}

func (PyInstallerBackend) Name() string { return "pyinstaller" }

func (PyInstallerBackend) Score(spec job.Spec, _ InputInfo) int {
	score := 70 + 15 /* broad compatibility */ + 10 /* ease of use */
	if spec.Optimize {
		score -= 5
	}
	return clampScore(score)
}

func (PyInstallerBackend) BuildArgs(spec job.Spec, input InputInfo) []string {
	args := []string{"--distpath", spec.OutputDir, "--name", spec.Name()}
	if spec.OneFile {
		args = append(args, "--onefile")
	} else {
		args = append(args, "--onedir")
	}
	if !spec.Console {
		args = append(args, "--windowed")
	}
	if spec.IconPath != "" {
		args = append(args, "--icon", spec.IconPath)
	}
	for _, ex := range spec.Excludes {
		args = append(args, "--exclude-module", ex)
	}
	for _, hi := range spec.HiddenImports {
		args = append(args, "--hidden-import", hi)
	}
	return append(args, input.Path)
}

func (b PyInstallerBackend) Locate(spec job.Spec, input InputInfo) []string {
	name := spec.Name()
	if spec.OneFile {
		return []string{filepath.Join(spec.OutputDir, name)}
	}
	return []string{filepath.Join(spec.OutputDir, name, name)}
}

// NuitkaBackend favors optimized, obfuscation-friendly builds.
type NuitkaBackend struct{}

func (NuitkaBackend) Name() string { return "nuitka" }

func (NuitkaBackend) Score(spec job.Spec, _ InputInfo) int {
	score := 85
	if spec.Optimize {
		score += 10
	}
	if anyObfuscation(spec) {
		score += 5
	}
	score -= 5 // compatibility cost relative to PyInstaller
	return clampScore(score)
}

func (NuitkaBackend) BuildArgs(spec job.Spec, input InputInfo) []string {
	args := []string{"--output-dir", spec.OutputDir}
	if spec.OneFile {
		args = append(args, "--onefile")
	} else {
		args = append(args, "--standalone")
	}
	if !spec.Console {
		args = append(args, "--windows-disable-console")
	}
	if spec.Optimize {
		args = append(args, "--lto=yes")
	}
	if spec.IconPath != "" {
		args = append(args, "--windows-icon-from-ico="+spec.IconPath)
	}
	for _, ex := range spec.Excludes {
		args = append(args, "--nofollow-import-to="+ex)
	}
	return append(args, input.Path)
}

func (b NuitkaBackend) Locate(spec job.Spec, input InputInfo) []string {
	name := spec.Name()
	if spec.OneFile {
		return []string{
			filepath.Join(spec.OutputDir, name+".bin"),
			filepath.Join(spec.OutputDir, name),
		}
	}
	return []string{filepath.Join(spec.OutputDir, name+".dist", name)}
}

// CxFreezeBackend favors simplicity; it cannot apply obfuscation.
type CxFreezeBackend struct{}

func (CxFreezeBackend) Name() string { return "cx-freeze" }

func (CxFreezeBackend) Score(spec job.Spec, _ InputInfo) int {
	score := 60 + 5 // simplicity
	if anyObfuscation(spec) {
		score -= 10
	}
	return clampScore(score)
}

func (CxFreezeBackend) BuildArgs(spec job.Spec, input InputInfo) []string {
	args := []string{"build", input.Path, "--target-dir", filepath.Join(spec.OutputDir, spec.Name())}
	if spec.OneFile {
		args = append(args, "--build-exe", filepath.Join(spec.OutputDir, spec.Name()))
	}
	return args
}

func (b CxFreezeBackend) Locate(spec job.Spec, input InputInfo) []string {
	return []string{filepath.Join(spec.OutputDir, spec.Name(), spec.Name())}
}

// DefaultCompileBackends returns one instance of every compile-stage
// backend this package implements, ready to hand to scheduler.New.
func DefaultCompileBackends() []Backend {
	return []Backend{
		PyInstallerBackend{},
		NuitkaBackend{},
		CxFreezeBackend{},
	}
}

func anyObfuscation(spec job.Spec) bool {
	o := spec.Obfuscation
	return o.Names || o.Strings || o.ControlFlow || o.BytecodeEncr || o.AntiDebug
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
