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

// Package registry implements capability discovery for the external
// tools the build orchestration engine drives: compilers, compressors,
// and protectors. It probes each known tool once at init and caches the
// result for the process lifetime; schedulers consult it to restrict
// their candidate sets to what the host actually has installed.
package registry

import (
	"context"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/nativeforge/forge/internal/metrics"
)

// Kind identifies which stage a tool serves.
type Kind string

const (
	KindCompiler   Kind = "compiler"
	KindCompressor Kind = "compressor"
	KindProtector  Kind = "protector"
)

// ProbeTimeout bounds how long discover() waits for a single tool's
// `--version` invocation before marking it unavailable.
const ProbeTimeout = 10 * time.Second

// Descriptor describes one external tool. Built once at registry init
// and treated as effectively immutable for the process lifetime.
type Descriptor struct {
	Kind      Kind
	Name      string
	Path      string // resolved executable path, or "builtin"
	Version   string
	Available bool
}

// Probe describes how to check whether a tool is present: the
// executable name to resolve on $PATH (or an absolute override path)
// and the arguments that make it print a version string and exit zero.
type Probe struct {
	Kind        Kind
	Name        string
	PathOverride string // from config.JobDefaults.ToolPaths, optional
	VersionArgs []string
	// Builtin marks a tool that needs no external executable (e.g. the
	// self-obfuscator and the adaptive compressor); it is always
	// available and reports Path "builtin".
	Builtin bool
}

// Registry is the shared, read-mostly map of probed tool descriptors.
// It is initialised once under a write lock; thereafter Lookup reads
// without synchronisation beyond the mutex's cheap read path. It is not
// a singleton: callers construct and pass it by reference.
type Registry struct {
	mu      sync.RWMutex
	byKind  map[Kind][]Descriptor
	byKeyed map[string]Descriptor // "kind/name" -> descriptor
	logger  *slog.Logger
}

func key(kind Kind, name string) string {
	return string(kind) + "/" + name
}

// New constructs an empty Registry. Call Discover to populate it.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byKind:  make(map[Kind][]Descriptor),
		byKeyed: make(map[string]Descriptor),
		logger:  logger,
	}
}

// Discover probes every tool in probes and caches the resulting
// descriptors. Probe failures, missing binaries, and timeouts mark a
// tool unavailable; Discover itself never returns an error for those
// cases, per the ProbeTimeout error kind never propagating past the
// registry.
func (r *Registry) Discover(ctx context.Context, probes []Probe) map[Kind][]Descriptor {
	results := make([]Descriptor, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = r.probeOne(ctx, p)
		}(i, p)
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind = make(map[Kind][]Descriptor)
	r.byKeyed = make(map[string]Descriptor)
	for _, d := range results {
		r.byKind[d.Kind] = append(r.byKind[d.Kind], d)
		r.byKeyed[key(d.Kind, d.Name)] = d
	}
	for kind := range r.byKind {
		sort.Slice(r.byKind[kind], func(i, j int) bool {
			return r.byKind[kind][i].Name < r.byKind[kind][j].Name
		})
	}

	out := make(map[Kind][]Descriptor, len(r.byKind))
	for k, v := range r.byKind {
		cp := make([]Descriptor, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// LoadDescriptors populates the Registry directly from a pre-probed
// descriptor set, skipping Discover's subprocess probing entirely. Used
// by callers restoring a fresh on-disk registry cache.
func (r *Registry) LoadDescriptors(descriptors []Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind = make(map[Kind][]Descriptor)
	r.byKeyed = make(map[string]Descriptor)
	for _, d := range descriptors {
		r.byKind[d.Kind] = append(r.byKind[d.Kind], d)
		r.byKeyed[key(d.Kind, d.Name)] = d
	}
	for kind := range r.byKind {
		sort.Slice(r.byKind[kind], func(i, j int) bool {
			return r.byKind[kind][i].Name < r.byKind[kind][j].Name
		})
	}
}

func (r *Registry) probeOne(ctx context.Context, p Probe) Descriptor {
	if p.Builtin {
		r.logger.Debug("registry.probe.builtin", "kind", p.Kind, "name", p.Name)
		metrics.ProbeResults.WithLabelValues(string(p.Kind), p.Name, "available").Inc()
		return Descriptor{Kind: p.Kind, Name: p.Name, Path: "builtin", Version: "builtin", Available: true}
	}

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues(string(p.Kind), p.Name).Observe(time.Since(start).Seconds())
	}()

	path := p.Name
	if p.PathOverride != "" {
		path = p.PathOverride
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		r.logger.Debug("registry.probe.not_found", "kind", p.Kind, "name", p.Name)
		metrics.ProbeResults.WithLabelValues(string(p.Kind), p.Name, "unavailable").Inc()
		return Descriptor{Kind: p.Kind, Name: p.Name, Available: false}
	}

	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	args := p.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	cmd := exec.CommandContext(probeCtx, resolved, args...)
	outBytes, runErr := cmd.Output()
	if probeCtx.Err() == context.DeadlineExceeded {
		r.logger.Warn("registry.probe.timeout", "kind", p.Kind, "name", p.Name)
		metrics.ProbeResults.WithLabelValues(string(p.Kind), p.Name, "timeout").Inc()
		return Descriptor{Kind: p.Kind, Name: p.Name, Path: resolved, Available: false}
	}
	if runErr != nil {
		r.logger.Debug("registry.probe.failed", "kind", p.Kind, "name", p.Name, "err", runErr)
		metrics.ProbeResults.WithLabelValues(string(p.Kind), p.Name, "unavailable").Inc()
		return Descriptor{Kind: p.Kind, Name: p.Name, Path: resolved, Available: false}
	}

	metrics.ProbeResults.WithLabelValues(string(p.Kind), p.Name, "available").Inc()
	return Descriptor{
		Kind:      p.Kind,
		Name:      p.Name,
		Path:      resolved,
		Version:   firstLine(string(outBytes)),
		Available: true,
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// Lookup returns the descriptor for (kind, name), or false if unknown.
func (r *Registry) Lookup(kind Kind, name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKeyed[key(kind, name)]
	return d, ok
}

// ByKind returns the cached descriptors for a given kind, in the stable
// alphabetical order used to break scoring ties.
func (r *Registry) ByKind(kind Kind) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.byKind[kind]))
	copy(out, r.byKind[kind])
	return out
}
