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

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nativeforge/forge/pkg/job"
)

// DefaultParallelism is used when RunBatch is called with parallelism
// <= 0.
const DefaultParallelism = 4

// CollisionError reports that two or more jobs in a batch target the
// same output artifact path, detected before any job runs.
type CollisionError struct {
	Path   string
	JobIDs []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("output artifact path %q is targeted by multiple jobs: %v", e.Path, e.JobIDs)
}

// RunBatch runs jobs with up to parallelism concurrent workers, using a
// bounded errgroup. If any job has StopOnFirstError set and fails, the
// pool stops submitting new work and lets in-flight jobs drain rather
// than cancelling them outright; jobs not yet started are reported with
// a nil Report entry.
//
// Before any job runs, RunBatch checks for output artifact path
// collisions across the batch and refuses to start if any are found.
func RunBatch(ctx context.Context, p *Pipeline, jobs []job.Spec, parallelism int) ([]*job.Report, error) {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	if err := checkCollisions(jobs); err != nil {
		return nil, err
	}

	reports := make([]*job.Report, len(jobs))
	var draining atomic.Bool
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, spec := range jobs {
		i, spec := i, spec
		g.Go(func() error {
			if draining.Load() {
				return nil
			}
			report := p.Run(gctx, spec)

			mu.Lock()
			reports[i] = report
			mu.Unlock()

			if !report.Success && spec.StopOnFirstError {
				draining.Store(true)
			}
			return nil
		})
	}

	_ = g.Wait() // worker goroutines never return an error; failures are carried in reports

	return reports, nil
}

// checkCollisions computes each job's effective output artifact path
// and fails the whole batch if two jobs would write to the same one.
func checkCollisions(jobs []job.Spec) error {
	seen := make(map[string]string, len(jobs))
	for _, spec := range jobs {
		path := filepath.Join(spec.OutputDir, spec.Name())
		if owner, ok := seen[path]; ok {
			return &CollisionError{Path: path, JobIDs: []string{owner, spec.ID}}
		}
		seen[path] = spec.ID
	}
	return nil
}
