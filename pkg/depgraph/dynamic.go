// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DynamicTraceTimeout bounds the instrumented subprocess run.
const DynamicTraceTimeout = 30 * time.Second

// traceHookShim is prepended to the traced invocation via -c so it runs
// before the entry file's own code. It installs an import hook that
// appends each imported module's root name to the file named by
// FORGE_TRACE_OUT, one per line, then execs the entry file.
//
// Reporting through a file handed off by environment variable, instead
// of printing to the child's stdout, keeps the trace channel distinct
// from anything the traced program itself prints.
const traceHookShim = `
import sys, os, runpy

_out_path = os.environ["FORGE_TRACE_OUT"]
_out = open(_out_path, "a")
_seen = set()

class _TraceFinder:
    def find_spec(self, name, path=None, target=None):
        root = name.split(".")[0]
        if root not in _seen:
            _seen.add(root)
            _out.write(root + chr(10))
            _out.flush()
        return None

sys.meta_path.insert(0, _TraceFinder())
sys.argv = sys.argv[1:]
runpy.run_path(sys.argv[0], run_name="__main__")
`

// runDynamicPass spawns the entry program in an isolated subprocess with
// the import hook replaced by a tracing shim, per the structured-channel
// design that replaces the fragile stdout-printing approach.
func runDynamicPass(ctx context.Context, interpreter, entryPath string, logger *slog.Logger) (map[string]bool, []Warning) {
	if logger == nil {
		logger = slog.Default()
	}

	traceFile, err := os.CreateTemp("", "forge-trace-*.txt")
	if err != nil {
		return map[string]bool{}, []Warning{{Source: "dynamic", Path: entryPath, Message: err.Error()}}
	}
	traceFile.Close()
	defer os.Remove(traceFile.Name())

	traceCtx, cancel := context.WithTimeout(ctx, DynamicTraceTimeout)
	defer cancel()

	cmd := exec.CommandContext(traceCtx, interpreter, "-c", traceHookShim, entryPath)
	cmd.Dir = filepath.Dir(entryPath)
	cmd.Env = append(os.Environ(), "FORGE_TRACE_OUT="+traceFile.Name())

	runErr := cmd.Run()
	if traceCtx.Err() == context.DeadlineExceeded {
		logger.Warn("analyzer.dynamic.timeout", "path", entryPath)
		return map[string]bool{}, []Warning{{Source: "dynamic", Path: entryPath, Message: "dynamic trace timed out"}}
	}
	if runErr != nil {
		logger.Warn("analyzer.dynamic.failed", "path", entryPath, "err", runErr)
		return map[string]bool{}, []Warning{{Source: "dynamic", Path: entryPath, Message: runErr.Error()}}
	}

	modules := make(map[string]bool)
	f, err := os.Open(traceFile.Name())
	if err != nil {
		return modules, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			modules[line] = true
		}
	}
	return modules, nil
}
