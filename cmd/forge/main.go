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

// forge drives Python build pipelines end to end: compiling a script to
// a native executable, compressing the result, and optionally applying
// source or bytecode protection, choosing tools by capability rather
// than a fixed preference order.
//
// Usage:
//
//	forge compile <entry.py> [options]     Run one job through the full pipeline
//	forge batch <jobs.yaml> [options]      Run many jobs with bounded parallelism
//	forge analyze <entry.py> [options]     Print the dependency graph and exclusion suggestions
//	forge tools [options]                  Show discovered compiler/compressor/protector tools
//
// Global options such as --json go before the command name
// (forge --json tools).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nativeforge/forge/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries the options every subcommand honors.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose bool
	Config  string
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		jsonOutput  = flag.Bool("json", false, "Output machine-readable JSON")
		quiet       = flag.Bool("quiet", false, "Suppress progress output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		configPath  = flag.String("config", defaultConfigPath(), "Path to forge config YAML")
	)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `forge - build orchestration engine for Python executables

Usage:
  forge <command> [options]

Commands:
  compile   Run one job through compile, compress, and protect
  batch     Run many jobs from a YAML manifest with bounded parallelism
  analyze   Print a program's dependency graph and exclusion suggestions
  tools     Show discovered compiler, compressor, and protector tools

Global Options:
  --json        Output machine-readable JSON
  --quiet       Suppress progress output
  --no-color    Disable colored output
  --verbose     Enable debug logging
  --config      Path to forge config YAML (default ~/.forge/config.yaml)
  --version     Show version and exit

Examples:
  forge compile app.py --onefile --console
  forge compile app.py --compress upx --protect advanced
  forge batch jobs.yaml --parallelism 4
  forge --json analyze app.py
  forge tools
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("forge version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}

	globals := GlobalFlags{JSON: *jsonOutput, Quiet: *quiet, NoColor: *noColor, Verbose: *verbose, Config: *configPath}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command, cmdArgs := args[0], args[1:]

	switch command {
	case "compile":
		runCompile(cmdArgs, globals)
	case "batch":
		runBatch(cmdArgs, globals)
	case "analyze":
		runAnalyze(cmdArgs, globals)
	case "tools":
		runTools(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".forge", "config.yaml")
}
