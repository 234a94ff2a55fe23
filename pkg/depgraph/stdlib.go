// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"context"
	"os/exec"
	"strings"
)

// Info is what a Resolver reports about one module name.
type Info struct {
	Classification Classification
	Path           string
	Version        string
}

// Resolver looks up where a module name resolves on the host, so
// classification does not require a dynamic type system in the
// implementation: only an equivalent lookup against the host's
// standard-library layout plus installed-package metadata. Tests stub
// this interface instead of shelling out.
type Resolver interface {
	Resolve(name string) (Info, error)
}

// HostResolver shells out to the configured interpreter to answer
// classification questions: whether a name is a built-in/stdlib module,
// and if not, where its on-disk module spec resolves.
type HostResolver struct {
	Interpreter string // e.g. "python3"
}

// NewHostResolver returns a HostResolver using interp, defaulting to
// "python3" when empty.
func NewHostResolver(interp string) *HostResolver {
	if interp == "" {
		interp = "python3"
	}
	return &HostResolver{Interpreter: interp}
}

const resolveScript = `
import importlib.util, sys, json
name = sys.argv[1]
out = {"classification": "unresolved", "path": "", "version": ""}
if name in sys.stdlib_module_names or name in sys.builtin_module_names:
    out["classification"] = "builtin"
else:
    try:
        spec = importlib.util.find_spec(name)
    except Exception:
        spec = None
    if spec is not None:
        origin = spec.origin or ""
        out["path"] = origin
        if "site-packages" in origin or "dist-packages" in origin:
            out["classification"] = "third_party"
            try:
                import importlib.metadata as md
                out["version"] = md.version(name)
            except Exception:
                pass
        else:
            out["classification"] = "local"
print(json.dumps(out))
`

// Resolve shells out to the interpreter with a small inline script that
// mirrors sys.stdlib_module_names / importlib.util.find_spec, matching
// the host's actual resolution rules rather than a hardcoded list.
func (r *HostResolver) Resolve(name string) (Info, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Interpreter, "-c", resolveScript, name)
	out, err := cmd.Output()
	if err != nil {
		return Info{Classification: Unresolved}, nil
	}
	return parseResolveOutput(out)
}

func parseResolveOutput(out []byte) (Info, error) {
	s := strings.TrimSpace(string(out))
	// Minimal inline decode: the script emits a flat JSON object with
	// fixed key order, so a tolerant scan avoids pulling in a JSON
	// dependency just for three fields.
	info := Info{Classification: Unresolved}
	info.Classification = Classification(extractJSONField(s, "classification"))
	info.Path = extractJSONField(s, "path")
	info.Version = extractJSONField(s, "version")
	if info.Classification == "" {
		info.Classification = Unresolved
	}
	return info, nil
}

func extractJSONField(s, field string) string {
	marker := `"` + field + `": "`
	idx := strings.Index(s, marker)
	if idx < 0 {
		return ""
	}
	rest := s[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}
