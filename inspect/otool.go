package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

type runFunc func(name string, args ...string) ([]byte, error)

// runCommand runs an external tool and returns its stdout, folding any
// stderr output into the error.
func runCommand(name string, args ...string) ([]byte, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (in *Inspector) otoolDeps(path string) ([]string, error) {
	out, err := in.run("otool", "-L", path)
	if err != nil {
		return nil, fmt.Errorf("inspect: list dependencies of %s: %w", path, err)
	}
	return parseOtoolDeps(string(out)), nil
}

func (in *Inspector) otoolRpaths(path string) ([]string, error) {
	out, err := in.run("otool", "-l", path)
	if err != nil {
		return nil, fmt.Errorf("inspect: list rpaths of %s: %w", path, err)
	}
	return parseOtoolRpaths(string(out)), nil
}

func (in *Inspector) otoolID(path string) (string, error) {
	out, err := in.run("otool", "-D", path)
	if err != nil {
		return "", fmt.Errorf("inspect: read install name of %s: %w", path, err)
	}
	return parseOtoolID(string(out)), nil
}

// parseOtoolDeps extracts the library paths from otool -L output. The
// first line names the file; each following indented line is
// "\t<path> (compatibility version ..., current version ...)".
func parseOtoolDeps(out string) []string {
	var deps []string
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 || !strings.HasPrefix(line, "\t") {
			continue
		}
		dep := strings.TrimSpace(line)
		if idx := strings.Index(dep, " ("); idx != -1 {
			dep = dep[:idx]
		}
		if dep != "" {
			deps = append(deps, dep)
		}
	}
	return deps
}

// parseOtoolRpaths extracts LC_RPATH entries from otool -l output. Each
// entry appears as a "cmd LC_RPATH" block whose "path" line carries the
// value followed by "(offset N)".
func parseOtoolRpaths(out string) []string {
	var rpaths []string
	inRpath := false
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "cmd "):
			inRpath = trimmed == "cmd LC_RPATH"
		case inRpath && strings.HasPrefix(trimmed, "path "):
			p := strings.TrimPrefix(trimmed, "path ")
			if idx := strings.LastIndex(p, " (offset "); idx != -1 {
				p = p[:idx]
			}
			rpaths = append(rpaths, p)
			inRpath = false
		}
	}
	return rpaths
}

// parseOtoolID extracts the install name from otool -D output: the first
// line names the file, the second (absent for executables) is the ID.
func parseOtoolID(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}
