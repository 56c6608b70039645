// Package nametool wraps install_name_tool, the only way load commands
// are mutated. Every edit invalidates the binary's code signature, so
// callers re-sign afterwards.
package nametool

import (
	"bytes"
	"fmt"
	"os/exec"
)

type runFunc func(args ...string) ([]byte, error)

// Tool invokes install_name_tool.
type Tool struct {
	run runFunc
}

// New returns a Tool backed by the system install_name_tool.
func New() *Tool {
	return &Tool{run: runInstallNameTool}
}

func runInstallNameTool(args ...string) ([]byte, error) {
	out, err := exec.Command("install_name_tool", args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("install_name_tool %v: %w: %s", args, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// SetID replaces the binary's install name (install_name_tool -id).
func (t *Tool) SetID(path, id string) error {
	if _, err := t.run("-id", id, path); err != nil {
		return fmt.Errorf("nametool: set id of %s: %w", path, err)
	}
	return nil
}

// Change replaces one dependency reference with another
// (install_name_tool -change). Changing a reference the binary does not
// carry is a silent no-op, matching the tool's behavior.
func (t *Tool) Change(path, oldDep, newDep string) error {
	if _, err := t.run("-change", oldDep, newDep, path); err != nil {
		return fmt.Errorf("nametool: change %s -> %s in %s: %w", oldDep, newDep, path, err)
	}
	return nil
}

// AddRpath appends an LC_RPATH entry (install_name_tool -add_rpath).
// Adding an rpath the binary already carries is a hard error from the
// tool; check with Inspector.HasRpath first.
func (t *Tool) AddRpath(path, rpath string) error {
	if _, err := t.run("-add_rpath", rpath, path); err != nil {
		return fmt.Errorf("nametool: add rpath %s to %s: %w", rpath, path, err)
	}
	return nil
}
