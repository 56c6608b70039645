package deploy

import (
	"fmt"
	"strings"
)

// Leftover is a dependency reference the remap should have eliminated.
type Leftover struct {
	Binary string
	Dep    string
}

// Report is the outcome of verifying a deployed bundle.
type Report struct {
	Checked   int
	Leftovers []Leftover
}

// OK reports whether the bundle carries no stale references.
func (r *Report) OK() bool { return len(r.Leftovers) == 0 }

// String renders the report one leftover per line.
func (r *Report) String() string {
	if r.OK() {
		return fmt.Sprintf("verified %d binaries, no stale references", r.Checked)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "verified %d binaries, %d stale references:\n", r.Checked, len(r.Leftovers))
	for _, l := range r.Leftovers {
		fmt.Fprintf(&b, "  %s -> %s\n", l.Binary, l.Dep)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Verify walks every binary in the bundle and reports dependency
// references still pointing into the MacPorts or Qt prefixes.
func (d *Deployer) Verify() (*Report, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}

	binaries := []string{d.cfg.PluginBin}
	for _, name := range d.cfg.FrameworkNames() {
		if path, ok := d.layout.FrameworkBinary(name); ok {
			binaries = append(binaries, path)
		}
	}
	plugins, err := d.layout.PluginDylibs()
	if err != nil {
		return nil, err
	}
	binaries = append(binaries, plugins...)
	libs, err := d.layout.LibDylibs()
	if err != nil {
		return nil, err
	}
	binaries = append(binaries, libs...)

	report := &Report{Checked: len(binaries)}
	for _, bin := range binaries {
		deps, err := d.inspect.Dependencies(bin)
		if err != nil {
			return nil, fmt.Errorf("deploy: dependencies of %s: %w", bin, err)
		}
		for _, dep := range deps {
			if strings.HasPrefix(dep, d.cfg.MacPortsPrefix) || strings.HasPrefix(dep, d.cfg.QtPrefix) {
				report.Leftovers = append(report.Leftovers, Leftover{Binary: bin, Dep: dep})
			}
		}
	}
	return report, nil
}
