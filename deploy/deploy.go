// Package deploy assembles a self-contained Qt plugin bundle: it copies
// frameworks, plugins and transitive dylib dependencies into place, then
// rewrites install names, dependency references and rpaths so everything
// resolves through @rpath inside the bundle.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"qtbundle"
	"qtbundle/bundle"
	"qtbundle/codesign"
	"qtbundle/inspect"
	"qtbundle/nametool"
)

// Deployer runs one deployment over a Config.
type Deployer struct {
	cfg    *qtbundle.Config
	layout bundle.Layout

	inspect qtbundle.Inspector
	rewrite qtbundle.Rewriter
	signer  qtbundle.Signer
	log     *zap.Logger

	// mutated collects every binary whose load commands were edited,
	// so signMutated re-signs exactly those.
	mutated map[string]bool
}

// Option customizes a Deployer.
type Option func(*Deployer)

// WithInspector replaces the Mach-O reader.
func WithInspector(in qtbundle.Inspector) Option {
	return func(d *Deployer) { d.inspect = in }
}

// WithRewriter replaces the install_name_tool backend.
func WithRewriter(rw qtbundle.Rewriter) Option {
	return func(d *Deployer) { d.rewrite = rw }
}

// WithSigner replaces the codesign backend.
func WithSigner(s qtbundle.Signer) Option {
	return func(d *Deployer) { d.signer = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(d *Deployer) { d.log = log }
}

// New returns a Deployer for the given configuration.
func New(cfg *qtbundle.Config, opts ...Option) *Deployer {
	d := &Deployer{
		cfg:     cfg,
		layout:  bundle.Layout{Dir: cfg.BundleDir},
		inspect: inspect.New(),
		rewrite: nametool.New(),
		signer:  codesign.New(),
		log:     zap.NewNop(),
		mutated: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy runs the full deployment sequence.
func (d *Deployer) Deploy(ctx context.Context) error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	if err := d.checkInputs(); err != nil {
		return err
	}

	if err := d.assemble(); err != nil {
		return err
	}

	binaries, err := d.seedBinaries()
	if err != nil {
		return err
	}

	if err := d.copyExplicitLibs(); err != nil {
		return err
	}
	if err := d.gather(binaries); err != nil {
		return err
	}

	libs, err := d.layout.LibDylibs()
	if err != nil {
		return err
	}
	binaries = append(binaries, libs...)

	if err := d.setInstallIDs(); err != nil {
		return err
	}
	for _, bin := range binaries {
		if err := d.remapBinary(bin); err != nil {
			return err
		}
	}
	if err := d.addRpaths(); err != nil {
		return err
	}
	if err := d.signMutated(ctx); err != nil {
		return err
	}

	d.log.Info("bundle complete",
		zap.String("bundle", d.cfg.BundleDir),
		zap.Int("binaries", len(binaries)),
		zap.Int("rewritten", len(d.mutated)),
		zap.Bool("dry_run", d.cfg.DryRun))
	return nil
}

// checkInputs verifies the bundle directory and plugin binary exist.
func (d *Deployer) checkInputs() error {
	if info, err := os.Stat(d.cfg.BundleDir); err != nil || !info.IsDir() {
		return &qtbundle.Error{
			Op:   "check bundle directory",
			Err:  fmt.Errorf("not a directory: %s", d.cfg.BundleDir),
			Help: "build the plugin first; --bundle-dir must hold the plugin binary",
		}
	}
	if _, err := os.Stat(d.cfg.PluginBin); err != nil {
		return &qtbundle.Error{
			Op:   "check plugin binary",
			Err:  err,
			Help: "--plugin-bin must point at the built plugin inside the bundle directory",
		}
	}
	return nil
}

// assemble creates the layout and copies frameworks, plugins and qt.conf.
func (d *Deployer) assemble() error {
	if d.cfg.DryRun {
		d.log.Info("dry run: would create bundle layout", zap.String("dir", d.layout.FrameworksDir()))
	} else if err := d.layout.Ensure(); err != nil {
		return err
	}

	qtLibDir := filepath.Join(d.cfg.QtPrefix, "lib")
	for _, name := range d.cfg.FrameworkNames() {
		if d.cfg.DryRun {
			d.log.Info("dry run: would copy framework", zap.String("framework", name))
			continue
		}
		if err := d.layout.CopyFramework(qtLibDir, name); err != nil {
			return &qtbundle.Error{
				Op:   "copy framework " + name,
				Err:  err,
				Help: "check --qt-prefix; expected " + filepath.Join(qtLibDir, name+".framework"),
			}
		}
		d.log.Debug("copied framework", zap.String("framework", name))
	}

	qtPluginsDir := filepath.Join(d.cfg.QtPrefix, "plugins")
	for _, sub := range d.cfg.PluginDirNames() {
		if d.cfg.DryRun {
			d.log.Info("dry run: would copy plugin dir", zap.String("subdir", sub))
			continue
		}
		copied, err := d.layout.CopyPluginDir(qtPluginsDir, sub)
		if err != nil {
			return err
		}
		d.log.Debug("plugin dir", zap.String("subdir", sub), zap.Bool("copied", copied))
	}

	if d.cfg.DryRun {
		d.log.Info("dry run: would write qt.conf")
		return nil
	}
	return d.layout.WriteQtConf()
}

// seedBinaries returns the initial set of binaries to walk and rewrite:
// the plugin binary, every copied framework binary and every plugin dylib.
func (d *Deployer) seedBinaries() ([]string, error) {
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
	return append(binaries, plugins...), nil
}

// copyExplicitLibs copies the configured dylibs that must be bundled even
// when no binary currently references them by absolute path.
func (d *Deployer) copyExplicitLibs() error {
	for _, src := range d.cfg.ExplicitLibs() {
		if d.cfg.DryRun {
			d.log.Info("dry run: would copy explicit lib", zap.String("lib", src))
			continue
		}
		_, copied, err := d.layout.CopyLib(src)
		if err != nil {
			return err
		}
		if copied {
			d.log.Debug("copied explicit lib", zap.String("lib", src))
		}
	}
	return nil
}

// gather walks the dependency graph breadth-first from the seed binaries,
// copying every bundleable dylib into Frameworks/lib/ and following the
// copies' own dependencies.
func (d *Deployer) gather(seeds []string) error {
	queue := append([]string(nil), seeds...)
	enqueued := make(map[string]bool, len(queue))
	for _, path := range queue {
		enqueued[path] = true
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		deps, err := d.inspect.Dependencies(item)
		if err != nil {
			return fmt.Errorf("deploy: dependencies of %s: %w", item, err)
		}
		for _, dep := range deps {
			if !d.bundleable(dep) {
				continue
			}
			if d.cfg.DryRun {
				d.log.Info("dry run: would bundle dependency", zap.String("dep", dep))
				continue
			}
			dst, copied, err := d.layout.CopyLib(dep)
			if err != nil {
				return err
			}
			if copied && !enqueued[dst] {
				enqueued[dst] = true
				queue = append(queue, dst)
				d.log.Debug("bundled dependency",
					zap.String("dep", dep), zap.String("from", item))
			}
		}
	}
	return nil
}

// bundleable reports whether a dependency reference should be copied into
// the bundle: an absolute dylib path under the MacPorts prefix that is
// not already @rpath-relative, OS-provided or resolved through GIMP.app.
func (d *Deployer) bundleable(dep string) bool {
	if strings.HasPrefix(dep, "@") {
		return false
	}
	if strings.HasPrefix(dep, d.cfg.GimpApp) {
		return false
	}
	if inspect.IsSystemLibrary(dep) {
		return false
	}
	return strings.HasPrefix(dep, d.cfg.MacPortsPrefix) && strings.HasSuffix(dep, ".dylib")
}

// setInstallIDs gives every bundled dylib and framework binary an
// @rpath-relative install name.
func (d *Deployer) setInstallIDs() error {
	libs, err := d.layout.LibDylibs()
	if err != nil {
		return err
	}
	for _, lib := range libs {
		if err := d.setID(lib, "@rpath/lib/"+filepath.Base(lib)); err != nil {
			return err
		}
	}

	for _, name := range d.cfg.FrameworkNames() {
		path, ok := d.layout.FrameworkBinary(name)
		if !ok {
			continue
		}
		version := bundle.FrameworkVersion(filepath.Join(d.layout.FrameworksDir(), name+".framework"))
		if err := d.setID(path, frameworkRef(name, version)); err != nil {
			return err
		}
	}
	return nil
}

// remapBinary rewrites every bundleable dependency reference of one
// binary to its @rpath-relative form.
func (d *Deployer) remapBinary(path string) error {
	deps, err := d.inspect.Dependencies(path)
	if err != nil {
		return fmt.Errorf("deploy: dependencies of %s: %w", path, err)
	}
	for _, dep := range deps {
		if strings.HasPrefix(dep, "@") ||
			strings.HasPrefix(dep, d.cfg.GimpApp) ||
			inspect.IsSystemLibrary(dep) {
			continue
		}
		if !strings.HasPrefix(dep, d.cfg.MacPortsPrefix) {
			continue
		}
		switch {
		case strings.Contains(dep, ".framework/"):
			name := inspect.FrameworkName(dep)
			if name == "" {
				continue
			}
			if err := d.change(path, dep, frameworkRef(name, d.frameworkVersionFor(name, dep))); err != nil {
				return err
			}
		case strings.HasSuffix(dep, ".dylib"):
			if err := d.change(path, dep, "@rpath/lib/"+filepath.Base(dep)); err != nil {
				return err
			}
		}
	}
	return nil
}

// addRpaths gives every binary the search paths it needs to resolve the
// @rpath references written by the remap.
func (d *Deployer) addRpaths() error {
	if err := d.ensureRpath(d.cfg.PluginBin, "@loader_path/Frameworks"); err != nil {
		return err
	}
	if err := d.ensureRpath(d.cfg.PluginBin, filepath.Join(d.cfg.GimpApp, "Contents/Resources")); err != nil {
		return err
	}

	plugins, err := d.layout.PluginDylibs()
	if err != nil {
		return err
	}
	for _, dylib := range plugins {
		if err := d.ensureRpath(dylib, "@loader_path/../.."); err != nil {
			return err
		}
		if err := d.ensureRpath(dylib, "@executable_path/../Frameworks"); err != nil {
			return err
		}
	}

	for _, name := range d.cfg.FrameworkNames() {
		if path, ok := d.layout.FrameworkBinary(name); ok {
			if err := d.ensureRpath(path, "@loader_path/../../.."); err != nil {
				return err
			}
		}
	}
	return nil
}

// signMutated re-signs every binary whose load commands were edited.
func (d *Deployer) signMutated(ctx context.Context) error {
	if !d.cfg.Sign || d.cfg.DryRun || len(d.mutated) == 0 {
		return nil
	}

	paths := make([]string, 0, len(d.mutated))
	for path := range d.mutated {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	identity := d.cfg.Identity()
	for _, path := range paths {
		if err := d.signer.Sign(ctx, path, identity); err != nil {
			return &qtbundle.Error{
				Op:   "re-sign " + path,
				Err:  err,
				Help: "pass --no-sign to skip re-signing, or --identity to pick a certificate",
			}
		}
		d.log.Debug("re-signed", zap.String("binary", path))
	}
	return nil
}

// setID, change and ensureRpath funnel every load-command edit through
// the dry-run check and the mutated set.

func (d *Deployer) setID(path, id string) error {
	if d.cfg.DryRun {
		d.log.Info("dry run: would set install name",
			zap.String("binary", path), zap.String("id", id))
		return nil
	}
	if err := d.rewrite.SetID(path, id); err != nil {
		return err
	}
	d.mutated[path] = true
	d.log.Debug("set install name", zap.String("binary", path), zap.String("id", id))
	return nil
}

func (d *Deployer) change(path, oldDep, newDep string) error {
	if d.cfg.DryRun {
		d.log.Info("dry run: would change dependency",
			zap.String("binary", path), zap.String("from", oldDep), zap.String("to", newDep))
		return nil
	}
	if err := d.rewrite.Change(path, oldDep, newDep); err != nil {
		return err
	}
	d.mutated[path] = true
	d.log.Debug("changed dependency",
		zap.String("binary", path), zap.String("from", oldDep), zap.String("to", newDep))
	return nil
}

// ensureRpath adds an rpath unless the binary already carries it;
// duplicate LC_RPATH entries are a hard error from install_name_tool.
func (d *Deployer) ensureRpath(path, rpath string) error {
	rpaths, err := d.inspect.Rpaths(path)
	if err != nil {
		return fmt.Errorf("deploy: rpaths of %s: %w", path, err)
	}
	for _, r := range rpaths {
		if r == rpath {
			return nil
		}
	}

	if d.cfg.DryRun {
		d.log.Info("dry run: would add rpath",
			zap.String("binary", path), zap.String("rpath", rpath))
		return nil
	}
	if err := d.rewrite.AddRpath(path, rpath); err != nil {
		return err
	}
	d.mutated[path] = true
	d.log.Debug("added rpath", zap.String("binary", path), zap.String("rpath", rpath))
	return nil
}

// frameworkRef builds the @rpath-relative reference for a framework binary.
func frameworkRef(name, version string) string {
	return "@rpath/" + name + ".framework/Versions/" + version + "/" + name
}

// frameworkVersionFor picks the version segment for a rewritten framework
// reference: the version named in the original dependency path when
// present, otherwise the version of the copied framework tree.
func (d *Deployer) frameworkVersionFor(name, dep string) string {
	if v := versionFromPath(dep); v != "" {
		return v
	}
	return bundle.FrameworkVersion(filepath.Join(d.layout.FrameworksDir(), name+".framework"))
}

// versionFromPath extracts "<v>" from a path containing "Versions/<v>/".
func versionFromPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "Versions" && i+1 < len(parts)-1 {
			return parts[i+1]
		}
	}
	return ""
}
