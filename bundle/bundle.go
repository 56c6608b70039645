// Package bundle lays out the plugin bundle on disk: the Frameworks/
// directory tree, Qt framework and plugin copies, explicit dylibs and
// qt.conf. It only moves bytes; load-command rewriting lives elsewhere.
package bundle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// qtConf points Qt at the bundled plugin directory.
const qtConf = "[Paths]\nPlugins = Frameworks/plugins\n"

// Layout names the directories inside a plugin bundle.
type Layout struct {
	// Dir is the bundle root, the directory holding the plugin binary.
	Dir string
}

// FrameworksDir returns the directory holding frameworks and bundled libs.
func (l Layout) FrameworksDir() string { return filepath.Join(l.Dir, "Frameworks") }

// PluginsDir returns the directory holding Qt plugin subdirectories.
func (l Layout) PluginsDir() string { return filepath.Join(l.FrameworksDir(), "plugins") }

// LibDir returns the directory holding bundled flat dylibs.
func (l Layout) LibDir() string { return filepath.Join(l.FrameworksDir(), "lib") }

// Ensure creates the bundle directory structure.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.FrameworksDir(), l.PluginsDir(), l.LibDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("bundle: create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteQtConf writes qt.conf beside the plugin binary so Qt resolves its
// plugins from the bundle.
func (l Layout) WriteQtConf() error {
	path := filepath.Join(l.Dir, "qt.conf")
	if err := os.WriteFile(path, []byte(qtConf), 0644); err != nil {
		return fmt.Errorf("bundle: write qt.conf: %w", err)
	}
	return nil
}

// CopyFramework copies <qtLibDir>/<name>.framework into Frameworks/,
// replacing any previous copy and preserving symlinks. A missing source
// framework is an error.
func (l Layout) CopyFramework(qtLibDir, name string) error {
	src := filepath.Join(qtLibDir, name+".framework")
	dst := filepath.Join(l.FrameworksDir(), name+".framework")

	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return fmt.Errorf("bundle: missing Qt framework %s", src)
	}
	if err := replaceTree(src, dst); err != nil {
		return fmt.Errorf("bundle: copy framework %s: %w", name, err)
	}
	return nil
}

// CopyPluginDir copies <qtPluginsDir>/<sub> into Frameworks/plugins/<sub>,
// replacing any previous copy. It reports false when the source directory
// does not exist; plugin subdirectories are optional.
func (l Layout) CopyPluginDir(qtPluginsDir, sub string) (bool, error) {
	src := filepath.Join(qtPluginsDir, sub)
	dst := filepath.Join(l.PluginsDir(), sub)

	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return false, nil
	}
	if err := replaceTree(src, dst); err != nil {
		return false, fmt.Errorf("bundle: copy plugin dir %s: %w", sub, err)
	}
	return true, nil
}

// CopyLib copies a dylib into Frameworks/lib/ under its basename. It
// reports the destination and whether a copy happened: missing sources
// and already-present destinations are skipped, first copy wins.
func (l Layout) CopyLib(src string) (string, bool, error) {
	dst := filepath.Join(l.LibDir(), filepath.Base(src))

	if _, err := os.Stat(src); err != nil {
		return dst, false, nil
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, false, nil
	}
	if err := copyFile(src, dst, 0755); err != nil {
		return dst, false, fmt.Errorf("bundle: copy lib %s: %w", src, err)
	}
	return dst, true, nil
}

// FrameworkBinary returns the versioned framework binary inside the
// bundle, e.g. Frameworks/QtCore.framework/Versions/5/QtCore, and whether
// it exists on disk.
func (l Layout) FrameworkBinary(name string) (string, bool) {
	fwDir := filepath.Join(l.FrameworksDir(), name+".framework")
	version := FrameworkVersion(fwDir)
	path := filepath.Join(fwDir, "Versions", version, name)
	info, err := os.Stat(path)
	return path, err == nil && !info.IsDir()
}

// FrameworkVersion resolves the version segment of a framework directory.
// It follows the Versions/Current symlink when present, otherwise takes
// the single version directory, otherwise falls back to Qt 5's "5".
func FrameworkVersion(fwDir string) string {
	versionsDir := filepath.Join(fwDir, "Versions")
	if target, err := os.Readlink(filepath.Join(versionsDir, "Current")); err == nil {
		if v := filepath.Base(target); v != "" && v != "." {
			return v
		}
	}
	entries, err := os.ReadDir(versionsDir)
	if err == nil {
		var versions []string
		for _, e := range entries {
			if e.Name() != "Current" {
				versions = append(versions, e.Name())
			}
		}
		if len(versions) == 1 {
			return versions[0]
		}
	}
	return "5"
}

// PluginDylibs returns every *.dylib under Frameworks/plugins/.
func (l Layout) PluginDylibs() ([]string, error) {
	var dylibs []string
	err := filepath.WalkDir(l.PluginsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".dylib") {
			dylibs = append(dylibs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: scan plugin dylibs: %w", err)
	}
	return dylibs, nil
}

// LibDylibs returns every *.dylib directly under Frameworks/lib/.
func (l Layout) LibDylibs() ([]string, error) {
	dylibs, err := filepath.Glob(filepath.Join(l.LibDir(), "*.dylib"))
	if err != nil {
		return nil, fmt.Errorf("bundle: scan lib dylibs: %w", err)
	}
	return dylibs, nil
}
