// Package inspect reads Mach-O load commands: linked libraries, runtime
// search paths and install names. It parses binaries natively and falls
// back to otool output when native parsing cannot handle a file.
package inspect

import (
	"strings"

	"github.com/blacktop/go-macho"
)

// Inspector answers load-command queries about Mach-O binaries.
// The zero value is not usable; call New.
type Inspector struct {
	run runFunc
}

// New returns an Inspector backed by native parsing with an otool fallback.
func New() *Inspector {
	return &Inspector{run: runCommand}
}

// Dependencies returns the linked-library paths the binary declares.
func (in *Inspector) Dependencies(path string) ([]string, error) {
	if f, err := open(path); err == nil {
		deps := f.ImportedLibraries()
		f.Close()
		return deps, nil
	}
	return in.otoolDeps(path)
}

// Rpaths returns the binary's LC_RPATH entries, in load-command order.
func (in *Inspector) Rpaths(path string) ([]string, error) {
	if f, err := open(path); err == nil {
		var rpaths []string
		for _, l := range f.Loads {
			if r, ok := l.(*macho.Rpath); ok {
				rpaths = append(rpaths, r.Path)
			}
		}
		f.Close()
		return rpaths, nil
	}
	return in.otoolRpaths(path)
}

// HasRpath reports whether the binary already carries the given rpath.
func (in *Inspector) HasRpath(path, rpath string) (bool, error) {
	rpaths, err := in.Rpaths(path)
	if err != nil {
		return false, err
	}
	for _, r := range rpaths {
		if r == rpath {
			return true, nil
		}
	}
	return false, nil
}

// InstallName returns the binary's LC_ID_DYLIB, or "" for executables.
func (in *Inspector) InstallName(path string) (string, error) {
	if f, err := open(path); err == nil {
		defer f.Close()
		if id := f.DylibID(); id != nil {
			return id.Name, nil
		}
		return "", nil
	}
	return in.otoolID(path)
}

// open parses a thin binary, falling back to the first slice of a
// universal binary.
func open(path string) (*macho.File, error) {
	f, err := macho.Open(path)
	if err == nil {
		return f, nil
	}
	ff, ferr := macho.OpenFat(path)
	if ferr != nil || len(ff.Arches) == 0 {
		return nil, err
	}
	return ff.Arches[0].File, nil
}

// IsSystemLibrary reports whether dep is provided by the OS and must never
// be bundled.
func IsSystemLibrary(dep string) bool {
	return strings.HasPrefix(dep, "/System") || strings.HasPrefix(dep, "/usr/lib")
}

// FrameworkName extracts the framework name from a path such as
// /opt/local/libexec/qt5/lib/QtCore.framework/Versions/5/QtCore.
// It returns "" when the path holds no .framework component.
func FrameworkName(path string) string {
	for _, part := range strings.Split(path, "/") {
		if name, ok := strings.CutSuffix(part, ".framework"); ok {
			return name
		}
	}
	return ""
}
