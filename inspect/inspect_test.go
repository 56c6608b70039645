package inspect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otoolLOutput = "/opt/local/lib/libgmic.3.dylib:\n" +
	"\t/opt/local/lib/libgmic.3.dylib (compatibility version 3.0.0, current version 3.2.4)\n" +
	"\t/opt/local/libexec/qt5/lib/QtCore.framework/Versions/5/QtCore (compatibility version 5.15.0, current version 5.15.8)\n" +
	"\t/opt/local/lib/libfftw3.3.dylib (compatibility version 9.0.0, current version 9.11.0)\n" +
	"\t@rpath/lib/libomp.dylib (compatibility version 5.0.0, current version 5.0.0)\n" +
	"\t/usr/lib/libSystem.B.dylib (compatibility version 1.0.0, current version 1319.0.0)\n"

const otoolListOutput = "out/gmic_gimp_qt:\n" +
	"Load command 12\n" +
	"          cmd LC_LOAD_DYLIB\n" +
	"      cmdsize 56\n" +
	"         name /usr/lib/libSystem.B.dylib (offset 24)\n" +
	"Load command 13\n" +
	"          cmd LC_RPATH\n" +
	"      cmdsize 40\n" +
	"         path @loader_path/Frameworks (offset 12)\n" +
	"Load command 14\n" +
	"          cmd LC_RPATH\n" +
	"      cmdsize 56\n" +
	"         path /Applications/GIMP.app/Contents/Resources (offset 12)\n"

func TestParseOtoolDeps(t *testing.T) {
	deps := parseOtoolDeps(otoolLOutput)
	require.Len(t, deps, 5)
	assert.Equal(t, "/opt/local/lib/libgmic.3.dylib", deps[0])
	assert.Equal(t, "/opt/local/libexec/qt5/lib/QtCore.framework/Versions/5/QtCore", deps[1])
	assert.Equal(t, "@rpath/lib/libomp.dylib", deps[3])
	assert.Equal(t, "/usr/lib/libSystem.B.dylib", deps[4])
}

func TestParseOtoolDepsEmpty(t *testing.T) {
	assert.Empty(t, parseOtoolDeps("out/plugin:\n"))
	assert.Empty(t, parseOtoolDeps(""))
}

func TestParseOtoolRpaths(t *testing.T) {
	rpaths := parseOtoolRpaths(otoolListOutput)
	require.Len(t, rpaths, 2)
	assert.Equal(t, "@loader_path/Frameworks", rpaths[0])
	assert.Equal(t, "/Applications/GIMP.app/Contents/Resources", rpaths[1])
}

func TestParseOtoolRpathsIgnoresOtherPathLines(t *testing.T) {
	// A "path" line outside an LC_RPATH block must not be picked up.
	out := "bin:\n" +
		"          cmd LC_SEGMENT_64\n" +
		"         path /not/an/rpath (offset 12)\n"
	assert.Empty(t, parseOtoolRpaths(out))
}

func TestParseOtoolID(t *testing.T) {
	out := "Frameworks/lib/libz.1.dylib:\n@rpath/lib/libz.1.dylib\n"
	assert.Equal(t, "@rpath/lib/libz.1.dylib", parseOtoolID(out))
}

func TestParseOtoolIDExecutable(t *testing.T) {
	assert.Equal(t, "", parseOtoolID("out/gmic_gimp_qt:\n"))
}

func TestOtoolFallbackUsesRunner(t *testing.T) {
	var gotName string
	var gotArgs []string
	in := &Inspector{run: func(name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte(otoolLOutput), nil
	}}

	deps, err := in.otoolDeps("/opt/local/lib/libgmic.3.dylib")
	require.NoError(t, err)
	assert.Equal(t, "otool", gotName)
	assert.Equal(t, []string{"-L", "/opt/local/lib/libgmic.3.dylib"}, gotArgs)
	assert.Len(t, deps, 5)
}

func TestOtoolFallbackError(t *testing.T) {
	in := &Inspector{run: func(string, ...string) ([]byte, error) {
		return nil, errors.New("otool: exit status 1")
	}}
	_, err := in.otoolDeps("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list dependencies")
}

func TestHasRpath(t *testing.T) {
	in := &Inspector{run: func(name string, args ...string) ([]byte, error) {
		return []byte(otoolListOutput), nil
	}}
	ok, err := in.HasRpath("/nonexistent/binary", "@loader_path/Frameworks")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = in.HasRpath("/nonexistent/binary", "@loader_path/..")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsSystemLibrary(t *testing.T) {
	tests := []struct {
		dep  string
		want bool
	}{
		{"/usr/lib/libSystem.B.dylib", true},
		{"/System/Library/Frameworks/AppKit.framework/Versions/C/AppKit", true},
		{"/opt/local/lib/libpng16.16.dylib", false},
		{"@rpath/lib/libz.1.dylib", false},
		{"/usr/local/lib/libfoo.dylib", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSystemLibrary(tt.dep), tt.dep)
	}
}

func TestFrameworkName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/opt/local/libexec/qt5/lib/QtCore.framework/Versions/5/QtCore", "QtCore"},
		{"QtGui.framework/QtGui", "QtGui"},
		{"/opt/local/lib/libfftw3.3.dylib", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrameworkName(tt.path), tt.path)
	}
}
