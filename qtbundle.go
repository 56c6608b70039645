package qtbundle

import "path/filepath"

// DefaultMacPortsPrefix is used when no prefix is configured.
const DefaultMacPortsPrefix = "/opt/local"

// DefaultFrameworks are the Qt frameworks the plugin links against.
var DefaultFrameworks = []string{
	"QtCore",
	"QtGui",
	"QtWidgets",
	"QtNetwork",
	"QtDBus",
	"QtPrintSupport",
}

// DefaultPluginSubdirs are the Qt plugin directories bundled alongside the
// frameworks. Qt loads these at runtime, so otool never reports them as
// dependencies of anything.
var DefaultPluginSubdirs = []string{
	"platforms",
	"styles",
	"imageformats",
	"iconengines",
}

// Config describes one deployment.
type Config struct {
	// BundleDir is the plugin directory the bundle is assembled in.
	BundleDir string

	// PluginBin is the plugin binary inside BundleDir.
	PluginBin string

	// QtPrefix is the Qt installation prefix (lib/ and plugins/ live under it).
	QtPrefix string

	// GimpApp is the path to GIMP.app. Libraries under it are never bundled;
	// the plugin resolves them through an rpath into the app instead.
	GimpApp string

	// MacPortsPrefix bounds the transitive dependency walk: only dylibs under
	// this prefix are pulled into the bundle.
	MacPortsPrefix string

	// Frameworks and PluginSubdirs override the default Qt lists when set.
	Frameworks    []string
	PluginSubdirs []string

	// ExtraLibs overrides the default explicit dylib list when set.
	// Entries that do not exist on disk are skipped.
	ExtraLibs []string

	// DryRun logs the operations a deployment would perform without
	// copying or rewriting anything.
	DryRun bool

	// Sign re-signs every mutated binary after rewriting. install_name_tool
	// invalidates signatures, and arm64 refuses to load binaries with a
	// broken ad-hoc signature.
	Sign bool

	// SigningIdentity is the codesign identity. Empty means ad-hoc ("-").
	SigningIdentity string
}

// NewConfig returns a Config with the default framework, plugin and
// prefix settings filled in.
func NewConfig() *Config {
	return &Config{
		MacPortsPrefix: DefaultMacPortsPrefix,
		Frameworks:     DefaultFrameworks,
		PluginSubdirs:  DefaultPluginSubdirs,
		Sign:           true,
	}
}

// Validate checks that every required input is present.
func (c *Config) Validate() error {
	required := []struct {
		val, flag, env string
	}{
		{c.BundleDir, "--bundle-dir", "BUNDLE_DIR"},
		{c.PluginBin, "--plugin-bin", "PLUGIN_BIN"},
		{c.QtPrefix, "--qt-prefix", "QT_PREFIX"},
		{c.GimpApp, "--gimp-app", "GIMP_APP"},
	}
	for _, r := range required {
		if r.val == "" {
			return &Error{
				Op:   "validate config",
				Err:  ErrMissingInput,
				Help: "set " + r.flag + " or the " + r.env + " environment variable",
			}
		}
	}
	if c.MacPortsPrefix == "" {
		c.MacPortsPrefix = DefaultMacPortsPrefix
	}
	return nil
}

// ExplicitLibs returns the dylibs bundled regardless of whether any binary
// currently references them by absolute path. ExtraLibs wins when set.
func (c *Config) ExplicitLibs() []string {
	if c.ExtraLibs != nil {
		return c.ExtraLibs
	}
	return []string{
		filepath.Join(c.MacPortsPrefix, "lib/libfftw3.3.dylib"),
		filepath.Join(c.MacPortsPrefix, "lib/libfftw3_threads.3.dylib"),
		filepath.Join(c.MacPortsPrefix, "lib/libomp/libomp.dylib"),
		filepath.Join(c.MacPortsPrefix, "lib/libdbus-1.3.dylib"),
		// Fallbacks from GIMP.app, if present.
		filepath.Join(c.GimpApp, "Contents/Resources/lib/libpng16.16.dylib"),
		filepath.Join(c.GimpApp, "Contents/Resources/lib/libz.1.dylib"),
		filepath.Join(c.GimpApp, "Contents/Resources/lib/libcurl.4.dylib"),
	}
}

// FrameworkNames returns the configured framework list, defaulting when unset.
func (c *Config) FrameworkNames() []string {
	if c.Frameworks != nil {
		return c.Frameworks
	}
	return DefaultFrameworks
}

// PluginDirNames returns the configured plugin subdirectory list.
func (c *Config) PluginDirNames() []string {
	if c.PluginSubdirs != nil {
		return c.PluginSubdirs
	}
	return DefaultPluginSubdirs
}

// Identity returns the effective codesign identity.
func (c *Config) Identity() string {
	if c.SigningIdentity == "" {
		return "-"
	}
	return c.SigningIdentity
}
