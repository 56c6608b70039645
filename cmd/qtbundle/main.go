// Command qtbundle makes a Qt-based macOS plugin bundle self-contained.
//
// It copies Qt frameworks, Qt plugins, explicit third-party dylibs and
// their transitive dependencies into the bundle's Frameworks/ directory,
// then rewrites install names, dependency references and rpaths through
// install_name_tool. Every input can come from a flag or an environment
// variable (BUNDLE_DIR, PLUGIN_BIN, QT_PREFIX, GIMP_APP, MACPORTS_PREFIX).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qtbundle"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// configEnv maps persistent config flags to the environment variables
// that back them when the flag is not given.
var configEnv = map[string]string{
	"bundle-dir":      "BUNDLE_DIR",
	"plugin-bin":      "PLUGIN_BIN",
	"qt-prefix":       "QT_PREFIX",
	"gimp-app":        "GIMP_APP",
	"macports-prefix": "MACPORTS_PREFIX",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qtbundle",
	Short: "Bundle Qt frameworks and dylibs into a macOS plugin directory",
	Long: `qtbundle is a post-build packaging step for Qt-based macOS plugins.

It copies the Qt frameworks, Qt plugins, explicit dylibs and transitive
dependencies a plugin needs into Frameworks/ beside the plugin binary,
then rewrites all install names and rpaths so the bundle is self-contained.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.String("bundle-dir", "", "plugin bundle directory (env BUNDLE_DIR)")
	pf.String("plugin-bin", "", "path to the plugin binary (env PLUGIN_BIN)")
	pf.String("qt-prefix", "", "Qt installation prefix (env QT_PREFIX)")
	pf.String("gimp-app", "", "path to GIMP.app (env GIMP_APP)")
	pf.String("macports-prefix", qtbundle.DefaultMacPortsPrefix, "MacPorts prefix (env MACPORTS_PREFIX)")

	for flag, env := range configEnv {
		_ = viper.BindPFlag(flag, pf.Lookup(flag))
		_ = viper.BindEnv(flag, env)
	}

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(depsCmd)
}

// buildConfig resolves the flag/env configuration into a Config.
func buildConfig() *qtbundle.Config {
	cfg := qtbundle.NewConfig()
	cfg.BundleDir = viper.GetString("bundle-dir")
	cfg.PluginBin = viper.GetString("plugin-bin")
	cfg.QtPrefix = viper.GetString("qt-prefix")
	cfg.GimpApp = viper.GetString("gimp-app")
	cfg.MacPortsPrefix = viper.GetString("macports-prefix")
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
