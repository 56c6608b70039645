package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qtbundle"
	"qtbundle/codesign"
	"qtbundle/deploy"
)

var (
	dryRun       bool
	noSign       bool
	signIdentity string
	frameworks   []string
	pluginDirs   []string
	extraLibs    []string
)

// deployCmd runs the full bundling sequence.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Copy frameworks, plugins and dylib dependencies, then rewrite load commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		cfg.DryRun = dryRun
		cfg.Sign = !noSign
		cfg.SigningIdentity = signIdentity
		if frameworks != nil {
			cfg.Frameworks = frameworks
		}
		if pluginDirs != nil {
			cfg.PluginSubdirs = pluginDirs
		}
		if len(extraLibs) > 0 {
			cfg.ExtraLibs = append(cfg.ExplicitLibs(), extraLibs...)
		}

		if err := validateIdentity(cfg); err != nil {
			return err
		}

		d := deploy.New(cfg, deploy.WithLogger(logger))
		if err := d.Deploy(cmd.Context()); err != nil {
			return err
		}
		if cfg.DryRun {
			return nil
		}

		report, err := d.Verify()
		if err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("deploy left stale references:\n%s", report)
		}

		fmt.Printf("Bundle complete: %s\n", cfg.BundleDir)
		return nil
	},
}

// validateIdentity rejects an unknown signing identity up front, with a
// hint listing what the keychain actually holds.
func validateIdentity(cfg *qtbundle.Config) error {
	if !cfg.Sign || cfg.Identity() == "-" {
		return nil
	}
	if err := codesign.New().ValidateIdentity(cfg.Identity()); err != nil {
		help := "use --identity with one of the identities in the keychain, or omit it for ad-hoc signing"
		if ids, lerr := codesign.ListAvailableIdentities(); lerr == nil && len(ids) > 0 {
			help = "available identities:\n    " + strings.Join(ids, "\n    ")
		}
		return &qtbundle.Error{Op: "validate signing identity", Err: err, Help: help}
	}
	return nil
}

func init() {
	f := deployCmd.Flags()
	f.BoolVar(&dryRun, "dry-run", false, "log the operations that would run without copying or rewriting")
	f.BoolVar(&noSign, "no-sign", false, "skip re-signing rewritten binaries")
	f.StringVar(&signIdentity, "identity", "", "codesign identity for re-signing (default: ad-hoc)")
	f.StringSliceVar(&frameworks, "framework", nil, "Qt framework to bundle (repeatable; replaces the default list)")
	f.StringSliceVar(&pluginDirs, "plugin-subdir", nil, "Qt plugin subdirectory to bundle (repeatable; replaces the default list)")
	f.StringSliceVar(&extraLibs, "extra-lib", nil, "additional dylib to bundle (repeatable; added to the default list)")
}
