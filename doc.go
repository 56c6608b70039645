// Package qtbundle makes a Qt-based macOS plugin bundle self-contained.
//
// Given a plugin directory and the Qt, MacPorts and GIMP.app install
// locations, it copies the Qt frameworks, Qt plugins, a fixed set of
// third-party dylibs and their transitive dependencies into the bundle's
// Frameworks/ directory, then rewrites every binary's install name,
// dependency references and runtime search paths so the bundle loads
// without the host's library locations.
//
// Typical usage is through the qtbundle command:
//
//	BUNDLE_DIR=out/gmic_gimp_qt PLUGIN_BIN=out/gmic_gimp_qt/gmic_gimp_qt \
//	QT_PREFIX=/opt/local/libexec/qt5 GIMP_APP=/Applications/GIMP.app \
//	qtbundle deploy
//
// Mach-O load commands are read natively where possible and all mutation
// goes through install_name_tool, so the tool orchestrates the same edits
// a hand-written deployment script would make.
package qtbundle
