package qtbundle

import "context"

// Inspector defines the interface for reading Mach-O load commands.
// Implementations may parse the file natively or shell out to otool;
// the deployment logic only cares about the answers.
type Inspector interface {
	// Dependencies returns the linked-library paths a binary declares,
	// excluding its own install name.
	Dependencies(path string) ([]string, error)

	// Rpaths returns the binary's LC_RPATH entries.
	Rpaths(path string) ([]string, error)

	// InstallName returns the binary's LC_ID_DYLIB, or "" for executables.
	InstallName(path string) (string, error)
}

// Rewriter defines the interface for mutating Mach-O load commands.
type Rewriter interface {
	// SetID replaces the binary's install name.
	SetID(path, id string) error

	// Change replaces one dependency reference with another.
	Change(path, oldDep, newDep string) error

	// AddRpath appends a runtime search path. Callers are expected to
	// check for presence first; duplicate entries are a hard error.
	AddRpath(path, rpath string) error
}

// Signer defines the interface for re-signing binaries after rewriting.
type Signer interface {
	// Sign signs a binary with the given identity.
	// The identity "-" requests ad-hoc signing.
	Sign(ctx context.Context, path, identity string) error

	// ValidateIdentity checks if a signing identity is valid.
	ValidateIdentity(identity string) error
}
