// Package codesign re-signs binaries after their load commands are
// rewritten. install_name_tool invalidates signatures, and arm64 macOS
// refuses to load a binary whose ad-hoc signature no longer matches.
package codesign

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Codesigner signs binaries with the system codesign tool.
type Codesigner struct {
	run runFunc
}

// New returns a Codesigner backed by the system codesign tool.
func New() *Codesigner {
	return &Codesigner{run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// Sign force-signs a binary with the given identity. The identity "-"
// requests ad-hoc signing.
func (s *Codesigner) Sign(ctx context.Context, path, identity string) error {
	if identity == "" {
		identity = "-"
	}
	if _, err := s.run(ctx, "codesign", "--force", "--sign", identity, path); err != nil {
		return fmt.Errorf("codesign: sign %s: %w", path, err)
	}
	return nil
}

// ValidateIdentity checks if the provided code signing identity is valid
// and available in the system keychain.
//
// The special identity "-" (ad-hoc signing) is always considered valid.
func (s *Codesigner) ValidateIdentity(identity string) error {
	if identity == "" {
		return fmt.Errorf("codesign: empty code signing identity")
	}
	if identity == "-" {
		return nil
	}

	out, err := s.run(context.Background(), "security", "find-identity", "-v", "-p", "codesigning")
	if err != nil {
		return fmt.Errorf("codesign: query keychain: %w", err)
	}
	if !strings.Contains(string(out), identity) {
		return fmt.Errorf("codesign: identity not found in keychain: %s", identity)
	}
	return nil
}

// FindDeveloperID attempts to find a Developer ID Application certificate
// by querying the system keychain for available code signing identities.
// It prefers "Developer ID Application" certificates and falls back to
// any valid identity. Returns "" when none is found.
func FindDeveloperID() string {
	out, err := exec.Command("security", "find-identity", "-v", "-p", "codesigning").Output()
	if err != nil {
		return ""
	}
	identities := parseIdentities(string(out))
	for _, id := range identities {
		if strings.Contains(id, "Developer ID Application") {
			return id
		}
	}
	if len(identities) > 0 {
		return identities[0]
	}
	return ""
}

// ListAvailableIdentities returns the code signing identities available
// in the system keychain. Useful for the hint shown when --identity does
// not validate.
func ListAvailableIdentities() ([]string, error) {
	out, err := exec.Command("security", "find-identity", "-v", "-p", "codesigning").Output()
	if err != nil {
		return nil, fmt.Errorf("codesign: query keychain: %w", err)
	}
	return parseIdentities(string(out)), nil
}

// parseIdentities extracts quoted identity names from
// security find-identity output.
func parseIdentities(out string) []string {
	var identities []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "valid identities found") || strings.Contains(line, "invalid") {
			continue
		}
		start := strings.Index(line, `"`)
		end := strings.LastIndex(line, `"`)
		if start != -1 && end > start {
			identities = append(identities, line[start+1:end])
		}
	}
	return identities
}
