//go:build darwin

package bundle

import "golang.org/x/sys/unix"

// cloneFile clones src to dst with APFS copy-on-write. Fails when the
// destination exists or the filesystem does not support cloning; the
// caller falls back to a streaming copy.
func cloneFile(src, dst string) error {
	return unix.Clonefile(src, dst, 0)
}
