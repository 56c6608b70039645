//go:build !darwin

package bundle

import "errors"

var errCloneUnsupported = errors.New("file cloning not supported")

func cloneFile(src, dst string) error {
	return errCloneUnsupported
}
