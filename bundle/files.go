package bundle

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyFile copies a regular file, preferring an APFS clone and falling
// back to a streaming copy with the given permissions.
func copyFile(src, dst string, perm os.FileMode) error {
	if err := cloneFile(src, dst); err == nil {
		return os.Chmod(dst, perm)
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file %s: %w", src, err)
	}
	defer sourceFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination file %s: %w", dst, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("copy file content: %w", err)
	}

	if err := os.Chmod(dst, perm); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}

	return nil
}

// copyTree copies a directory tree, recreating symlinks as symlinks.
// Framework trees rely on internal links (Versions/Current and the
// top-level binary link), so following them would duplicate every file.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("read symlink %s: %w", path, err)
			}
			return os.Symlink(link, target)
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		default:
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

// replaceTree copies src over dst, removing any previous dst first.
func replaceTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove previous copy %s: %w", dst, err)
	}
	return copyTree(src, dst)
}
