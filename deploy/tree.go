package deploy

import (
	"fmt"
	"io"
	"strings"

	"qtbundle"
	"qtbundle/inspect"
)

// PrintTree writes the recursive dependency tree of a binary to w, one
// path per line, indented by depth. Already-printed binaries are marked
// and not expanded again, so shared subtrees and cycles stay bounded.
// @-relative and OS-provided references are printed but never followed.
func PrintTree(w io.Writer, in qtbundle.Inspector, root string) error {
	seen := make(map[string]bool)

	var walk func(path string, depth int) error
	walk = func(path string, depth int) error {
		indent := strings.Repeat("  ", depth)
		if seen[path] {
			fmt.Fprintf(w, "%s%s (seen)\n", indent, path)
			return nil
		}
		fmt.Fprintf(w, "%s%s\n", indent, path)
		seen[path] = true

		if depth > 0 && (strings.HasPrefix(path, "@") || inspect.IsSystemLibrary(path)) {
			return nil
		}

		deps, err := in.Dependencies(path)
		if err != nil {
			if depth == 0 {
				return fmt.Errorf("deploy: dependencies of %s: %w", path, err)
			}
			fmt.Fprintf(w, "%s  (unreadable: %v)\n", indent, err)
			return nil
		}
		for _, dep := range deps {
			if strings.HasPrefix(dep, "@") || inspect.IsSystemLibrary(dep) {
				fmt.Fprintf(w, "%s  %s\n", indent, dep)
				continue
			}
			if err := walk(dep, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(root, 0)
}
