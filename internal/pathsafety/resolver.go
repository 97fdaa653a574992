// Package pathsafety implements the path-safety collaborator of
// spec.md §6: the core never interprets "..", symlinks, or absolute
// paths itself, and instead calls a Resolver that turns a
// request-supplied file path into a canonical path or an AccessDenied
// error.
package pathsafety

import (
	"os"
	"path/filepath"

	"github.com/oakwood-commons/filequery/internal/query"
)

// Operation is the kind of access being requested, passed through to the
// resolver so a richer implementation can apply read/write-specific
// policy (e.g. a read-only mount).
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

// Resolver turns a project-relative (or absolute) file path into a
// canonical, safe-to-use path, or rejects it with AccessDenied. This is
// the interface spec.md §6 calls "an external resolver" — the core
// invokes it and never inspects ".." or symlinks on its own.
type Resolver interface {
	Resolve(filePath, projectRoot string, followSymlinks bool, op Operation) (string, error)
}

// RootConfined is a conservative default Resolver: it rejects any path
// that escapes projectRoot via ".." segments, and, unless
// followSymlinks is set, rejects a path whose resolved target (or any
// resolvable ancestor) lies outside projectRoot. It does not attempt to
// be the final security boundary for a production deployment — spec.md
// §1 keeps path-safety policy an external collaborator — only a working
// implementation the core and its tests can run against.
type RootConfined struct{}

func (RootConfined) Resolve(filePath, projectRoot string, followSymlinks bool, op Operation) (string, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", accessDenied(filePath, "cannot resolve project root: "+err.Error())
	}

	joined := filePath
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(root, filePath)
	}
	clean := filepath.Clean(joined)

	if !withinRoot(root, clean) {
		return "", accessDenied(filePath, "resolves outside the project root")
	}

	if followSymlinks {
		return clean, nil
	}

	resolved, err := resolveExistingSymlinks(clean)
	if err != nil {
		return "", accessDenied(filePath, "cannot resolve symlinks: "+err.Error())
	}
	if !withinRoot(root, resolved) {
		return "", accessDenied(filePath, "symlink resolves outside the project root")
	}

	return clean, nil
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// resolveExistingSymlinks walks up from path to the nearest ancestor
// that exists and resolves symlinks from there, so a not-yet-created
// write target (a new file) is checked against its real parent
// directory rather than failing because the target itself is absent.
func resolveExistingSymlinks(path string) (string, error) {
	cur := path
	var suffix []string
	for {
		if _, err := os.Lstat(cur); err == nil {
			real, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return "", err
			}
			for i := len(suffix) - 1; i >= 0; i-- {
				real = filepath.Join(real, suffix[i])
			}
			return real, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		suffix = append(suffix, filepath.Base(cur))
		cur = parent
	}
}

func accessDenied(filePath, reason string) error {
	return &query.Error{Kind: query.AccessDenied, Message: filePath + ": " + reason}
}
