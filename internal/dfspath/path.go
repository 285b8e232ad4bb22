// Package dfspath implements the immutable path value shared by the naming
// server and storage servers: an absolute, POSIX-style sequence of
// components, none of which may be empty or contain '/' or ':'.
package dfspath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned for any malformed path or path operation
// that the specification declares undefined (e.g. Parent() of the root).
var ErrInvalidArgument = errors.New("invalid argument")

// Path is an immutable, absolute, slash-separated path. The zero value is
// the root path "/".
type Path struct {
	components []string
}

// Root is the path "/".
func Root() Path {
	return Path{}
}

// Parse builds a Path from its canonical string form. It accepts strings
// beginning with "/", collapses runs of "/", and rejects empty strings,
// strings not starting with "/", and strings containing ':'.
func Parse(s string) (Path, error) {
	if s == "" || s[0] != '/' {
		return Path{}, errors.Wrapf(ErrInvalidArgument, "path %q must start with /", s)
	}
	if strings.ContainsRune(s, ':') {
		return Path{}, errors.Wrapf(ErrInvalidArgument, "path %q must not contain ':'", s)
	}
	var components []string
	for _, c := range strings.Split(s, "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	return Path{components: components}, nil
}

// MustParse is Parse, panicking on error. Intended for tests and constant
// paths known to be valid at compile time.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Child builds the path obtained by appending component to parent. It
// rejects an empty component or one containing '/' or ':'.
func Child(parent Path, component string) (Path, error) {
	if component == "" {
		return Path{}, errors.Wrapf(ErrInvalidArgument, "empty path component")
	}
	if strings.ContainsAny(component, "/:") {
		return Path{}, errors.Wrapf(ErrInvalidArgument, "path component %q must not contain '/' or ':'", component)
	}
	next := make([]string, len(parent.components)+1)
	copy(next, parent.components)
	next[len(parent.components)] = component
	return Path{components: next}, nil
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.components) == 0
}

// Parent returns the path with the last component removed. It fails with
// ErrInvalidArgument on the root path.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, errors.Wrapf(ErrInvalidArgument, "root has no parent")
	}
	return Path{components: append([]string(nil), p.components[:len(p.components)-1]...)}, nil
}

// Last returns the final path component. It fails with ErrInvalidArgument on
// the root path.
func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", errors.Wrapf(ErrInvalidArgument, "root has no last component")
	}
	return p.components[len(p.components)-1], nil
}

// Components returns a copy of the ordered path components.
func (p Path) Components() []string {
	return append([]string(nil), p.components...)
}

// String renders the canonical form of p, always beginning with "/".
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.components, "/")
}

// Equal reports whether p and q denote the same sequence of components.
func (p Path) Equal(q Path) bool {
	if len(p.components) != len(q.components) {
		return false
	}
	for i, c := range p.components {
		if q.components[i] != c {
			return false
		}
	}
	return true
}

// IsSubpath reports whether q is a prefix of p, including the case q
// equals p and the case q is the root.
func (p Path) IsSubpath(q Path) bool {
	if len(q.components) > len(p.components) {
		return false
	}
	for i, c := range q.components {
		if p.components[i] != c {
			return false
		}
	}
	return true
}

// ToFile maps p onto a host-filesystem path rooted at root.
func (p Path) ToFile(root string) string {
	elems := append([]string{root}, p.components...)
	return filepath.Join(elems...)
}

// Chain returns the breadcrumb of paths from the root down to and
// including p: Chain(Parse("/a/b"))  ==  [/, /a, /a/b]. It is pure path
// arithmetic, independent of whatever tree of nodes p may or may not
// resolve to — the naming server's hierarchical locking discipline
// (spec §4.5) walks this chain to decide which per-path locks to acquire.
func Chain(p Path) []Path {
	chain := make([]Path, 0, len(p.components)+1)
	cur := Root()
	chain = append(chain, cur)
	for _, c := range p.components {
		cur, _ = Child(cur, c) // components already validated when p was built
		chain = append(chain, cur)
	}
	return chain
}

// GobEncode implements gob.GobEncoder so Path can cross the RMI transport:
// the component slice is otherwise unexported and gob only sees exported
// struct fields.
func (p Path) GobEncode() ([]byte, error) {
	return []byte(p.String()), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (p *Path) GobDecode(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// List returns the set of logical, root-relative paths to every regular
// file found by recursively walking the local directory tree rooted at
// root. Traversal order is unspecified. A root directory that does not
// exist yet yields an empty, non-error result: storage servers may start
// against a brand-new, still-empty data directory.
func List(root string) ([]Path, error) {
	var out []Path
	err := filepath.Walk(root, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && name == root {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, name)
		if err != nil {
			return err
		}
		logical, err := Parse("/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		out = append(out, logical)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}
