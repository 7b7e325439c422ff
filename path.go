package salvage

import (
	"strconv"
	"strings"
)

// Path addresses an element inside a JSON document tree. Segments are
// either string keys ("content", "marks") or int indices, mirroring the
// tree's own layout, so a Path can be replayed against the original tree.
type Path []any

// Field returns a copy of p extended with a key segment.
func (p Path) Field(name string) Path {
	return append(append(Path{}, p...), name)
}

// Index returns a copy of p extended with an index segment.
func (p Path) Index(i int) Path {
	return append(append(Path{}, p...), i)
}

// Pointer renders p as a JSON Pointer.
func (p Path) Pointer() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, 0, len(p))
	for _, seg := range p {
		switch v := seg.(type) {
		case int:
			parts = append(parts, strconv.Itoa(v))
		case string:
			// escape '~' -> '~0', '/' -> '~1' per RFC6901
			parts = append(parts, strings.ReplaceAll(strings.ReplaceAll(v, "~", "~0"), "/", "~1"))
		}
	}
	return "/" + strings.Join(parts, "/")
}

func (p Path) String() string { return p.Pointer() }

// HasPrefix reports whether q is a prefix of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// compare orders paths segment by segment. Indices compare numerically and
// sort after keys at the same position.
func (p Path) compare(q Path) int {
	for i := 0; i < len(p) && i < len(q); i++ {
		a, b := p[i], q[i]
		ai, aIsInt := a.(int)
		bi, bIsInt := b.(int)
		switch {
		case aIsInt && bIsInt:
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
		case aIsInt:
			return 1
		case bIsInt:
			return -1
		default:
			if c := strings.Compare(a.(string), b.(string)); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(p) < len(q):
		return -1
	case len(p) > len(q):
		return 1
	}
	return 0
}
