// Package pathutil implements +Drive paths as ordered name sequences.
//
// A Path never contains empty, "." or ".." segments when it was produced by
// Parse. The empty Path is the drive root.
package pathutil

import (
	"strconv"
	"strings"
)

// Path is an ordered sequence of name segments. The zero value is the root.
type Path []string

// Well-known top-level directories on the +Drive.
var (
	Root        = Path{}
	TrashPath   = Path{"TRASH"}
	FactoryPath = Path{"FACTORY"}
)

// Parse converts a '/'-separated string into a Path.
// "" and "/" both denote the root; empty, "." and ".." segments are dropped.
func Parse(s string) Path {
	if s == "" || s == "/" {
		return Path{}
	}
	segs := strings.Split(strings.TrimPrefix(s, "/"), "/")
	out := make(Path, 0, len(segs))
	for _, seg := range segs {
		switch seg {
		case "", ".", "..":
			continue
		}
		out = append(out, seg)
	}
	return out
}

// String returns the wire form of p, always starting with '/'.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}

// Base returns the last segment of p, or "" for the root.
func (p Path) Base() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the directory containing p. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1:len(p)-1]
}

// Sub returns a new Path with name appended. p is never modified.
func (p Path) Sub(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Depth is the number of segments in p.
func (p Path) Depth() int { return len(p) }

// IsRoot reports whether p denotes the drive root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// HasPrefix reports whether prefix is an ancestor of p or equal to it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if prefix[i] != p[i] {
			return false
		}
	}
	return true
}

// Equal reports whether p and q have the same segments.
func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

// InTrash reports whether p lies in (or is) the trash directory.
func (p Path) InTrash() bool { return p.HasPrefix(TrashPath) }

// Clone returns a copy of p that shares no storage with it.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// CommonAncestor returns the longest shared leading segments of p and q.
func CommonAncestor(p, q Path) Path {
	n := len(p)
	if len(q) < n {
		n = len(q)
	}
	i := 0
	for i < n && p[i] == q[i] {
		i++
	}
	return p[:i].Clone()
}

// UniqueName returns base if it is not in existing, otherwise the first
// "base N" (N = 1, 2, ...) that is not.
func UniqueName(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; ; n++ {
		cand := base + " " + strconv.Itoa(n)
		if _, ok := taken[cand]; !ok {
			return cand
		}
	}
}
