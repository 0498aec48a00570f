package drive

import (
	"errors"
	"fmt"
	"sort"

	"elkdrive/internal/pathutil"
)

// SkipDir returned from a WalkFunc skips the children of the current directory.
var SkipDir = errors.New("skip this directory")

// WalkFunc is called for every entry visited by Walk.
type WalkFunc func(e *Entry) error

// Walk visits the entry at p and everything below it, parents before
// children, children in listing order.
func (d Drive) Walk(p pathutil.Path, fn WalkFunc) error {
	e, ok := d.Lookup(p)
	if !ok {
		return fmt.Errorf("%s: not found", p)
	}
	err := walk(e, fn)
	if err == SkipDir {
		return nil
	}
	return err
}

func walk(e *Entry, fn WalkFunc) error {
	if err := fn(e); err != nil {
		return err
	}
	for _, c := range e.Children() {
		err := walk(c, fn)
		if err == SkipDir {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ContentsDepthFirst lists everything below p, every directory after all of
// its contents. The entry at p itself is not included.
func (d Drive) ContentsDepthFirst(p pathutil.Path) []*Entry {
	e, ok := d.Lookup(p)
	if !ok {
		return nil
	}
	var out []*Entry
	var visit func(*Entry)
	visit = func(e *Entry) {
		for _, c := range e.Children() {
			visit(c)
		}
		out = append(out, e)
	}
	for _, c := range e.Children() {
		visit(c)
	}
	return out
}

// Stats summarises a drive. Dirs includes the root.
type Stats struct {
	TotalSize uint64
	Files     int
	Dirs      int
	Locked    int
}

func (d Drive) Stats() Stats {
	return d.StatsAt(pathutil.Root)
}

// StatsAt summarises the subtree at p, counting p itself. It is zero when p
// is not in the drive.
func (d Drive) StatsAt(p pathutil.Path) Stats {
	var s Stats
	e, ok := d.Lookup(p)
	if !ok {
		return s
	}
	_ = walk(e, func(e *Entry) error {
		switch it := e.Item.(type) {
		case File:
			s.TotalSize += uint64(it.Size)
			s.Files++
		case Directory:
			s.Dirs++
		default:
			return nil
		}
		if e.Locked {
			s.Locked++
		}
		return nil
	})
	return s
}

// HashSize identifies sample content independently of its path.
type HashSize struct {
	Hash uint32
	Size uint32
}

func (k HashSize) String() string {
	return fmt.Sprintf("%08x:%d", k.Hash, k.Size)
}

// FilesByHash maps every (hash, size) to the paths of the files carrying it,
// in walk order.
func (d Drive) FilesByHash() map[HashSize][]pathutil.Path {
	out := make(map[HashSize][]pathutil.Path)
	if d.Root == nil {
		return out
	}
	_ = walk(d.Root, func(e *Entry) error {
		if f, ok := e.Item.(File); ok {
			k := HashSize{Hash: f.Hash, Size: f.Size}
			out[k] = append(out[k], e.Path)
		}
		return nil
	})
	return out
}

// Duplicates returns the FilesByHash groups holding more than one path.
func (d Drive) Duplicates() map[HashSize][]pathutil.Path {
	out := make(map[HashSize][]pathutil.Path)
	for k, paths := range d.FilesByHash() {
		if len(paths) > 1 {
			out[k] = paths
		}
	}
	return out
}

// SortedKeys orders the keys of a FilesByHash result by size, largest first,
// then by hash.
func SortedKeys(m map[HashSize][]pathutil.Path) []HashSize {
	keys := make([]HashSize, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Size != keys[j].Size {
			return keys[i].Size > keys[j].Size
		}
		return keys[i].Hash < keys[j].Hash
	})
	return keys
}
