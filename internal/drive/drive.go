// Package drive models the +Drive file tree as an immutable value. Every
// update returns a new Drive that shares unchanged subtrees with the old one.
package drive

import (
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
)

// Item is what an Entry holds: a Directory, a File or Unknown.
type Item interface {
	isItem()
}

type Directory struct {
	Children []*Entry
}

type File struct {
	Size uint32
	Hash uint32
}

// Unknown is an entry whose type byte was neither file nor directory.
type Unknown struct {
	Kind proto.EntryKind
}

func (Directory) isItem() {}
func (File) isItem()      {}
func (Unknown) isItem()   {}

// Entry is one node of the tree. Entries reachable from a Drive must not be
// modified.
type Entry struct {
	Name   string
	Path   pathutil.Path
	Locked bool
	Item   Item
	// ItemSize is the file size, or the sum of the children for a directory.
	ItemSize uint64
}

func (e *Entry) IsDir() bool {
	_, ok := e.Item.(Directory)
	return ok
}

// Children returns the entries of a directory, nil for anything else.
func (e *Entry) Children() []*Entry {
	if d, ok := e.Item.(Directory); ok {
		return d.Children
	}
	return nil
}

// Child returns the child called name.
func (e *Entry) Child(name string) (*Entry, bool) {
	for _, c := range e.Children() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Drive is a snapshot of the whole tree. Root is always a directory.
type Drive struct {
	Root *Entry
}

// Empty returns a drive with an empty root directory.
func Empty() Drive {
	return Drive{Root: &Entry{
		Name: "/",
		Path: pathutil.Root,
		Item: Directory{Children: []*Entry{}},
	}}
}

// IsEmpty reports whether the root has no children.
func (d Drive) IsEmpty() bool {
	return d.Root == nil || len(d.Root.Children()) == 0
}

// Lookup walks p one name at a time. It fails when a segment is missing or
// an intermediate entry is not a directory.
func (d Drive) Lookup(p pathutil.Path) (*Entry, bool) {
	if d.Root == nil {
		return nil, false
	}
	cur := d.Root
	for _, name := range p {
		if !cur.IsDir() {
			return nil, false
		}
		next, ok := cur.Child(name)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Merge replaces the children of the directory at p and recomputes ItemSize
// on every directory from p up to the root. children must carry paths below
// p, as FromListing builds them. ok is false, and d is returned unchanged,
// when p does not name a directory.
func (d Drive) Merge(p pathutil.Path, children []*Entry) (Drive, bool) {
	if d.Root == nil {
		d = Empty()
	}
	root, ok := replaceAt(d.Root, p, children)
	if !ok {
		return d, false
	}
	return Drive{Root: root}, true
}

// Splice is Merge for a re-listed directory: fresh subdirectories that were
// already known as directories keep their known children.
func (d Drive) Splice(p pathutil.Path, fresh []*Entry) (Drive, bool) {
	old, ok := d.Lookup(p)
	if !ok || !old.IsDir() {
		return d, false
	}
	out := make([]*Entry, len(fresh))
	for i, e := range fresh {
		out[i] = e
		if !e.IsDir() {
			continue
		}
		prev, ok := old.Child(e.Name)
		if !ok || !prev.IsDir() {
			continue
		}
		kept := *e
		kept.Item = prev.Item
		kept.ItemSize = prev.ItemSize
		out[i] = &kept
	}
	return d.Merge(p, out)
}

func replaceAt(e *Entry, rest pathutil.Path, children []*Entry) (*Entry, bool) {
	dir, ok := e.Item.(Directory)
	if !ok {
		return nil, false
	}
	if len(rest) == 0 {
		ne := *e
		ne.Item = Directory{Children: children}
		ne.ItemSize = sumSizes(children)
		return &ne, true
	}
	idx := -1
	for i, c := range dir.Children {
		if c.Name == rest[0] {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	nc, ok := replaceAt(dir.Children[idx], rest[1:], children)
	if !ok {
		return nil, false
	}
	kids := make([]*Entry, len(dir.Children))
	copy(kids, dir.Children)
	kids[idx] = nc
	ne := *e
	ne.Item = Directory{Children: kids}
	ne.ItemSize = sumSizes(kids)
	return &ne, true
}

func sumSizes(es []*Entry) uint64 {
	var n uint64
	for _, e := range es {
		n += e.ItemSize
	}
	return n
}

// FromListing converts a directory listing of parent into entries. Records
// with a name seen earlier in the same listing are dropped. Directories start
// with no children and size zero.
func FromListing(parent pathutil.Path, records []proto.DirEntry) []*Entry {
	seen := make(map[string]struct{}, len(records))
	out := make([]*Entry, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}

		e := &Entry{
			Name:   r.Name,
			Path:   parent.Sub(r.Name),
			Locked: r.Locked,
		}
		switch {
		case r.Kind.IsDir():
			e.Item = Directory{Children: []*Entry{}}
		case r.Kind == proto.KindFile || r.Kind == 'f':
			e.Item = File{Size: r.Size, Hash: r.Hash}
			e.ItemSize = uint64(r.Size)
		default:
			e.Item = Unknown{Kind: r.Kind}
		}
		out = append(out, e)
	}
	return out
}
