// Package fsops maps drive paths onto a local directory tree without letting
// them escape it.
package fsops

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"elkdrive/internal/pathutil"
)

var (
	ErrSymlinkNotAllowed = errors.New("symlink not allowed")
	ErrEscapesRoot       = errors.New("path escapes root")
)

// ToOSPath converts a drive path into an on-disk path inside root. Segments
// carrying a path separator are rejected and the result must stay below root.
func ToOSPath(rootAbs string, p pathutil.Path) (string, error) {
	cleanRoot := filepath.Clean(rootAbs)
	if p.IsRoot() {
		return cleanRoot, nil
	}
	parts := make([]string, 0, len(p)+1)
	parts = append(parts, cleanRoot)
	for _, seg := range p {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
			return "", fmt.Errorf("%w: segment %q", ErrEscapesRoot, seg)
		}
		parts = append(parts, seg)
	}
	return ensureWithinRoot(cleanRoot, filepath.Join(parts...))
}

func ensureWithinRoot(cleanRoot, p string) (string, error) {
	cleanP := filepath.Clean(p)
	relCheck, err := filepath.Rel(cleanRoot, cleanP)
	if err != nil {
		return "", err
	}
	if relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", ErrEscapesRoot
	}
	return cleanP, nil
}

// LstatNoSymlink walks from root to absPath and rejects any symlink on the way.
// With allowMissingLast the final component may not exist yet.
func LstatNoSymlink(rootAbs, absPath string, allowMissingLast bool) error {
	cleanRoot := filepath.Clean(rootAbs)
	cleanP := filepath.Clean(absPath)
	rel, err := filepath.Rel(cleanRoot, cleanP)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	parts := strings.Split(rel, string(filepath.Separator))
	cur := cleanRoot
	for i, part := range parts {
		if part == "" || part == "." {
			continue
		}
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if err != nil {
			if allowMissingLast && i == len(parts)-1 && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return ErrSymlinkNotAllowed
		}
	}
	return nil
}

type StatInfo struct {
	Exists   bool
	IsDir    bool
	Size     uint64
	ReadOnly bool // no owner write bit
}

func Stat(absPath string) (StatInfo, error) {
	fi, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StatInfo{Exists: false}, nil
		}
		return StatInfo{}, err
	}
	size := uint64(0)
	if !fi.IsDir() {
		size = uint64(fi.Size())
	}
	return StatInfo{
		Exists:   true,
		IsDir:    fi.IsDir(),
		Size:     size,
		ReadOnly: fi.Mode().Perm()&0o200 == 0,
	}, nil
}

// CRC32File returns the IEEE CRC-32 of a file's contents.
func CRC32File(absPath string) (uint32, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// DirEmpty reports whether the directory at absPath has no entries.
func DirEmpty(absPath string) (bool, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
