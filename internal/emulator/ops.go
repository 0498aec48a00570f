package emulator

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"elkdrive/internal/fsops"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
)

// resolve maps a wire path onto the served directory.
func (e *Emulator) resolve(wire string, allowMissing bool) (string, pathutil.Path, error) {
	p := pathutil.Parse(wire)
	abs, err := fsops.ToOSPath(e.rootAbs, p)
	if err != nil {
		return "", nil, err
	}
	if err := fsops.LstatNoSymlink(e.rootAbs, abs, allowMissing); err != nil {
		return "", nil, err
	}
	return abs, p, nil
}

func (e *Emulator) opDirList(req proto.DirListRequest) (proto.Message, string) {
	resp := proto.DirListResponse{Entries: []proto.DirEntry{}}
	abs, _, err := e.resolve(req.Path, false)
	if err != nil {
		return resp, err.Error()
	}
	ents, err := os.ReadDir(abs)
	if err != nil {
		return resp, err.Error()
	}
	for _, de := range ents {
		if de.Type()&fs.ModeSymlink != 0 {
			continue
		}
		child := filepath.Join(abs, de.Name())
		st, err := fsops.Stat(child)
		if err != nil || !st.Exists {
			continue
		}
		ent := proto.DirEntry{Name: de.Name(), Locked: st.ReadOnly}
		if st.IsDir {
			ent.Kind = proto.KindDirectory
		} else {
			ent.Kind = proto.KindFile
			ent.Size = clampU32(st.Size)
			sum, err := fsops.CRC32File(child)
			if err != nil {
				continue
			}
			ent.Hash = sum
		}
		resp.Entries = append(resp.Entries, ent)
	}
	return resp, ""
}

func (e *Emulator) opDirCreate(req proto.DirCreateRequest) (proto.Message, string) {
	abs, p, err := e.resolve(req.Path, true)
	if err != nil {
		return proto.DirCreateResponse{OK: false}, err.Error()
	}
	if p.IsRoot() {
		return proto.DirCreateResponse{OK: false}, "exists"
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		return proto.DirCreateResponse{OK: false}, err.Error()
	}
	return proto.DirCreateResponse{OK: true}, ""
}

func (e *Emulator) opDirDelete(req proto.DirDeleteRequest) (proto.Message, string) {
	abs, p, err := e.resolve(req.Path, false)
	if err != nil {
		return proto.DirDeleteResponse{OK: false}, err.Error()
	}
	if p.IsRoot() {
		return proto.DirDeleteResponse{OK: false}, "cannot remove root"
	}
	st, err := fsops.Stat(abs)
	if err != nil || !st.Exists || !st.IsDir {
		return proto.DirDeleteResponse{OK: false}, "not a directory"
	}
	empty, err := fsops.DirEmpty(abs)
	if err != nil || !empty {
		return proto.DirDeleteResponse{OK: false}, "directory not empty"
	}
	if err := os.Remove(abs); err != nil {
		return proto.DirDeleteResponse{OK: false}, err.Error()
	}
	return proto.DirDeleteResponse{OK: true}, ""
}

func (e *Emulator) opFileDelete(req proto.FileDeleteRequest) (proto.Message, string) {
	abs, _, err := e.resolve(req.Path, false)
	if err != nil {
		return proto.FileDeleteResponse{OK: false}, err.Error()
	}
	st, err := fsops.Stat(abs)
	if err != nil || !st.Exists || st.IsDir {
		return proto.FileDeleteResponse{OK: false}, "not a file"
	}
	if st.ReadOnly {
		return proto.FileDeleteResponse{OK: false}, "locked"
	}
	if err := os.Remove(abs); err != nil {
		return proto.FileDeleteResponse{OK: false}, err.Error()
	}
	return proto.FileDeleteResponse{OK: true}, ""
}

func (e *Emulator) opRename(req proto.ItemRenameRequest) (proto.Message, string) {
	from, fp, err := e.resolve(req.From, false)
	if err != nil {
		return proto.ItemRenameResponse{OK: false}, err.Error()
	}
	to, tp, err := e.resolve(req.To, true)
	if err != nil {
		return proto.ItemRenameResponse{OK: false}, err.Error()
	}
	if fp.IsRoot() || tp.IsRoot() || tp.HasPrefix(fp) {
		return proto.ItemRenameResponse{OK: false}, "invalid rename"
	}
	src, err := fsops.Stat(from)
	if err != nil || !src.Exists {
		return proto.ItemRenameResponse{OK: false}, "not found"
	}
	if src.ReadOnly {
		return proto.ItemRenameResponse{OK: false}, "locked"
	}
	if dst, err := fsops.Stat(to); err != nil || dst.Exists {
		return proto.ItemRenameResponse{OK: false}, "destination exists"
	}
	if parent, err := fsops.Stat(filepath.Dir(to)); err != nil || !parent.IsDir {
		return proto.ItemRenameResponse{OK: false}, "destination parent missing"
	}
	if err := os.Rename(from, to); err != nil {
		return proto.ItemRenameResponse{OK: false}, err.Error()
	}
	return proto.ItemRenameResponse{OK: true}, ""
}

var errFound = errors.New("found")

func (e *Emulator) opSampleFileInfo(req proto.SampleFileInfoRequest) (proto.Message, string) {
	var hit string
	err := filepath.WalkDir(e.rootAbs, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil || clampU32(uint64(info.Size())) != req.Size {
			return nil
		}
		sum, err := fsops.CRC32File(p)
		if err != nil || sum != req.Hash {
			return nil
		}
		hit = p
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return proto.SampleFileInfoResponse{OK: false}, err.Error()
	}
	if hit == "" {
		return proto.SampleFileInfoResponse{OK: false}, "no match"
	}
	rel, err := filepath.Rel(e.rootAbs, hit)
	if err != nil {
		return proto.SampleFileInfoResponse{OK: false}, err.Error()
	}
	return proto.SampleFileInfoResponse{
		OK:   true,
		Size: req.Size,
		Hash: req.Hash,
		Path: pathutil.Parse(filepath.ToSlash(rel)).String(),
	}, ""
}

func (e *Emulator) allocFD() uint32 {
	e.nextFD++
	if e.nextFD == 0 {
		e.nextFD = 1
	}
	return e.nextFD
}

func (e *Emulator) opReadOpen(req proto.FileReadOpenRequest) (proto.Message, string) {
	abs, _, err := e.resolve(req.Path, false)
	if err != nil {
		return proto.FileReadOpenResponse{OK: false}, err.Error()
	}
	st, err := fsops.Stat(abs)
	if err != nil || !st.Exists || st.IsDir {
		return proto.FileReadOpenResponse{OK: false}, "not a file"
	}
	f, err := os.Open(abs)
	if err != nil {
		return proto.FileReadOpenResponse{OK: false}, err.Error()
	}
	e.mu.Lock()
	fd := e.allocFD()
	e.reads[fd] = &readHandle{f: f, size: clampU32(st.Size)}
	e.mu.Unlock()
	return proto.FileReadOpenResponse{OK: true, FD: fd, TotalLen: clampU32(st.Size)}, ""
}

func (e *Emulator) opRead(req proto.FileReadRequest) (proto.Message, string) {
	e.mu.Lock()
	h := e.reads[req.FD]
	e.mu.Unlock()
	fail := proto.FileReadResponse{OK: false, FD: req.FD, ChunkStart: req.ChunkStart, Data: []byte{}}
	if h == nil {
		return fail, "bad fd"
	}
	n := req.ChunkLen
	if n > proto.ChunkSize {
		n = proto.ChunkSize
	}
	buf := make([]byte, n)
	got, err := h.f.ReadAt(buf, int64(req.ChunkStart))
	if err != nil && !errors.Is(err, io.EOF) {
		return fail, err.Error()
	}
	return proto.FileReadResponse{
		OK:         true,
		FD:         req.FD,
		ChunkLen:   uint32(got),
		ChunkStart: req.ChunkStart,
		ChunkEnd:   req.ChunkStart + uint32(got),
		Data:       buf[:got],
	}, ""
}

func (e *Emulator) opReadClose(req proto.FileReadCloseRequest) (proto.Message, string) {
	e.mu.Lock()
	h := e.reads[req.FD]
	delete(e.reads, req.FD)
	e.mu.Unlock()
	if h == nil {
		return proto.FileReadCloseResponse{FD: req.FD}, "bad fd"
	}
	_ = h.f.Close()
	return proto.FileReadCloseResponse{FD: req.FD, TotalLen: h.size}, ""
}

func (e *Emulator) opWriteOpen(req proto.FileWriteOpenRequest) (proto.Message, string) {
	abs, p, err := e.resolve(req.Path, true)
	if err != nil {
		return proto.FileWriteOpenResponse{OK: false}, err.Error()
	}
	if p.IsRoot() {
		return proto.FileWriteOpenResponse{OK: false}, "is a directory"
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return proto.FileWriteOpenResponse{OK: false}, err.Error()
	}
	e.mu.Lock()
	fd := e.allocFD()
	e.writes[fd] = &writeHandle{f: f, total: req.TotalLen}
	e.mu.Unlock()
	return proto.FileWriteOpenResponse{OK: true, FD: fd}, ""
}

func (e *Emulator) opWrite(req proto.FileWriteRequest) (proto.Message, string) {
	e.mu.Lock()
	h := e.writes[req.FD]
	e.mu.Unlock()
	if h == nil {
		return proto.FileWriteResponse{OK: false}, "bad fd"
	}
	if uint64(req.ChunkStart)+uint64(len(req.Data)) > uint64(h.total) {
		return proto.FileWriteResponse{OK: false}, "write past declared length"
	}
	n, err := h.f.WriteAt(req.Data, int64(req.ChunkStart))
	if err != nil {
		return proto.FileWriteResponse{OK: false, WrittenLen: uint32(n)}, err.Error()
	}
	return proto.FileWriteResponse{OK: true, WrittenLen: uint32(n)}, ""
}

func (e *Emulator) opWriteClose(req proto.FileWriteCloseRequest) (proto.Message, string) {
	e.mu.Lock()
	h := e.writes[req.FD]
	delete(e.writes, req.FD)
	e.mu.Unlock()
	if h == nil {
		return proto.FileWriteCloseResponse{OK: false, FD: req.FD}, "bad fd"
	}
	fi, statErr := h.f.Stat()
	closeErr := h.f.Close()
	if statErr != nil || closeErr != nil {
		return proto.FileWriteCloseResponse{OK: false, FD: req.FD}, "close failed"
	}
	size := clampU32(uint64(fi.Size()))
	return proto.FileWriteCloseResponse{OK: size == req.TotalLen, FD: req.FD, TotalLen: size}, ""
}

func clampU32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
