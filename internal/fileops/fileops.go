// Package fileops performs +Drive file operations as sequences of single
// request/response exchanges.
package fileops

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"elkdrive/internal/drive"
	"elkdrive/internal/logging"
	"elkdrive/internal/metrics"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
	"elkdrive/internal/session"
)

// RejectedError reports a response with ok=false.
type RejectedError struct {
	Op   string
	Path pathutil.Path
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("device rejected %s %s", e.Op, e.Path)
}

type Options struct {
	Logger *zap.Logger
}

// Executor runs file operations through a session.
type Executor struct {
	req session.Requester
	log *zap.Logger
}

func New(r session.Requester, opts Options) *Executor {
	return &Executor{req: r, log: logging.OrNop(opts.Logger)}
}

// CreateDirectory creates the directory at p.
func (x *Executor) CreateDirectory(ctx context.Context, p pathutil.Path) (err error) {
	defer x.done("mkdir", p, &err)
	if err := x.ready(); err != nil {
		return err
	}
	resp, err := session.Do[proto.DirCreateResponse](ctx, x.req, proto.DirCreateRequest{Path: p.String()})
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	if !resp.OK {
		return &RejectedError{Op: "mkdir", Path: p}
	}
	return nil
}

// RenameItem renames the entry at from within its directory and returns the
// new path.
func (x *Executor) RenameItem(ctx context.Context, from pathutil.Path, newName string) (to pathutil.Path, err error) {
	defer x.done("rename", from, &err)
	if err := x.ready(); err != nil {
		return nil, err
	}
	if from.IsRoot() {
		return nil, &pathutil.NameError{Name: "/", Reason: "cannot rename the root"}
	}
	if err := pathutil.ValidName(newName); err != nil {
		return nil, err
	}
	to = from.Parent().Sub(newName)
	if err := x.rename(ctx, from, to); err != nil {
		return nil, err
	}
	return to, nil
}

// MoveToTrash moves the entry at p into /TRASH, creating it if needed. An
// entry of the same name already in the trash is not handled.
func (x *Executor) MoveToTrash(ctx context.Context, p pathutil.Path) (to pathutil.Path, err error) {
	defer x.done("trash", p, &err)
	if err := x.ready(); err != nil {
		return nil, err
	}
	if p.IsRoot() || p.Equal(pathutil.TrashPath) {
		return nil, &pathutil.NameError{Name: p.String(), Reason: "cannot move to trash"}
	}
	if err := x.CreateDirectory(ctx, pathutil.TrashPath); err != nil {
		var rej *RejectedError
		if !errors.As(err, &rej) {
			return nil, err
		}
		// Only a rejection (trash already exists) is tolerated; timeouts and mismatches abort.
	}
	to = pathutil.TrashPath.Sub(p.Base())
	if err := x.rename(ctx, p, to); err != nil {
		return nil, err
	}
	return to, nil
}

// EmptyTrash deletes everything below /TRASH as recorded in d, each
// directory after its contents. It stops at the first failure.
func (x *Executor) EmptyTrash(ctx context.Context, d drive.Drive) (err error) {
	defer x.done("empty-trash", pathutil.TrashPath, &err)
	if err := x.ready(); err != nil {
		return err
	}
	entries := d.ContentsDepthFirst(pathutil.TrashPath)
	x.log.Info("emptying trash", zap.Int("entries", len(entries)))
	for _, e := range entries {
		switch e.Item.(type) {
		case drive.Directory:
			err = x.DeleteDirectory(ctx, e.Path)
		case drive.File:
			err = x.DeleteFile(ctx, e.Path)
		default:
			x.log.Debug("skipping entry of unknown type", zap.Stringer("path", e.Path))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteFile deletes the file at p.
func (x *Executor) DeleteFile(ctx context.Context, p pathutil.Path) (err error) {
	defer x.done("rm", p, &err)
	if err := x.ready(); err != nil {
		return err
	}
	resp, err := session.Do[proto.FileDeleteResponse](ctx, x.req, proto.FileDeleteRequest{Path: p.String()})
	if err != nil {
		return fmt.Errorf("rm %s: %w", p, err)
	}
	if !resp.OK {
		return &RejectedError{Op: "rm", Path: p}
	}
	return nil
}

// DeleteDirectory deletes the directory at p. The device refuses non-empty directories.
func (x *Executor) DeleteDirectory(ctx context.Context, p pathutil.Path) (err error) {
	defer x.done("rmdir", p, &err)
	if err := x.ready(); err != nil {
		return err
	}
	resp, err := session.Do[proto.DirDeleteResponse](ctx, x.req, proto.DirDeleteRequest{Path: p.String()})
	if err != nil {
		return fmt.Errorf("rmdir %s: %w", p, err)
	}
	if !resp.OK {
		return &RejectedError{Op: "rmdir", Path: p}
	}
	return nil
}

// DeviceInfo asks the device for its product id, name and supported messages.
func (x *Executor) DeviceInfo(ctx context.Context) (proto.DeviceResponse, error) {
	if err := x.ready(); err != nil {
		return proto.DeviceResponse{}, err
	}
	resp, err := session.Do[proto.DeviceResponse](ctx, x.req, proto.DeviceRequest{})
	if err != nil {
		return proto.DeviceResponse{}, fmt.Errorf("device info: %w", err)
	}
	return resp, nil
}

// Version asks the device for its firmware version.
func (x *Executor) Version(ctx context.Context) (proto.VersionResponse, error) {
	if err := x.ready(); err != nil {
		return proto.VersionResponse{}, err
	}
	resp, err := session.Do[proto.VersionResponse](ctx, x.req, proto.VersionRequest{})
	if err != nil {
		return proto.VersionResponse{}, fmt.Errorf("version: %w", err)
	}
	return resp, nil
}

// SampleFileInfo resolves a (hash, size) pair to the path of a sample on the drive.
func (x *Executor) SampleFileInfo(ctx context.Context, hash, size uint32) (proto.SampleFileInfoResponse, error) {
	if err := x.ready(); err != nil {
		return proto.SampleFileInfoResponse{}, err
	}
	resp, err := session.Do[proto.SampleFileInfoResponse](ctx, x.req, proto.SampleFileInfoRequest{Hash: hash, Size: size})
	if err != nil {
		return proto.SampleFileInfoResponse{}, fmt.Errorf("sample info %08x/%d: %w", hash, size, err)
	}
	return resp, nil
}

func (x *Executor) rename(ctx context.Context, from, to pathutil.Path) error {
	resp, err := session.Do[proto.ItemRenameResponse](ctx, x.req, proto.ItemRenameRequest{From: from.String(), To: to.String()})
	if err != nil {
		return fmt.Errorf("rename %s: %w", from, err)
	}
	if !resp.OK {
		return &RejectedError{Op: "rename", Path: from}
	}
	return nil
}

func (x *Executor) ready() error {
	if !x.req.Connected() {
		return session.ErrTransportUnavailable
	}
	return nil
}

func (x *Executor) done(op string, p pathutil.Path, errp *error) {
	err := *errp
	outcome := outcomeOf(err)
	metrics.RecordFileOp(op, outcome)
	if err != nil {
		x.log.Warn("operation failed", zap.String("op", op), zap.Stringer("path", p), zap.Error(err))
		return
	}
	x.log.Debug("operation done", zap.String("op", op), zap.Stringer("path", p))
}

func outcomeOf(err error) string {
	var (
		rej *RejectedError
		me  *proto.MismatchError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &rej):
		return metrics.OutcomeRejected
	case errors.Is(err, pathutil.ErrInvalidName):
		return metrics.OutcomeInvalid
	case errors.As(err, &me):
		return metrics.OutcomeMismatch
	case errors.Is(err, session.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, session.ErrTransportUnavailable):
		return metrics.OutcomeTransport
	}
	return metrics.OutcomeError
}
