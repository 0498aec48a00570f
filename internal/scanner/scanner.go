// Package scanner builds a drive.Drive by listing directories breadth-first
// through a session.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"elkdrive/internal/drive"
	"elkdrive/internal/logging"
	"elkdrive/internal/metrics"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
	"elkdrive/internal/session"
)

var (
	ErrScanInProgress = errors.New("scan in progress")
	ErrNotFound       = errors.New("no such directory in snapshot")
)

// Progress describes a running scan.
type Progress struct {
	Visited int
	Queued  int
	Path    pathutil.Path // directory just listed
}

// Fraction is Visited / (Visited + Queued), 1 when nothing is left.
func (p Progress) Fraction() float64 {
	total := p.Visited + p.Queued
	if total == 0 {
		return 1
	}
	return float64(p.Visited) / float64(total)
}

type Options struct {
	Logger     *zap.Logger
	OnProgress func(Progress)
}

// Scanner owns the published snapshot of one device's drive.
type Scanner struct {
	req        session.Requester
	log        *zap.Logger
	onProgress func(Progress)

	mu       sync.Mutex
	snapshot drive.Drive
	busy     bool
}

func New(r session.Requester, opts Options) *Scanner {
	return &Scanner{
		req:        r,
		log:        logging.OrNop(opts.Logger),
		onProgress: opts.OnProgress,
		snapshot:   drive.Empty(),
	}
}

// Drive returns the current snapshot.
func (s *Scanner) Drive() drive.Drive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// EntryAt looks p up in the current snapshot.
func (s *Scanner) EntryAt(p pathutil.Path) (*drive.Entry, bool) {
	return s.Drive().Lookup(p)
}

// Scan enumerates the whole drive and publishes the result once every
// directory has been listed. On failure the snapshot is left as it was.
func (s *Scanner) Scan(ctx context.Context) (drive.Drive, error) {
	if err := s.begin(); err != nil {
		return drive.Drive{}, err
	}
	defer s.end()

	start := time.Now()
	d, err := s.walk(ctx, drive.Empty(), pathutil.Root)
	if err != nil {
		metrics.RecordScan("full", outcomeOf(err), time.Since(start))
		s.log.Warn("scan failed", zap.Error(err))
		return drive.Drive{}, err
	}
	s.publish(d)
	metrics.RecordScan("full", metrics.OutcomeOK, time.Since(start))
	st := d.Stats()
	s.log.Info("scan complete",
		zap.Int("dirs", st.Dirs),
		zap.Int("files", st.Files),
		zap.Uint64("bytes", st.TotalSize),
		zap.Duration("elapsed", time.Since(start)),
	)
	return d, nil
}

// Refresh lists the directory at p again and splices the result into the
// snapshot. Subdirectories that were already known keep their children.
func (s *Scanner) Refresh(ctx context.Context, p pathutil.Path) (drive.Drive, error) {
	if err := s.begin(); err != nil {
		return drive.Drive{}, err
	}
	defer s.end()

	start := time.Now()
	base := s.Drive()
	if e, ok := base.Lookup(p); !ok || !e.IsDir() {
		return drive.Drive{}, fmt.Errorf("refresh %s: %w", p, ErrNotFound)
	}
	entries, err := s.list(ctx, p)
	if err != nil {
		metrics.RecordScan("refresh", outcomeOf(err), time.Since(start))
		return drive.Drive{}, err
	}
	d, ok := base.Splice(p, entries)
	if !ok {
		return drive.Drive{}, fmt.Errorf("refresh %s: %w", p, ErrNotFound)
	}
	s.publish(d)
	metrics.RecordScan("refresh", metrics.OutcomeOK, time.Since(start))
	s.log.Debug("refreshed", zap.Stringer("path", p), zap.Int("entries", len(entries)))
	return d, nil
}

// Rescan enumerates the subtree at p breadth-first and replaces it in the snapshot.
func (s *Scanner) Rescan(ctx context.Context, p pathutil.Path) (drive.Drive, error) {
	if err := s.begin(); err != nil {
		return drive.Drive{}, err
	}
	defer s.end()

	start := time.Now()
	base := s.Drive()
	if e, ok := base.Lookup(p); !ok || !e.IsDir() {
		return drive.Drive{}, fmt.Errorf("rescan %s: %w", p, ErrNotFound)
	}
	d, err := s.walk(ctx, base, p)
	if err != nil {
		metrics.RecordScan("rescan", outcomeOf(err), time.Since(start))
		return drive.Drive{}, err
	}
	s.publish(d)
	metrics.RecordScan("rescan", metrics.OutcomeOK, time.Since(start))
	return d, nil
}

func (s *Scanner) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrScanInProgress
	}
	s.busy = true
	return nil
}

func (s *Scanner) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Scanner) publish(d drive.Drive) {
	st := d.Stats()
	metrics.SetDriveSize(st.Files+st.Dirs, st.TotalSize)
	s.mu.Lock()
	s.snapshot = d
	s.mu.Unlock()
}

// walk lists from and every directory below it, merging each listing into d.
func (s *Scanner) walk(ctx context.Context, d drive.Drive, from pathutil.Path) (drive.Drive, error) {
	queue := []pathutil.Path{from}
	visited := make(map[string]struct{})

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return drive.Drive{}, err
		}
		p := queue[0]
		queue = queue[1:]
		key := p.String()
		if _, ok := visited[key]; ok {
			continue
		}
		visited[key] = struct{}{}

		entries, err := s.list(ctx, p)
		if err != nil {
			return drive.Drive{}, err
		}
		next, ok := d.Merge(p, entries)
		if !ok {
			return drive.Drive{}, fmt.Errorf("merge %s: %w", p, ErrNotFound)
		}
		d = next
		for _, e := range entries {
			if e.IsDir() {
				queue = append(queue, e.Path)
			}
		}

		if s.onProgress != nil {
			s.onProgress(Progress{Visited: len(visited), Queued: len(queue), Path: p})
		}
	}
	return d, nil
}

func (s *Scanner) list(ctx context.Context, p pathutil.Path) ([]*drive.Entry, error) {
	resp, err := session.Do[proto.DirListResponse](ctx, s.req, proto.DirListRequest{Path: p.String()})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	return drive.FromListing(p, resp.Entries), nil
}

func outcomeOf(err error) string {
	var me *proto.MismatchError
	switch {
	case errors.Is(err, session.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.As(err, &me):
		return metrics.OutcomeMismatch
	case errors.Is(err, session.ErrTransportUnavailable):
		return metrics.OutcomeTransport
	}
	return metrics.OutcomeError
}
