package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"elkdrive/internal/config"
	"elkdrive/internal/emulator"
	"elkdrive/internal/fileops"
	"elkdrive/internal/logging"
	"elkdrive/internal/metrics"
	"elkdrive/internal/midi"
	"elkdrive/internal/scanner"
	"elkdrive/internal/session"
)

// traceOptions selects which exchanges are written to stderr.
type traceOptions struct {
	live   bool // every exchange as it completes
	errors bool // failed exchanges, once the command is done
	out    io.Writer
}

func (t traceOptions) writer() io.Writer {
	if t.out == nil {
		return os.Stderr
	}
	return t.out
}

// withDevice attaches a session to the configured transport, runs fn and
// tears everything down again. The port reader, the optional metrics server
// and fn run in one errgroup; fn returning cancels the others.
func withDevice(ctx context.Context, cfg config.Config, trace traceOptions, fn func(context.Context, *client) error) error {
	log := logging.L()
	sess := session.New(nil, session.Options{
		DeviceID:    byte(cfg.DeviceID),
		Timeout:     cfg.Timeout(),
		HistorySize: cfg.HistorySize,
		Logger:      logging.Named("session"),
	})
	c := &client{
		sess: sess,
		scan: scanner.New(sess, scanner.Options{
			Logger: logging.Named("scanner"),
			OnProgress: func(p scanner.Progress) {
				log.Debug("scan progress",
					zap.Stringer("path", p.Path),
					zap.Int("visited", p.Visited),
					zap.Int("queued", p.Queued),
				)
			},
		}),
		ops: fileops.New(sess, fileops.Options{Logger: logging.Named("fileops")}),
		log: log,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if trace.errors {
		defer func() {
			for _, ex := range sess.History().Filtered(session.Filter{OnlyErrors: true}) {
				fmt.Fprintf(trace.writer(), "%s\n", ex.JSONLine())
			}
		}()
	}
	if trace.live {
		ch, unsubscribe := sess.History().Subscribe()
		defer unsubscribe()
		go func() {
			for ex := range ch {
				fmt.Fprintf(trace.writer(), "%s\n", ex.JSONLine())
			}
		}()
	}

	if cfg.MetricsListen != "" {
		srv := &http.Server{Addr: cfg.MetricsListen, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			log.Info("serving metrics", zap.String("listen", cfg.MetricsListen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}

	if cfg.EmulatorRoot != "" {
		emu, err := emulator.New(cfg.EmulatorRoot, emulator.Options{
			DeviceID: byte(cfg.DeviceID),
			Latency:  cfg.EmulatorLatency(),
			Logger:   logging.Named("emulator"),
		})
		if err != nil {
			return err
		}
		defer emu.Close()
		tr := emu.Transport(sess.HandleFrame)
		defer tr.Close()
		sess.SetTransport(tr)
		log.Info("emulating device", zap.String("root", emu.Root()))
	} else {
		port, err := openPort(cfg)
		if err != nil {
			return err
		}
		sess.SetTransport(port)
		log.Info("connected", zap.String("port", port.Name()))
		g.Go(func() error {
			return port.Run(gctx, sess.HandleFrame)
		})
	}

	g.Go(func() error {
		defer cancel()
		return fn(gctx, c)
	})
	return g.Wait()
}

func openPort(cfg config.Config) (*midi.Port, error) {
	path := cfg.PortPath
	if path == "" {
		ports, err := midi.ListPorts()
		if err != nil {
			return nil, err
		}
		info, err := midi.FindPort(ports, cfg.Port)
		if err != nil {
			return nil, err
		}
		path = info.Path
	}
	return midi.Open(path, logging.Named("midi"))
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
