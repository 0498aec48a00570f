package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"elkdrive/internal/config"
	"elkdrive/internal/drive"
	"elkdrive/internal/fileops"
	"elkdrive/internal/logging"
	"elkdrive/internal/midi"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
	"elkdrive/internal/scanner"
	"elkdrive/internal/session"
	"elkdrive/internal/version"
)

// errUsage makes main exit with status 2.
var errUsage = errors.New("usage")

func main() {
	var (
		configPath    string
		portMatch     string
		portPath      string
		deviceID      string
		timeout       time.Duration
		emulate       string
		logLevel      string
		trace         bool
		traceErrors   bool
		metricsListen string
		noColor       bool
		showVersion   bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config json file")
	flag.StringVar(&portMatch, "port", "", "Use the first MIDI port whose name contains this text (default \"digitakt\")")
	flag.StringVar(&portPath, "port-path", "", "Raw MIDI device file, e.g. /dev/snd/midiC1D0")
	flag.StringVar(&deviceID, "device-id", "", "Device id byte, decimal or 0x-prefixed hex")
	flag.DurationVar(&timeout, "timeout", 0, "Per-request timeout (default 5s)")
	flag.StringVar(&emulate, "emulate", "", "Serve requests from this directory instead of a MIDI port")
	flag.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flag.BoolVar(&trace, "trace", false, "Print every request/response exchange to stderr")
	flag.BoolVar(&traceErrors, "trace-errors", false, "Print the exchanges that failed to stderr on exit")
	flag.StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&noColor, "no-color", false, "Disable coloured output")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Println(version.Get().String())
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}
	// Flags override the file.
	if portMatch != "" {
		cfg.Port = portMatch
	}
	if portPath != "" {
		cfg.PortPath = portPath
	}
	if deviceID != "" {
		v, err := strconv.ParseUint(deviceID, 0, 8)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid -device-id:", err)
			os.Exit(2)
		}
		cfg.DeviceID = int(v)
	}
	if timeout > 0 {
		cfg.TimeoutMs = int(timeout / time.Millisecond)
	}
	if emulate != "" {
		cfg.EmulatorRoot = emulate
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if metricsListen != "" {
		cfg.MetricsListen = metricsListen
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid config:", err)
		os.Exit(2)
	}

	if err := logging.Init(cfg.Logging()); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to init logging:", err)
		os.Exit(1)
	}
	defer logging.Sync()
	logging.L().Debug("starting", zap.String("version", version.UserAgent()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pr := newPrinter(os.Stdout, !noColor)
	err = run(ctx, cfg, pr, traceOptions{live: trace, errors: traceErrors}, strings.ToLower(args[0]), args[1:])
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		usage()
		logging.Sync()
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		logging.Sync()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: elkdrive [flags] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  ports                   list raw MIDI ports")
	fmt.Println("  probe                   find the device id the unit answers to")
	fmt.Println("  info                    device name and supported messages")
	fmt.Println("  version                 tool and firmware version")
	fmt.Println("  ls [path]               list one directory")
	fmt.Println("  tree [path]             scan the drive and print it as a tree")
	fmt.Println("  stats                   totals for the whole drive")
	fmt.Println("  dupes                   samples stored more than once")
	fmt.Println("  mkdir <path>")
	fmt.Println("  rename <path> <new-name>")
	fmt.Println("  trash <path>            move an item to /TRASH")
	fmt.Println("  empty-trash")
	fmt.Println("  rm <path>               delete a file")
	fmt.Println("  rmdir <path>            delete an empty directory")
	fmt.Println("  find <hash> <size>      locate a sample by CRC-32 (hex) and size")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func run(ctx context.Context, cfg config.Config, pr *printer, trace traceOptions, cmd string, args []string) error {
	if cmd == "ports" {
		ports, err := midi.ListPorts()
		if err != nil {
			return err
		}
		pr.ports(ports)
		return nil
	}
	if _, ok := commands[cmd]; !ok {
		fmt.Printf("unknown command: %s\n", cmd)
		return errUsage
	}
	if len(args) < commands[cmd] {
		return errUsage
	}
	return withDevice(ctx, cfg, trace, func(ctx context.Context, c *client) error {
		return c.do(ctx, pr, cmd, args)
	})
}

// commands maps each device command to its minimum argument count.
var commands = map[string]int{
	"probe":       0,
	"info":        0,
	"version":     0,
	"ls":          0,
	"tree":        0,
	"stats":       0,
	"dupes":       0,
	"mkdir":       1,
	"rename":      2,
	"trash":       1,
	"empty-trash": 0,
	"rm":          1,
	"rmdir":       1,
	"find":        2,
}

// client bundles the components driving one connected device.
type client struct {
	sess *session.Session
	scan *scanner.Scanner
	ops  *fileops.Executor
	log  *zap.Logger
}

func (c *client) do(ctx context.Context, pr *printer, cmd string, args []string) error {
	pathArg := func(i int) pathutil.Path {
		if i < len(args) {
			return pathutil.Parse(args[i])
		}
		return pathutil.Root
	}

	switch cmd {
	case "probe":
		return c.probe(ctx, pr)
	case "info":
		info, err := c.ops.DeviceInfo(ctx)
		if err != nil {
			return err
		}
		pr.deviceInfo(c.sess.DeviceID(), info)
	case "version":
		v, err := c.ops.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("elkdrive: %s\n", version.Get().String())
		fmt.Printf("firmware: %s (build %s)\n", v.Version, v.Build)
	case "ls":
		p := pathArg(0)
		resp, err := session.Do[proto.DirListResponse](ctx, c.sess, proto.DirListRequest{Path: p.String()})
		if err != nil {
			return err
		}
		pr.listing(drive.FromListing(p, resp.Entries))
	case "tree":
		d, err := c.fullScan(ctx)
		if err != nil {
			return err
		}
		p := pathArg(0)
		e, ok := d.Lookup(p)
		if !ok {
			return fmt.Errorf("%s: %w", p, scanner.ErrNotFound)
		}
		pr.tree(e)
	case "stats":
		d, err := c.fullScan(ctx)
		if err != nil {
			return err
		}
		pr.stats(d)
	case "dupes":
		d, err := c.fullScan(ctx)
		if err != nil {
			return err
		}
		pr.dupes(d.Duplicates())
	case "mkdir":
		if err := c.ops.CreateDirectory(ctx, pathArg(0)); err != nil {
			return err
		}
		fmt.Println("OK")
	case "rename":
		to, err := c.ops.RenameItem(ctx, pathArg(0), args[1])
		if err != nil {
			return err
		}
		fmt.Println(to)
	case "trash":
		to, err := c.ops.MoveToTrash(ctx, pathArg(0))
		if err != nil {
			return err
		}
		fmt.Println(to)
	case "empty-trash":
		d, err := c.fullScan(ctx)
		if err != nil {
			return err
		}
		if _, ok := d.Lookup(pathutil.TrashPath); !ok {
			fmt.Println("trash is empty")
			return nil
		}
		n := len(d.ContentsDepthFirst(pathutil.TrashPath))
		if err := c.ops.EmptyTrash(ctx, d); err != nil {
			return err
		}
		fmt.Printf("deleted %d items\n", n)
	case "rm":
		if err := c.ops.DeleteFile(ctx, pathArg(0)); err != nil {
			return err
		}
		fmt.Println("OK")
	case "rmdir":
		if err := c.ops.DeleteDirectory(ctx, pathArg(0)); err != nil {
			return err
		}
		fmt.Println("OK")
	case "find":
		hash, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(args[0]), "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("hash %q: %w", args[0], err)
		}
		size, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("size %q: %w", args[1], err)
		}
		info, err := c.ops.SampleFileInfo(ctx, uint32(hash), uint32(size))
		if err != nil {
			return err
		}
		if !info.OK {
			return fmt.Errorf("no sample with hash %08x and size %d", hash, size)
		}
		fmt.Println(info.Path)
	}
	return nil
}

func (c *client) fullScan(ctx context.Context) (drive.Drive, error) {
	return c.scan.Scan(ctx)
}

// probe sends a device request on every candidate id and reports the ones
// that answer. The session is left on the first id that answered.
func (c *client) probe(ctx context.Context, pr *printer) error {
	orig := c.sess.DeviceID()
	found := -1
	for _, id := range proto.ProbeDeviceIDs {
		c.sess.SetDeviceID(id)
		info, err := c.ops.DeviceInfo(ctx)
		switch {
		case err == nil:
			pr.deviceInfo(id, info)
			if found < 0 {
				found = int(id)
			}
		case errors.Is(err, session.ErrTimeout):
			c.log.Debug("no answer", zap.Uint8("device_id", id))
		default:
			return err
		}
	}
	if found < 0 {
		c.sess.SetDeviceID(orig)
		return fmt.Errorf("no device answered on ids % X", proto.ProbeDeviceIDs)
	}
	c.sess.SetDeviceID(byte(found))
	return nil
}
