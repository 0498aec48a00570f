package midi

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultMatch selects the first port whose name contains it.
const DefaultMatch = "digitakt"

// ErrNoPort means no port name matched.
var ErrNoPort = errors.New("no matching midi port")

// PortInfo describes a raw MIDI device node.
type PortInfo struct {
	Path   string
	Card   int
	Device int
	Name   string
}

func (p PortInfo) String() string {
	return fmt.Sprintf("%s (%s)", p.Path, p.Name)
}

var (
	nodeRe = regexp.MustCompile(`^midiC(\d+)D(\d+)$`)
	cardRe = regexp.MustCompile(`^\s*(\d+)\s+\[([^\]]*)\]:\s*(.*)$`)
)

// ListPorts enumerates /dev/snd raw MIDI nodes with names from /proc/asound.
func ListPorts() ([]PortInfo, error) {
	return ListPortsIn("/dev/snd", "/proc/asound")
}

// ListPortsIn is ListPorts over explicit device and proc directories.
func ListPortsIn(devDir, procDir string) ([]PortInfo, error) {
	ents, err := os.ReadDir(devDir)
	if err != nil {
		return nil, fmt.Errorf("list midi ports: %w", err)
	}
	names := cardNames(filepath.Join(procDir, "cards"))

	var out []PortInfo
	for _, e := range ents {
		m := nodeRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		card, _ := strconv.Atoi(m[1])
		dev, _ := strconv.Atoi(m[2])
		name := names[card]
		if name == "" {
			name = readFirstLine(filepath.Join(procDir, fmt.Sprintf("card%d", card), "id"))
		}
		out = append(out, PortInfo{
			Path:   filepath.Join(devDir, e.Name()),
			Card:   card,
			Device: dev,
			Name:   name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Card != out[j].Card {
			return out[i].Card < out[j].Card
		}
		return out[i].Device < out[j].Device
	})
	return out, nil
}

// FindPort returns the first port whose name contains match, ignoring case.
// An empty match means DefaultMatch.
func FindPort(ports []PortInfo, match string) (PortInfo, error) {
	if match == "" {
		match = DefaultMatch
	}
	needle := strings.ToLower(match)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return p, nil
		}
	}
	return PortInfo{}, fmt.Errorf("%w: %q", ErrNoPort, match)
}

// cardNames parses /proc/asound/cards:
//
//	1 [Digitakt       ]: USB-Audio - Elektron Digitakt
func cardNames(path string) map[int]string {
	out := make(map[int]string)
	f, err := os.Open(path)
	if err != nil {
		return out
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m := cardRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		name := strings.TrimSpace(m[3])
		if i := strings.Index(name, " - "); i >= 0 {
			name = strings.TrimSpace(name[i+3:])
		}
		if name == "" {
			name = strings.TrimSpace(m[2])
		}
		out[idx] = name
	}
	return out
}

func readFirstLine(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(b), "\n")
	return strings.TrimSpace(line)
}
