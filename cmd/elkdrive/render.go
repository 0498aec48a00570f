package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"elkdrive/internal/drive"
	"elkdrive/internal/midi"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
)

// maxNameCols truncates long names in tree and listing output.
const maxNameCols = 48

type printer struct {
	w   io.Writer
	out *termenv.Output
}

func newPrinter(w io.Writer, color bool) *printer {
	var opts []termenv.OutputOption
	if !color {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &printer{w: w, out: termenv.NewOutput(w, opts...)}
}

// label is the display name of e: truncated, with a trailing slash for
// directories.
func label(e *drive.Entry) string {
	name := e.Name
	if e.Path.IsRoot() {
		name = "/"
	}
	name = runewidth.Truncate(name, maxNameCols, "…")
	if e.IsDir() && !e.Path.IsRoot() {
		name += "/"
	}
	return name
}

// styled pads the plain label to width columns before colouring it, so
// escape sequences do not upset the alignment.
func (p *printer) styled(e *drive.Entry, width int) string {
	l := label(e)
	pad := ""
	if w := runewidth.StringWidth(l); w < width {
		pad = strings.Repeat(" ", width-w)
	}
	s := p.out.String(l)
	switch {
	case e.IsDir():
		s = s.Foreground(termenv.ANSIBlue).Bold()
	case e.Locked:
		s = s.Foreground(termenv.ANSIRed)
	}
	if _, ok := e.Item.(drive.Unknown); ok {
		s = s.Faint()
	}
	return s.String() + pad
}

func kindLetter(e *drive.Entry) string {
	switch it := e.Item.(type) {
	case drive.Directory:
		return "d"
	case drive.File:
		return "-"
	case drive.Unknown:
		return string(rune(it.Kind))
	}
	return "?"
}

func lockFlag(e *drive.Entry) string {
	if e.Locked {
		return "L"
	}
	return "-"
}

func (p *printer) listing(entries []*drive.Entry) {
	width := 0
	for _, e := range entries {
		width = max(width, runewidth.StringWidth(label(e)))
	}
	for _, e := range entries {
		hash := ""
		if f, ok := e.Item.(drive.File); ok {
			hash = fmt.Sprintf("%08x", f.Hash)
		}
		fmt.Fprintf(p.w, "%s%s %s %10s  %8s\n",
			kindLetter(e), lockFlag(e), p.styled(e, width), humanize.IBytes(e.ItemSize), hash)
	}
	fmt.Fprintf(p.w, "%d entries\n", len(entries))
}

type treeRow struct {
	prefix string
	e      *drive.Entry
}

func (p *printer) tree(root *drive.Entry) {
	rows := []treeRow{{e: root}}
	var visit func(e *drive.Entry, indent string)
	visit = func(e *drive.Entry, indent string) {
		kids := e.Children()
		for i, c := range kids {
			branch, next := "├── ", "│   "
			if i == len(kids)-1 {
				branch, next = "└── ", "    "
			}
			rows = append(rows, treeRow{prefix: indent + branch, e: c})
			visit(c, indent+next)
		}
	}
	visit(root, "")

	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.prefix+label(r.e)))
	}
	for _, r := range rows {
		nameWidth := width - runewidth.StringWidth(r.prefix)
		fmt.Fprintf(p.w, "%s%s  %10s\n", r.prefix, p.styled(r.e, nameWidth), humanize.IBytes(r.e.ItemSize))
	}
}

func (p *printer) stats(d drive.Drive) {
	st := d.Stats()
	fmt.Fprintf(p.w, "files:       %s\n", humanize.Comma(int64(st.Files)))
	fmt.Fprintf(p.w, "directories: %s\n", humanize.Comma(int64(st.Dirs)))
	fmt.Fprintf(p.w, "locked:      %s\n", humanize.Comma(int64(st.Locked)))
	fmt.Fprintf(p.w, "total size:  %s (%s bytes)\n", humanize.IBytes(st.TotalSize), humanize.Comma(int64(st.TotalSize)))
	for _, sub := range []struct {
		label string
		path  pathutil.Path
	}{
		{"factory:", pathutil.FactoryPath},
		{"trash:", pathutil.TrashPath},
	} {
		if _, ok := d.Lookup(sub.path); !ok {
			continue
		}
		s := d.StatsAt(sub.path)
		fmt.Fprintf(p.w, "%-12s %s in %s files\n", sub.label, humanize.IBytes(s.TotalSize), humanize.Comma(int64(s.Files)))
	}
}

func (p *printer) dupes(m map[drive.HashSize][]pathutil.Path) {
	if len(m) == 0 {
		fmt.Fprintln(p.w, "no duplicates")
		return
	}
	var wasted uint64
	for _, k := range drive.SortedKeys(m) {
		paths := m[k]
		wasted += uint64(k.Size) * uint64(len(paths)-1)
		fmt.Fprintf(p.w, "%s  %s × %d\n", k, humanize.IBytes(uint64(k.Size)), len(paths))
		for _, path := range paths {
			fmt.Fprintf(p.w, "    %s\n", path)
		}
	}
	fmt.Fprintf(p.w, "%d groups, %s reclaimable\n", len(m), humanize.IBytes(wasted))
}

func (p *printer) deviceInfo(id byte, info proto.DeviceResponse) {
	var names, other []string
	for _, m := range info.Messages {
		t := proto.Type(m)
		if !t.Known() {
			other = append(other, fmt.Sprintf("0x%02X", m))
			continue
		}
		names = append(names, t.String())
	}
	fmt.Fprintf(p.w, "device_id:  0x%02X\n", id)
	fmt.Fprintf(p.w, "name:       %s\n", p.out.String(info.DeviceName).Bold())
	fmt.Fprintf(p.w, "product_id: %d\n", info.ProductID)
	fmt.Fprintf(p.w, "messages:   %s\n", strings.Join(names, ", "))
	if len(other) > 0 {
		fmt.Fprintf(p.w, "other ids:  %s\n", strings.Join(other, " "))
	}
}

func (p *printer) ports(ports []midi.PortInfo) {
	if len(ports) == 0 {
		fmt.Fprintln(p.w, "no raw MIDI ports found")
		return
	}
	width := 0
	for _, pi := range ports {
		width = max(width, runewidth.StringWidth(pi.Path))
	}
	for _, pi := range ports {
		fmt.Fprintf(p.w, "%s  %s\n", runewidth.FillRight(pi.Path, width), pi.Name)
	}
}
