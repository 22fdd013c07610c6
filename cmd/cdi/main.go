// Command cdi inspects, dumps, and extracts Sega Dreamcast CDI disc images.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-cdi"
	"github.com/ZaparooProject/go-cdi/extract"
	"github.com/ZaparooProject/go-cdi/source"
)

var (
	verbose   = flag.Bool("v", false, "verbose tracing")
	outDir    = flag.String("o", "", "output directory for extraction, dump, or convert")
	dumpSpec  = flag.String("s", "", "dump one track (\"session:track\") or all tracks (\"all\")")
	extractFl = flag.String("e", "", "extract artefacts: any of a (all) i (IP.BIN) l (boot logo) f (filesystem)")
	convert   = flag.Bool("c", false, "convert: repackage the resolved container as a plain .cdi copy at -o")
	format    = flag.String("format", "text", "report rendering: text or json")
	version   = flag.Bool("version", false, "print version and exit")
)

const appVersion = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <path>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inspects, dumps, and extracts Sega Dreamcast CDI disc images.\n")
		fmt.Fprintf(os.Stderr, "<path> may be a bare .cdi, a .zip/.7z/.rar holding one, or a\n")
		fmt.Fprintf(os.Stderr, ".gz/.xz/.br/.lz4/.zst-wrapped .cdi.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("cdi version %s\n", appVersion)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	if err := run(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	ctx := context.Background()
	fs := afero.NewOsFs()

	if *verbose {
		fmt.Fprintf(os.Stderr, "resolving %s\n", path)
	}

	if *convert {
		if *outDir == "" {
			return fmt.Errorf("convert requires -o")
		}
		res, err := source.Resolve(ctx, fs, path, "")
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		defer func() { _ = res.Close() }()
		if err := source.CopyRaw(ctx, res, fs, *outDir); err != nil {
			return fmt.Errorf("convert %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", *outDir)
		return nil
	}

	c, closer, err := source.Open(ctx, fs, path, "")
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = closer.Close() }()

	report := buildReport(ctx, c)

	if *dumpSpec != "" {
		if *outDir == "" {
			return fmt.Errorf("dump (-s) requires -o")
		}
		if err := dumpTracks(ctx, c, fs, *dumpSpec); err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	}

	if *extractFl != "" {
		if *outDir == "" {
			return fmt.Errorf("extract (-e) requires -o")
		}
		kinds, err := extract.ParseKinds(*extractFl)
		if err != nil {
			return fmt.Errorf("extract flags: %w", err)
		}
		ex := extract.New(c, fs, *outDir)
		res, err := ex.All(ctx, kinds)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		report.Extracted = res.Written
		for _, w := range res.Warnings {
			report.Warnings = append(report.Warnings, w.Message)
		}
	}

	return printReport(report)
}

// report is the information rendered at the end of a run, either as JSON or
// as the equivalent plain-text form.
type report struct {
	Sessions  []sessionReport  `json:"sessions"`
	Bootstrap *bootstrapReport `json:"bootstrap,omitempty"`
	Extracted []string         `json:"extracted,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

type sessionReport struct {
	Index  int           `json:"index"`
	Tracks []trackReport `json:"tracks"`
}

type trackReport struct {
	Index      int    `json:"index"`
	Mode       string `json:"mode"`
	SectorSize uint32 `json:"sector_size"`
	BaseLBA    uint32 `json:"base_lba"`
	Sectors    uint32 `json:"sectors"`
}

type bootstrapReport struct {
	Session int    `json:"session"`
	Track   int    `json:"track"`
	Title   string `json:"title"`
}

func buildReport(ctx context.Context, c *cdi.Container) *report {
	r := &report{}
	for _, s := range c.Sessions {
		sr := sessionReport{Index: s.Index}
		for _, t := range s.Tracks {
			sr.Tracks = append(sr.Tracks, trackReport{
				Index:      t.Index,
				Mode:       t.Mode.String(),
				SectorSize: uint32(t.SectorSize),
				BaseLBA:    t.BaseLBA,
				Sectors:    t.Body,
			})
		}
		r.Sessions = append(r.Sessions, sr)
	}

	if b, err := cdi.LocateBootstrap(ctx, c); err == nil {
		r.Bootstrap = &bootstrapReport{Session: b.Session, Track: b.Track, Title: b.Title()}
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("no bootstrap located: %v", err))
	}

	return r
}

func printReport(r *report) error {
	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode JSON report: %w", err)
		}
		return nil
	}

	for _, s := range r.Sessions {
		fmt.Printf("Session %d:\n", s.Index)
		for _, t := range s.Tracks {
			fmt.Printf("  Track %d: %s, %d-byte sectors, base LBA %d, %d sectors\n",
				t.Index, t.Mode, t.SectorSize, t.BaseLBA, t.Sectors)
		}
	}
	if r.Bootstrap != nil {
		fmt.Printf("Bootstrap: session %d track %d, title %q\n", r.Bootstrap.Session, r.Bootstrap.Track, r.Bootstrap.Title)
	}
	for _, f := range r.Extracted {
		fmt.Printf("Extracted: %s\n", f)
	}
	for _, w := range r.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}

// dumpTracks writes raw sector payloads for one track ("session:track") or
// every track ("all") to -o, one file per track named the same way
// extraction names its track outputs.
func dumpTracks(ctx context.Context, c *cdi.Container, fs afero.Fs, spec string) error {
	ex := extract.New(c, fs, *outDir)

	if spec == "all" {
		_, err := ex.All(ctx, extract.Kind{Tracks: true})
		return err
	}

	session, track, err := parseSessionTrack(spec)
	if err != nil {
		return err
	}
	_, err = ex.DumpTrack(ctx, session, track)
	return err
}

func parseSessionTrack(spec string) (int, int, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("dump spec %q: want \"session:track\"", spec)
	}
	session, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("dump spec %q: invalid session: %w", spec, err)
	}
	track, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("dump spec %q: invalid track: %w", spec, err)
	}
	return session, track, nil
}
