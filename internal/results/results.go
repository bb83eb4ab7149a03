// Package results writes the return-parameter file a host module reads after
// a command finishes.
package results

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Format string

const (
	// FormatSlicer is the "name = value" line format of Slicer CLI modules.
	FormatSlicer Format = "slicer"
	FormatTOML   Format = "toml"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatSlicer:
		return FormatSlicer, nil
	case FormatTOML:
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("results: unknown format %q", raw)
	}
}

// Record is the outcome of one command as the host sees it.
type Record struct {
	Reply     string `toml:"reply"`
	Completed bool   `toml:"completed"`
}

// New builds a record with the reply flattened to one line.
func New(reply string, completed bool) Record {
	return Record{Reply: Flatten(reply), Completed: completed}
}

// Flatten replaces CR and LF with spaces. Line breaks would end the value early.
func Flatten(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

func (r Record) Write(w io.Writer, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(r)
	case FormatSlicer, "":
		bw := bufio.NewWriter(w)
		fmt.Fprintf(bw, "reply = %s\n", r.Reply)
		fmt.Fprintf(bw, "completed = %t\n", r.Completed)
		return bw.Flush()
	default:
		return fmt.Errorf("results: unknown format %q", format)
	}
}

// WriteFile replaces path with the record. An empty path is a no-op.
func (r Record) WriteFile(path string, format Format) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("results: create %s: %w", path, err)
	}
	if err := r.Write(f, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("results: write %s: %w", path, err)
	}
	return f.Close()
}
