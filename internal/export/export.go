// Package export writes boards to and reads boards from files in JSON,
// YAML or TOML. Sentinel columns are never written.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teamboard/teamboard/internal/board"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts a format name or a file extension (".yml" etc).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want json, yaml or toml)", s)
}

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// document is the file layout. TOML has no top-level arrays, so every
// format wraps the boards in a table.
type document struct {
	Boards []*board.Board `json:"boards" yaml:"boards" toml:"boards"`
}

// Encode writes boards to w in the given format.
func Encode(w io.Writer, format Format, boards []*board.Board) error {
	doc := document{Boards: make([]*board.Board, 0, len(boards))}
	for _, b := range boards {
		if b == nil {
			continue
		}
		out := b.Clone()
		out.StripSentinel()
		doc.Boards = append(doc.Boards, out)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return nil
}

// Decode reads boards from r. Each board must pass board.Validate after the
// creator is restored as Manager.
func Decode(r io.Reader, format Format) ([]*board.Board, error) {
	var doc document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	for i, b := range doc.Boards {
		if b == nil {
			return nil, fmt.Errorf("board %d is empty", i)
		}
		b.EnsureCreatorIsManager()
		if b.Columns == nil {
			b.Columns = []board.Column{}
		}
		for c := range b.Columns {
			if b.Columns[c].Cards == nil {
				b.Columns[c].Cards = []board.Card{}
			}
			for k := range b.Columns[c].Cards {
				card := &b.Columns[c].Cards[k]
				if card.Status == "" {
					card.Status = board.StatusPending
				}
			}
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid board %d (%s): %w", i, b.Name, err)
		}
	}
	return doc.Boards, nil
}
