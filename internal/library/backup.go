package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stoneware/internal/book"
	"stoneware/internal/logging"
)

// Format names a backup encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for unknown backup formats.
var ErrUnsupportedFormat = errors.New("unsupported backup format")

// ParseFormat accepts json, yaml and yml.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

const backupVersion = 1

// Backup is the export document.
type Backup struct {
	Version    int                          `json:"version" yaml:"version"`
	ExportedAt time.Time                    `json:"exportedAt" yaml:"exportedAt"`
	Shelves    map[book.Shelf][]book.Record `json:"shelves" yaml:"shelves"`
}

// ImportReport summarizes an import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

// Export writes every shelf to w.
func (s *Service) Export(ctx context.Context, w io.Writer, format Format) error {
	doc := Backup{
		Version:    backupVersion,
		ExportedAt: s.now().UTC(),
		Shelves:    s.shelves.All(ctx),
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("export yaml: %w", err)
		}
	default:
		return fmt.Errorf("export: %w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// Import reads a backup from r and upserts its records. A record listed on
// more than one shelf is kept on the first shelf in shelf order; a record
// already stored on a different shelf is moved to the backup's shelf.
func (s *Service) Import(ctx context.Context, r io.Reader, format Format) (ImportReport, error) {
	var doc Backup
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return ImportReport{}, fmt.Errorf("import json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return ImportReport{}, fmt.Errorf("import yaml: %w", err)
		}
	default:
		return ImportReport{}, fmt.Errorf("import: %w: %q", ErrUnsupportedFormat, format)
	}
	if doc.Version > backupVersion {
		return ImportReport{}, fmt.Errorf("import: backup version %d is newer than supported version %d", doc.Version, backupVersion)
	}

	var report ImportReport
	placed := make(map[string]book.Shelf)
	for _, target := range book.Shelves() {
		for _, rec := range doc.Shelves[target] {
			id := strings.TrimSpace(rec.ID)
			if prev, dup := placed[id]; dup {
				report.Skipped++
				report.Problems = append(report.Problems, fmt.Sprintf("%s: already imported on %s", id, prev))
				continue
			}
			_, where, shelved := s.shelves.FindAnywhere(ctx, id)
			if _, err := s.file(ctx, rec, where, shelved, target); err != nil {
				report.Skipped++
				report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", orUnknown(id), err))
				continue
			}
			placed[id] = target
			report.Imported++
		}
	}
	for name := range doc.Shelves {
		if !name.Valid() {
			report.Skipped += len(doc.Shelves[name])
			report.Problems = append(report.Problems, fmt.Sprintf("unknown shelf %q", name))
		}
	}
	s.logger.Info("import completed",
		logging.Int("imported", report.Imported),
		logging.Int("skipped", report.Skipped),
	)
	return report, nil
}

func orUnknown(id string) string {
	if id == "" {
		return "<missing id>"
	}
	return id
}
