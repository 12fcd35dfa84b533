package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
)

// Reader loads HELCATS events from a JSON catalog file.
// It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a catalog reader for the file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Extract decodes the catalog, a JSON array of row objects. Rows that cannot
// be parsed are logged and skipped; a file that cannot be read or decoded
// fails the call.
func (r *Reader) Extract(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var rows []map[string]json.RawMessage
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", r.path, err)
	}

	events := make([]domain.Event, 0, len(rows))
	for i, row := range rows {
		ev, err := domain.ParseCatalogEntry(row)
		if err != nil {
			r.logger.Warn("skipping catalog row", "index", i, "error", err)
			continue
		}
		events = append(events, ev)
	}

	r.logger.Info("catalog loaded", "path", r.path, "rows", len(rows), "events", len(events))
	return events, nil
}
