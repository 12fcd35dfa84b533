package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
)

// FileWriter writes the enriched catalog as a JSON array.
// It implements pipeline.BatchLoader.
type FileWriter struct {
	path   string
	logger *slog.Logger
}

// NewFileWriter creates a writer for the output file at path.
func NewFileWriter(path string, logger *slog.Logger) *FileWriter {
	return &FileWriter{path: path, logger: logger}
}

// LoadBatch replaces the output file with events. The file is written to a
// temporary sibling first and renamed, so readers never see a partial catalog.
func (w *FileWriter) LoadBatch(ctx context.Context, events []domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := encodeEvents(tmp, events); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}

	w.logger.Info("catalog written", "path", w.path, "events", len(events))
	return nil
}

func encodeEvents(f *os.File, events []domain.Event) error {
	if events == nil {
		events = []domain.Event{}
	}
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
