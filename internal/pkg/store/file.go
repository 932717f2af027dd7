// Package store persists the aggregated datasets: flat JSON artifacts for
// the presentation layer, optionally Postgres for run-over-run diffing.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

const (
	offersFile   = "offers.json"
	rankingsFile = "rankings.json"
)

// FileWriter writes the offers and rankings artifacts into a directory.
type FileWriter struct {
	dir    string
	logger *zap.Logger
}

func NewFileWriter(dir string, logger *zap.Logger) *FileWriter {
	return &FileWriter{dir: dir, logger: logger}
}

func (w *FileWriter) SaveDataset(_ context.Context, offers model.OffersDataset, rankings model.Rankings) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := w.writeJSON(offersFile, offers); err != nil {
		return err
	}
	if err := w.writeJSON(rankingsFile, rankings); err != nil {
		return err
	}

	w.logger.Info("artifacts written", zap.String("dir", w.dir), zap.Int("offers", len(offers.Offers)))
	return nil
}

// writeJSON writes to a temp file and renames, so a crashed run never leaves
// a half-written artifact for the presentation layer to pick up.
func (w *FileWriter) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp := filepath.Join(w.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

// Multi fans SaveDataset out to several stores.
type Multi []interface {
	SaveDataset(ctx context.Context, offers model.OffersDataset, rankings model.Rankings) error
}

func (m Multi) SaveDataset(ctx context.Context, offers model.OffersDataset, rankings model.Rankings) error {
	for _, s := range m {
		if err := s.SaveDataset(ctx, offers, rankings); err != nil {
			return err
		}
	}
	return nil
}
