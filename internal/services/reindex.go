package services

import (
	"context"
	"fmt"
	"path"

	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/storage"
)

// ReindexReport summarizes a Reindex run.
type ReindexReport struct {
	Scanned int
	Added   int
	Failed  int
}

// Reindex classifies and records every stored upload that has no record yet,
// for example after the database was replaced.
func (m *Manager) Reindex(ctx context.Context) (ReindexReport, error) {
	var report ReindexReport

	existing, err := m.repo.GetAll(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("failed to list detections: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, det := range existing {
		known[det.Filename] = true
	}

	err = m.uploadStore.Walk(func(file storage.StoredFile) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		if known[file.Name] {
			return nil
		}

		outcome, err := m.Classify(ctx, ai.ImageRef{Path: file.Path})
		if err != nil {
			return err
		}
		upload := Upload{OriginalName: path.Base(file.Name), Origin: OriginReindex}
		if m.record(ctx, outcome, file, upload) == nil {
			report.Failed++
			return nil
		}
		report.Added++
		m.logger.Info("📥 Reindexed %s -> %s", file.Name, outcome.Label)
		return nil
	})
	return report, err
}
