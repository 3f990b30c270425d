package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deepfake-detector/internal/models"
	"deepfake-detector/internal/repository"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

const detectionColumns = `id, filename, original_name, origin, label, score, filepath, filesize, created_at`

// Insert adds a new detection record to the database.
func (r *DetectionRepository) Insert(ctx context.Context, det *models.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if det.CreatedAt.IsZero() {
		det.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO detections (filename, original_name, origin, label, score, filepath, filesize, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, det.Filename, det.OriginalName, det.Origin, det.Label, det.Score, det.FilePath, det.FileSize, det.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read detection id: %w", err)
	}
	det.ID = id
	return id, nil
}

// GetByID retrieves a detection by its ID.
func (r *DetectionRepository) GetByID(ctx context.Context, id int64) (*models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `SELECT `+detectionColumns+` FROM detections WHERE id = ?`, id)
	det, err := scanDetection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return det, nil
}

// filterClause builds the WHERE part shared by GetAll and GetTotalCount.
func filterClause(filter *models.DetectionFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}

	if filter.Origin != "" {
		query += " AND origin = ?"
		args = append(args, filter.Origin)
	}

	if !filter.StartDate.IsZero() {
		query += " AND DATE(created_at) >= DATE(?)"
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}

	if !filter.EndDate.IsZero() {
		query += " AND DATE(created_at) <= DATE(?)"
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}

	return query, args
}

// GetAll retrieves detections based on filter criteria, newest first.
func (r *DetectionRepository) GetAll(ctx context.Context, filter *models.DetectionFilter) ([]models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + detectionColumns + ` FROM detections` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	detections := []models.Detection{}
	for rows.Next() {
		det, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, *det)
	}

	return detections, rows.Err()
}

// GetTotalCount returns the total count of detections matching the filter.
func (r *DetectionRepository) GetTotalCount(ctx context.Context, filter *models.DetectionFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

// GetStats returns statistics about stored detections.
func (r *DetectionRepository) GetStats(ctx context.Context) (*models.DetectionStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.DetectionStats{
		PerLabel:  make(map[string]int),
		PerOrigin: make(map[string]int),
	}

	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(filesize), 0) FROM detections`).Scan(&stats.Total, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}

	if err := r.groupCount(ctx, "label", stats.PerLabel); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "origin", stats.PerOrigin); err != nil {
		return nil, err
	}

	return stats, nil
}

// groupCount fills counts with COUNT(*) grouped by a fixed column name.
func (r *DetectionRepository) groupCount(ctx context.Context, column string, counts map[string]int) error {
	rows, err := r.db.Conn().QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM detections GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		counts[key] = count
	}
	return rows.Err()
}

// Delete removes a detection by its ID.
func (r *DetectionRepository) Delete(ctx context.Context, id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `DELETE FROM detections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete detection: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAll removes every detection.
func (r *DetectionRepository) DeleteAll(ctx context.Context) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().ExecContext(ctx, `DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *DetectionRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDetection(s scanner) (*models.Detection, error) {
	var det models.Detection
	if err := s.Scan(&det.ID, &det.Filename, &det.OriginalName, &det.Origin, &det.Label, &det.Score, &det.FilePath, &det.FileSize, &det.CreatedAt); err != nil {
		return nil, err
	}
	return &det, nil
}
