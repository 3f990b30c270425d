package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"deepfake-detector/internal/models"
	"deepfake-detector/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DetectionRepository implements repository.DetectionRepository on PostgreSQL.
type DetectionRepository struct {
	pool *pgxpool.Pool
}

// New connects to the database and ensures the schema exists.
func New(ctx context.Context, connString string) (*DetectionRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &DetectionRepository{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			original_name TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT 'upload',
			label TEXT NOT NULL,
			score DOUBLE PRECISION DEFAULT 0,
			filepath TEXT NOT NULL,
			filesize BIGINT DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_detections_label ON detections (label);
		CREATE INDEX IF NOT EXISTS idx_detections_origin ON detections (origin);
		CREATE INDEX IF NOT EXISTS idx_detections_created_at ON detections (created_at);
	`)
	return err
}

const detectionColumns = `id, filename, original_name, origin, label, score, filepath, filesize, created_at`

// Insert adds a new detection record.
func (r *DetectionRepository) Insert(ctx context.Context, det *models.Detection) (int64, error) {
	if det.CreatedAt.IsZero() {
		det.CreatedAt = time.Now()
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO detections (filename, original_name, origin, label, score, filepath, filesize, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, det.Filename, det.OriginalName, det.Origin, det.Label, det.Score, det.FilePath, det.FileSize, det.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}
	det.ID = id
	return id, nil
}

// GetByID retrieves a detection by its ID.
func (r *DetectionRepository) GetByID(ctx context.Context, id int64) (*models.Detection, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+detectionColumns+` FROM detections WHERE id = $1`, id)
	det, err := scanDetection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return det, nil
}

// filterClause builds the WHERE part with numbered placeholders.
func filterClause(filter *models.DetectionFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	next := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Label != "" {
		query += " AND label = " + next(filter.Label)
	}
	if filter.Origin != "" {
		query += " AND origin = " + next(filter.Origin)
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at::date >= " + next(filter.StartDate.Format("2006-01-02")) + "::date"
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at::date <= " + next(filter.EndDate.Format("2006-01-02")) + "::date"
	}
	return query, args
}

// GetAll retrieves detections based on filter criteria, newest first.
func (r *DetectionRepository) GetAll(ctx context.Context, filter *models.DetectionFilter) ([]models.Detection, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + detectionColumns + ` FROM detections` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
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

// GetTotalCount returns the number of detections matching the filter.
func (r *DetectionRepository) GetTotalCount(ctx context.Context, filter *models.DetectionFilter) (int, error) {
	where, args := filterClause(filter)

	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM detections`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

// GetStats returns statistics about stored detections.
func (r *DetectionRepository) GetStats(ctx context.Context) (*models.DetectionStats, error) {
	stats := &models.DetectionStats{
		PerLabel:  make(map[string]int),
		PerOrigin: make(map[string]int),
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(filesize), 0)::BIGINT FROM detections`).Scan(&stats.Total, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`SELECT label, COUNT(*) FROM detections GROUP BY label`)
	batch.Queue(`SELECT origin, COUNT(*) FROM detections GROUP BY origin`)
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, counts := range []map[string]int{stats.PerLabel, stats.PerOrigin} {
		rows, err := results.Query()
		if err != nil {
			return nil, fmt.Errorf("failed to group detections: %w", err)
		}
		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan group count: %w", err)
			}
			counts[key] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// Delete removes a detection by its ID.
func (r *DetectionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM detections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete detection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAll removes every detection.
func (r *DetectionRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *DetectionRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanDetection(row pgx.Row) (*models.Detection, error) {
	var det models.Detection
	if err := row.Scan(&det.ID, &det.Filename, &det.OriginalName, &det.Origin, &det.Label, &det.Score, &det.FilePath, &det.FileSize, &det.CreatedAt); err != nil {
		return nil, err
	}
	return &det, nil
}
