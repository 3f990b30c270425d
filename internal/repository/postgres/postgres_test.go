package postgres

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"deepfake-detector/internal/models"
	"deepfake-detector/internal/repository"
)

var _ repository.DetectionRepository = (*DetectionRepository)(nil)

func TestFilterClause(t *testing.T) {
	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter *models.DetectionFilter
		query  string
		args   []interface{}
	}{
		{"nil", nil, " WHERE 1=1", []interface{}{}},
		{"label", &models.DetectionFilter{Label: "Fake"}, " WHERE 1=1 AND label = $1", []interface{}{"Fake"}},
		{
			"all",
			&models.DetectionFilter{Label: "Real", Origin: "url", StartDate: day, EndDate: day},
			" WHERE 1=1 AND label = $1 AND origin = $2 AND created_at::date >= $3::date AND created_at::date <= $4::date",
			[]interface{}{"Real", "url", "2024-03-09", "2024-03-09"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := filterClause(tt.filter)
			if query != tt.query {
				t.Errorf("Expected query %q, got %q", tt.query, query)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("Expected args %v, got %v", tt.args, args)
			}
		})
	}
}

// TestDetectionRepository_Postgres runs against a real server when
// TEST_DATABASE_URL is set.
func TestDetectionRepository_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	repo, err := New(ctx, url)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer repo.Close()

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	det := &models.Detection{Filename: "pg/a.jpg", Origin: "upload", Label: "Fake", Score: 0.9, FilePath: "/tmp/a.jpg", FileSize: 10}
	id, err := repo.Insert(ctx, det)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Label != "Fake" {
		t.Errorf("Expected Fake, got %s", got.Label)
	}

	stats, err := repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.PerLabel["Fake"] != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}
