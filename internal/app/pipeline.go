package app

import (
	"context"
	"fmt"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/repository"
	"deepfake-detector/internal/repository/postgres"
	"deepfake-detector/internal/repository/sqlite"
	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/ai/opencv"
)

// Pipeline is a loaded detector with the OpenCV resources behind it.
type Pipeline struct {
	Detector *ai.Detector
	engine   *opencv.NetEngine
	gate     *opencv.CascadeGate
}

// DetectorOptions maps the policy switches of cfg.
func DetectorOptions(cfg *config.Config) ai.Options {
	return ai.Options{
		UseFaceCrop:       cfg.UseFaceCrop,
		EnforceNoFace:     cfg.EnforceNoFace,
		SelectLargestFace: cfg.SelectLargestFace,
		Threshold:         cfg.Threshold,
	}
}

// LoadPipeline loads the model and the face cascade. A model failure is
// returned; a cascade failure only leaves the gate unavailable.
func LoadPipeline(cfg *config.Config, logger *logger.Logger) (*Pipeline, error) {
	workers := cfg.ProcessingWorkers
	if workers < 1 {
		workers = 1
	}

	engine, err := opencv.Load(opencv.LoaderConfig{
		ModelPath:    cfg.ModelPath,
		ConfigPath:   cfg.ModelConfigPath,
		BackbonePath: cfg.BackbonePath,
		Workers:      workers,
	}, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{engine: engine}

	params := ai.FaceGateParams{MinSize: cfg.FaceMinSize, ScaleFactor: cfg.FaceScale, MinNeighbors: cfg.FaceNeighbors}
	var gate ai.FaceGate
	cascade, err := opencv.NewCascadeGate(cfg.CascadePath, params, workers)
	if err != nil {
		logger.Warning("⚠️  Face detector unavailable: %v", err)
	} else {
		logger.Info("🙂 Face cascade loaded from %s", cascade.Path())
		p.gate = cascade
		gate = cascade
	}

	opts := DetectorOptions(cfg)
	p.Detector = ai.NewDetector(opts, gate, engine, logger)
	logger.Info("⚙️  Policy: crop=%t enforce_noface=%t largest=%t threshold=%.2f", opts.UseFaceCrop, opts.EnforceNoFace, opts.SelectLargestFace, opts.Threshold)
	return p, nil
}

// Close releases the nets and cascades.
func (p *Pipeline) Close() error {
	if err := p.gate.Close(); err != nil {
		return err
	}
	return p.engine.Close()
}

// OpenRepository uses PostgreSQL when DATABASE_URL is set, SQLite otherwise.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *logger.Logger) (repository.DetectionRepository, error) {
	if cfg.DatabaseURL != "" {
		repo, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("🗄️  Using PostgreSQL for detections")
		return repo, nil
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("🗄️  Using SQLite database %s", cfg.DatabasePath)
	return sqlite.NewDetectionRepository(db), nil
}
