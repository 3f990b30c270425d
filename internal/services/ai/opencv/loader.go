package opencv

import (
	"fmt"
	"os"

	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/ai/checkpoint"

	"gocv.io/x/gocv"
)

// LoaderConfig points at the model files.
type LoaderConfig struct {
	ModelPath    string // checkpoint: a network file or a JSON parameter file
	ConfigPath   string // optional network description (.prototxt, .pbtxt, .cfg)
	BackbonePath string // feature network used with parameter checkpoints
	Workers      int    // number of net copies
}

// Load builds the process-wide engine. Every failure wraps ai.ErrModelLoad
// and should stop the process.
func Load(cfg LoaderConfig, logger ai.Logger) (*NetEngine, error) {
	ckpt, err := checkpoint.Parse(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	var engine *NetEngine
	switch ckpt.Kind {
	case checkpoint.KindGraph:
		engine, err = loadGraph(cfg)
	default:
		engine, err = loadParams(cfg, ckpt, logger)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Model loaded from %s (%s, %d nets), class mapping %s", cfg.ModelPath, ckpt.Kind, engine.nets.size(), ai.ClassMapping())
	return engine, nil
}

func loadGraph(cfg LoaderConfig) (*NetEngine, error) {
	nets, err := newPool(cfg.Workers, func() (gocv.Net, error) {
		return readNet(cfg.ModelPath, cfg.ConfigPath)
	}, closeNet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrModelLoad, err)
	}

	engine := &NetEngine{nets: nets, kind: checkpoint.KindGraph}
	out, err := dryRun(engine)
	if err != nil {
		engine.Close()
		return nil, err
	}
	if len(out) != ai.NumClasses {
		engine.Close()
		return nil, fmt.Errorf("%w: network emits %d values, want %d logits", ai.ErrModelLoad, len(out), ai.NumClasses)
	}
	return engine, nil
}

func loadParams(cfg LoaderConfig, ckpt *checkpoint.Checkpoint, logger ai.Logger) (*NetEngine, error) {
	if meta := ckpt.MetaString(); meta != "" {
		logger.Info("Checkpoint metadata: %s", meta)
	}

	if cfg.BackbonePath == "" {
		return nil, fmt.Errorf("%w: parameter checkpoint needs a backbone network", ai.ErrModelLoad)
	}
	if _, err := os.Stat(cfg.BackbonePath); err != nil {
		return nil, fmt.Errorf("%w: backbone: %v", ai.ErrModelLoad, err)
	}

	nets, err := newPool(cfg.Workers, func() (gocv.Net, error) {
		return readNet(cfg.BackbonePath, "")
	}, closeNet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrModelLoad, err)
	}

	engine := &NetEngine{nets: nets, kind: ckpt.Kind}
	features, err := dryRun(engine)
	if err != nil {
		engine.Close()
		return nil, err
	}

	binding, err := checkpoint.BindHead(ckpt.Params, len(features))
	if err != nil {
		engine.Close()
		return nil, err
	}
	if !binding.Strict {
		logger.Warning("Strict load failed (missing=%v, unexpected=%v), loaded non-strictly", binding.Missing, binding.Unexpected)
	}
	logger.Info("Head bound: %d features, %d backbone params left to %s", binding.Head.Features, binding.Backbone, cfg.BackbonePath)

	engine.head = binding.Head
	return engine, nil
}

// dryRun runs one zero input through the net to learn its output size.
func dryRun(e *NetEngine) ([]float32, error) {
	zeros := ai.PreparedInput{
		Shape: ai.InputShape,
		Data:  make([]float32, ai.InputShape[0]*ai.InputShape[1]*ai.InputShape[2]*ai.InputShape[3]),
	}
	out, err := e.forward(zeros)
	if err != nil {
		return nil, fmt.Errorf("%w: dry-run forward: %v", ai.ErrModelLoad, err)
	}
	return out, nil
}
