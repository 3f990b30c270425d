package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"deepfake-detector/internal/app"
	"deepfake-detector/internal/config"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/ai/opencv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	envFile      string
	modelPath    string
	backbonePath string
	cascadePath  string
	useFaceCrop  bool
	enforce      bool
	largest      bool
	threshold    float64
	workers      int
	opencvDecode bool
)

var rootCmd = &cobra.Command{
	Use:   "classify [files...]",
	Short: "Classify face images as Real or Fake",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, args)
	},
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to a .env file (default: ./.env when present)")
	rootCmd.Flags().StringVarP(&modelPath, "model", "m", "", "Checkpoint path (overrides MODEL_PATH)")
	rootCmd.Flags().StringVar(&backbonePath, "backbone", "", "Feature network for parameter checkpoints (overrides BACKBONE_PATH)")
	rootCmd.Flags().StringVar(&cascadePath, "cascade", "", "Haar cascade file (overrides FACE_CASCADE_PATH)")
	rootCmd.Flags().BoolVar(&useFaceCrop, "crop", false, "Crop to the selected face before inference")
	rootCmd.Flags().BoolVar(&enforce, "enforce-noface", true, "Report NoFace when no face is found")
	rootCmd.Flags().BoolVar(&largest, "largest", true, "Use the largest face instead of the first one")
	rootCmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Scores below this become Uncertain (0 disables)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel classifications (overrides PROCESSING_WORKERS)")
	rootCmd.Flags().BoolVar(&opencvDecode, "opencv-decode", false, "Decode images with OpenCV instead of the Go decoders")
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if envFile != "" {
		c, err := config.LoadFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		cfg = c
	} else {
		cfg = config.Load()
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.ModelPath = modelPath
	}
	if flags.Changed("backbone") {
		cfg.BackbonePath = backbonePath
	}
	if flags.Changed("cascade") {
		cfg.CascadePath = cascadePath
	}
	if flags.Changed("crop") {
		cfg.UseFaceCrop = useFaceCrop
	}
	if flags.Changed("enforce-noface") {
		cfg.EnforceNoFace = enforce
	}
	if flags.Changed("largest") {
		cfg.SelectLargestFace = largest
	}
	if flags.Changed("threshold") {
		if threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("threshold must be within [0, 1], got %v", threshold)
		}
		cfg.Threshold = threshold
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.ProcessingWorkers = workers
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, paths []string) error {
	l, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return fmt.Errorf("failed to open logs: %w", err)
	}
	defer l.Close()

	pipeline, err := app.LoadPipeline(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer pipeline.Close()

	outcomes := classifyAll(ctx, pipeline.Detector, paths, cfg.ProcessingWorkers)

	counts := make(map[ai.Label]int)
	for _, out := range outcomes {
		counts[out.Label]++
		fmt.Printf("%s %.4f %s\n", out.Label, services.RoundScore(out.Confidence), out.Source)
	}

	fmt.Printf("\n📊 %d image(s):", len(outcomes))
	for _, label := range ai.Labels {
		fmt.Printf(" %s=%d", label, counts[label])
	}
	fmt.Println()
	return ctx.Err()
}

// classifyAll keeps the input order in its result.
func classifyAll(ctx context.Context, detector *ai.Detector, paths []string, numWorkers int) []ai.Outcome {
	if numWorkers < 1 {
		numWorkers = 1
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("🔍 Classifying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	outcomes := make([]ai.Outcome, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = detector.Classify(imageRef(paths[idx]))
				bar.Add(1)
			}
		}()
	}

	for i := range paths {
		if ctx.Err() != nil {
			outcomes[i] = ai.Outcome{Label: ai.LabelError, Source: paths[i]}
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	bar.Finish()

	return outcomes
}

func imageRef(path string) ai.ImageRef {
	if !opencvDecode {
		return ai.ImageRef{Path: path}
	}
	raw, err := opencv.ReadImage(path)
	if err != nil {
		// let the Go decoders try the file
		return ai.ImageRef{Path: path}
	}
	return ai.ImageRef{Image: &raw, Name: path}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
