package opencv

import (
	"fmt"
	"path/filepath"
	"strings"

	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/ai/checkpoint"

	"gocv.io/x/gocv"
)

// NetEngine runs the classifier on OpenCV's DNN module. Without a head the
// net itself must emit the two logits; with a head the net is the backbone
// and emits a feature vector.
type NetEngine struct {
	nets *pool[gocv.Net]
	head *checkpoint.Head
	kind checkpoint.Kind
}

// Predict scores one prepared input.
func (e *NetEngine) Predict(in ai.PreparedInput) (ai.ClassProbabilities, error) {
	if err := in.Validate(); err != nil {
		return ai.ClassProbabilities{}, err
	}

	output, err := e.forward(in)
	if err != nil {
		return ai.ClassProbabilities{}, err
	}

	logits := output
	if e.head != nil {
		if logits, err = e.head.Logits(output); err != nil {
			return ai.ClassProbabilities{}, err
		}
	}
	return ai.ProbabilitiesFromLogits(logits)
}

// Kind is the checkpoint shape the engine was loaded from.
func (e *NetEngine) Kind() checkpoint.Kind {
	return e.kind
}

// Close releases every net in the pool.
func (e *NetEngine) Close() error {
	return e.nets.close(closeNet)
}

func closeNet(n gocv.Net) error {
	return n.Close()
}

func (e *NetEngine) forward(in ai.PreparedInput) ([]float32, error) {
	net := e.nets.get()
	defer e.nets.put(net)

	blob := gocv.NewMatWithSizes(in.Shape[:], gocv.MatTypeCV32F)
	defer blob.Close()

	dst, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: blob: %v", ai.ErrInferenceFailure, err)
	}
	copy(dst, in.Data)

	net.SetInput(blob, "")
	output := net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("%w: empty network output", ai.ErrInferenceFailure)
	}
	values, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: output: %v", ai.ErrInferenceFailure, err)
	}

	// output memory belongs to the Mat
	result := make([]float32, len(values))
	copy(result, values)
	return result, nil
}

// readNet loads one copy of a network file.
func readNet(modelPath, configPath string) (gocv.Net, error) {
	var net gocv.Net
	if strings.EqualFold(filepath.Ext(modelPath), ".onnx") && configPath == "" {
		net = gocv.ReadNetFromONNX(modelPath)
	} else {
		net = gocv.ReadNet(modelPath, configPath)
	}
	if net.Empty() {
		return net, fmt.Errorf("failed to load network from %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	return net, nil
}
