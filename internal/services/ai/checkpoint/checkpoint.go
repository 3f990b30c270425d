package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"deepfake-detector/internal/services/ai"
)

// Kind is the checkpoint shape found on disk.
type Kind int

const (
	// KindGraph is a complete network file OpenCV can read directly.
	KindGraph Kind = iota
	// KindParams is a bare parameter mapping.
	KindParams
	// KindWrapped is a parameter mapping under "state_dict" plus metadata.
	KindWrapped
)

func (k Kind) String() string {
	switch k {
	case KindGraph:
		return "graph"
	case KindParams:
		return "params"
	case KindWrapped:
		return "wrapped"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Prefix added to every key by data-parallel training wrappers.
const wrapperPrefix = "module."

var graphExtensions = map[string]bool{
	".onnx":       true,
	".pb":         true,
	".caffemodel": true,
	".t7":         true,
	".net":        true,
	".tflite":     true,
	".xml":        true,
}

// Tensor is one named parameter.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// Size is the element count implied by Shape.
func (t Tensor) Size() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

func (t Tensor) validate(name string) error {
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("%w: tensor %s has invalid shape %v", ai.ErrModelLoad, name, t.Shape)
		}
	}
	if t.Size() != len(t.Data) {
		return fmt.Errorf("%w: tensor %s has %d values for shape %v", ai.ErrModelLoad, name, len(t.Data), t.Shape)
	}
	return nil
}

// Checkpoint is a parsed model file.
type Checkpoint struct {
	Path   string
	Kind   Kind
	Params map[string]Tensor
	Meta   map[string]json.RawMessage
}

// IsGraph reports whether path names a network file by its extension.
func IsGraph(path string) bool {
	return graphExtensions[strings.ToLower(filepath.Ext(path))]
}

// Parse reads a checkpoint and decides its shape. Graph files are only
// checked for readability; their contents belong to OpenCV.
func Parse(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrModelLoad, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ai.ErrModelLoad, path)
	}

	if IsGraph(path) {
		return &Checkpoint{Path: path, Kind: KindGraph}, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: unrecognized checkpoint format for %s", ai.ErrModelLoad, path)
	}

	ckpt, err := parseJSON(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ai.ErrModelLoad, path, err)
	}
	ckpt.Path = path
	return ckpt, nil
}

func parseJSON(data []byte) (*Checkpoint, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	if raw, ok := top["state_dict"]; ok {
		params, err := decodeParams(raw)
		if err != nil {
			return nil, fmt.Errorf("state_dict: %w", err)
		}
		delete(top, "state_dict")
		return &Checkpoint{Kind: KindWrapped, Params: params, Meta: top}, nil
	}

	params, err := decodeParams(data)
	if err != nil {
		return nil, err
	}
	return &Checkpoint{Kind: KindParams, Params: params}, nil
}

func decodeParams(data []byte) (map[string]Tensor, error) {
	var params map[string]Tensor
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters")
	}
	for name, t := range params {
		if err := t.validate(name); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// MetaString renders the metadata of a wrapped checkpoint for logging.
func (c *Checkpoint) MetaString() string {
	if len(c.Meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.Meta))
	for k := range c.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := string(c.Meta[k])
		if len(v) > 64 {
			v = v[:64] + "..."
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

// StripPrefix removes the data-parallel "module." prefix from every key that
// carries it.
func StripPrefix(params map[string]Tensor) map[string]Tensor {
	out := make(map[string]Tensor, len(params))
	for name, t := range params {
		out[strings.TrimPrefix(name, wrapperPrefix)] = t
	}
	return out
}
