package checkpoint

import (
	"fmt"
	"sort"
	"strings"

	"deepfake-detector/internal/services/ai"
)

// Parameter names of the classification head.
const (
	HeadWeight = "backbone.classifier.weight"
	HeadBias   = "backbone.classifier.bias"
)

// backbonePrefix marks feature-extractor parameters. Those are compiled into
// the backbone graph and are not rebound.
const backbonePrefix = "backbone."

// Head is the final linear layer: logits = W * features + b.
type Head struct {
	Features int
	Weight   []float32 // [NumClasses x Features], row-major
	Bias     []float32 // [NumClasses]
}

// Logits applies the head to one feature vector.
func (h *Head) Logits(features []float32) ([]float32, error) {
	if len(features) != h.Features {
		return nil, fmt.Errorf("%w: head expects %d features, got %d", ai.ErrShapeMismatch, h.Features, len(features))
	}
	logits := make([]float32, ai.NumClasses)
	for c := 0; c < ai.NumClasses; c++ {
		row := h.Weight[c*h.Features : (c+1)*h.Features]
		sum := h.Bias[c]
		for i, f := range features {
			sum += row[i] * f
		}
		logits[c] = sum
	}
	return logits, nil
}

// Binding is the result of loading parameters into a Head.
type Binding struct {
	Head       *Head
	Strict     bool     // every expected name was present and nothing was left over
	Missing    []string // expected names absent from the checkpoint
	Unexpected []string // names that belong to neither the head nor the backbone
	Backbone   int      // backbone parameters left to the graph
}

// BindHead loads the head parameters. Binding is attempted strictly first;
// on missing or unexpected names it falls back to a non-strict binding where
// missing tensors stay zero. A shape mismatch always fails, as does a
// checkpoint where no head parameter is present. features <= 0 takes the
// feature count from the weight tensor.
func BindHead(params map[string]Tensor, features int) (*Binding, error) {
	params = StripPrefix(params)
	b := &Binding{}

	for name := range params {
		switch {
		case name == HeadWeight, name == HeadBias:
		case strings.HasPrefix(name, backbonePrefix):
			b.Backbone++
		default:
			b.Unexpected = append(b.Unexpected, name)
		}
	}
	sort.Strings(b.Unexpected)

	weight, hasWeight := params[HeadWeight]
	bias, hasBias := params[HeadBias]
	if !hasWeight {
		b.Missing = append(b.Missing, HeadWeight)
	}
	if !hasBias {
		b.Missing = append(b.Missing, HeadBias)
	}
	if !hasWeight && !hasBias {
		return nil, fmt.Errorf("%w: no head parameters (%s, %s) in checkpoint", ai.ErrModelLoad, HeadWeight, HeadBias)
	}

	if features <= 0 {
		if !hasWeight || len(weight.Shape) != 2 {
			return nil, fmt.Errorf("%w: cannot infer feature count without %s", ai.ErrModelLoad, HeadWeight)
		}
		features = weight.Shape[1]
	}

	head := &Head{
		Features: features,
		Weight:   make([]float32, ai.NumClasses*features),
		Bias:     make([]float32, ai.NumClasses),
	}

	if hasWeight {
		if len(weight.Shape) != 2 || weight.Shape[0] != ai.NumClasses || weight.Shape[1] != features {
			return nil, fmt.Errorf("%w: %s has shape %v, want [%d %d]", ai.ErrModelLoad, HeadWeight, weight.Shape, ai.NumClasses, features)
		}
		copy(head.Weight, weight.Data)
	}
	if hasBias {
		if len(bias.Shape) != 1 || bias.Shape[0] != ai.NumClasses {
			return nil, fmt.Errorf("%w: %s has shape %v, want [%d]", ai.ErrModelLoad, HeadBias, bias.Shape, ai.NumClasses)
		}
		copy(head.Bias, bias.Data)
	}

	b.Head = head
	b.Strict = len(b.Missing) == 0 && len(b.Unexpected) == 0
	return b, nil
}
