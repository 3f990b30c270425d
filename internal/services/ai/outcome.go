package ai

import (
	"fmt"
	"math"
)

// Label is the closed set of classification results.
type Label string

const (
	LabelFake      Label = "Fake"
	LabelReal      Label = "Real"
	LabelUncertain Label = "Uncertain"
	LabelNoFace    Label = "NoFace"
	LabelError     Label = "Error"
)

// Labels lists every label in reporting order.
var Labels = []Label{LabelReal, LabelFake, LabelUncertain, LabelNoFace, LabelError}

// Valid reports whether l is one of the five known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelFake, LabelReal, LabelUncertain, LabelNoFace, LabelError:
		return true
	}
	return false
}

// Class indices of the trained model. Fixed for the process, never read from
// a checkpoint.
const (
	FakeIndex  = 0
	RealIndex  = 1
	NumClasses = 2
)

// ClassMapping describes the fixed index mapping for diagnostics.
func ClassMapping() string {
	return fmt.Sprintf("%d=%s, %d=%s", FakeIndex, LabelFake, RealIndex, LabelReal)
}

// ClassProbabilities holds the softmaxed model output.
type ClassProbabilities struct {
	Fake float64 `json:"fake"`
	Real float64 `json:"real"`
}

// Score is the winning class probability.
func (p ClassProbabilities) Score() float64 {
	return math.Max(p.Fake, p.Real)
}

// ProbabilitiesFromLogits applies softmax over the two raw model outputs.
func ProbabilitiesFromLogits(logits []float32) (ClassProbabilities, error) {
	if len(logits) != NumClasses {
		return ClassProbabilities{}, fmt.Errorf("%w: expected %d logits, got %d", ErrInferenceFailure, NumClasses, len(logits))
	}
	probs := Softmax([]float64{float64(logits[FakeIndex]), float64(logits[RealIndex])})
	for _, p := range probs {
		if math.IsNaN(p) {
			return ClassProbabilities{}, fmt.Errorf("%w: non-finite logits %v", ErrInferenceFailure, logits)
		}
	}
	return ClassProbabilities{Fake: probs[FakeIndex], Real: probs[RealIndex]}, nil
}

// Softmax normalizes values into a probability distribution. The maximum is
// subtracted first to keep exp() in range.
func Softmax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	maxValue := values[0]
	for _, v := range values[1:] {
		if v > maxValue {
			maxValue = v
		}
	}
	var sum float64
	for i, v := range values {
		out[i] = math.Exp(v - maxValue)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Outcome is what Classify hands back to callers.
type Outcome struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

func errorOutcome(source string) Outcome {
	return Outcome{Label: LabelError, Confidence: 0, Source: source}
}

func noFaceOutcome(source string) Outcome {
	return Outcome{Label: LabelNoFace, Confidence: 0, Source: source}
}

// Resolve maps probabilities to a label and confidence. A threshold <= 0
// disables the Uncertain band. Equal probabilities resolve to Fake: the
// first-listed class wins ties.
func Resolve(p ClassProbabilities, threshold float64) (Label, float64) {
	score := p.Score()
	if threshold > 0 && score < threshold {
		return LabelUncertain, score
	}
	if p.Fake >= p.Real {
		return LabelFake, score
	}
	return LabelReal, score
}
