// Package classifier runs inference over the trained deleteriousness model:
// a tree ensemble distributed as a JSON artifact together with its background
// sample and decision thresholds. The package never trains; it loads an
// artifact once and serves concurrent predictions, labels, and per-feature
// Shapley attributions.
package classifier

import (
	"errors"
	"math"

	"github.com/loggy01/alpharing/features"
)

// ErrConfiguration is returned when an artifact is structurally unusable:
// feature schema mismatch, empty forest, dangling node references, or a
// missing background sample. Unlike per-substitution failures, this error
// class invalidates every prediction the model could make.
var ErrConfiguration = errors.New("classifier: invalid model configuration")

// Published decision thresholds of the trained model, used when an artifact
// carries none.
const (
	DefaultNeutralMax     = 0.2270
	DefaultDeleteriousMin = 0.2740
)

// Label is the categorical verdict derived from a probability.
type Label string

const (
	Neutral     Label = "Neutral"
	Ambiguous   Label = "Ambiguous"
	Deleterious Label = "Deleterious"
)

// Result is the classifier verdict for one substitution. Attributions are
// additive: they sum to Probability - Baseline.
type Result struct {
	Probability  float64                 `json:"probability"`
	Label        Label                   `json:"label"`
	Baseline     float64                 `json:"baseline"`
	Attributions [features.Count]float64 `json:"attributions"`
}

// Model is a loaded, validated artifact. It is immutable and safe for
// concurrent use.
type Model struct {
	trees          []tree
	initScore      float64
	logitLeaves    bool
	background     []features.Vector
	neutralMax     float64
	deleteriousMin float64
	baseline       float64
}

// tree is one binary decision tree in flat-array form: node i is internal
// when left[i] >= 0, with children strictly after it, and a leaf otherwise,
// with its output in value[i].
type tree struct {
	feature   []int
	threshold []float64
	left      []int
	right     []int
	value     []float64
}

func (t *tree) eval(v features.Vector) float64 {
	i := 0
	for t.left[i] >= 0 {
		if v[t.feature[i]] <= t.threshold[i] {
			i = t.left[i]
		} else {
			i = t.right[i]
		}
	}
	return t.value[i]
}

// Predict returns the probability that the substitution described by v is
// deleterious. Inputs far outside the training distribution still map into
// [0,1]; nothing panics on extreme values.
func (m *Model) Predict(v features.Vector) float64 {
	sum := 0.0
	for i := range m.trees {
		sum += m.trees[i].eval(v)
	}
	if m.logitLeaves {
		return sigmoid(m.initScore + sum)
	}
	return clamp01(m.initScore + sum/float64(len(m.trees)))
}

// Baseline returns the mean prediction over the background sample, the
// reference point the Shapley attributions are measured from.
func (m *Model) Baseline() float64 {
	return m.baseline
}

// Label maps a probability onto the categorical verdict using the artifact's
// thresholds.
func (m *Model) Label(p float64) Label {
	switch {
	case p <= m.neutralMax:
		return Neutral
	case p >= m.deleteriousMin:
		return Deleterious
	default:
		return Ambiguous
	}
}

// Classify runs prediction, labelling, and attribution in one pass.
func (m *Model) Classify(v features.Vector) Result {
	p := m.Predict(v)
	return Result{
		Probability:  p,
		Label:        m.Label(p),
		Baseline:     m.baseline,
		Attributions: m.Explain(v),
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
