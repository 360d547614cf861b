package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/loggy01/alpharing/features"
)

// artifact is the JSON document a trained model is exported as. Trees use the
// flat-array encoding of scikit-learn tree internals: parallel arrays indexed
// by node, children marked -1 on leaves.
type artifact struct {
	FeatureNames []string       `json:"feature_names"`
	InitScore    float64        `json:"init_score"`
	LogitLeaves  bool           `json:"logit_leaves"`
	Trees        []artifactTree `json:"trees"`
	Background   [][]float64    `json:"background"`
	Thresholds   thresholds     `json:"thresholds"`
}

type artifactTree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

type thresholds struct {
	NeutralMax     float64 `json:"neutral_max"`
	DeleteriousMin float64 `json:"deleterious_min"`
}

// LoadFile loads and validates a model artifact from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: opening artifact: %w", err)
	}
	defer f.Close()
	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return m, nil
}

// Load reads a model artifact and validates it fully, so that every later
// Predict or Explain call is infallible. Structural problems surface as
// ErrConfiguration.
func Load(r io.Reader) (*Model, error) {
	var art artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&art); err != nil {
		return nil, fmt.Errorf("%w: decoding artifact: %v", ErrConfiguration, err)
	}
	return build(&art)
}

func build(art *artifact) (*Model, error) {
	if err := checkFeatureNames(art.FeatureNames); err != nil {
		return nil, err
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: empty forest", ErrConfiguration)
	}

	m := &Model{
		trees:       make([]tree, len(art.Trees)),
		initScore:   art.InitScore,
		logitLeaves: art.LogitLeaves,
	}
	for i := range art.Trees {
		t, err := checkTree(&art.Trees[i])
		if err != nil {
			return nil, fmt.Errorf("%w (tree %d)", err, i)
		}
		m.trees[i] = t
	}

	if len(art.Background) == 0 {
		return nil, fmt.Errorf("%w: empty background sample", ErrConfiguration)
	}
	m.background = make([]features.Vector, len(art.Background))
	for i, row := range art.Background {
		if len(row) != features.Count {
			return nil, fmt.Errorf("%w: background row %d has %d values, want %d",
				ErrConfiguration, i, len(row), features.Count)
		}
		copy(m.background[i][:], row)
	}

	th := art.Thresholds
	if th == (thresholds{}) {
		th = thresholds{NeutralMax: DefaultNeutralMax, DeleteriousMin: DefaultDeleteriousMin}
	}
	if th.NeutralMax < 0 || th.DeleteriousMin > 1 || th.NeutralMax > th.DeleteriousMin {
		return nil, fmt.Errorf("%w: thresholds %v/%v out of order",
			ErrConfiguration, th.NeutralMax, th.DeleteriousMin)
	}
	m.neutralMax = th.NeutralMax
	m.deleteriousMin = th.DeleteriousMin

	// The baseline is fixed by the artifact, so compute it once here.
	sum := 0.0
	for _, b := range m.background {
		sum += m.Predict(b)
	}
	m.baseline = sum / float64(len(m.background))

	return m, nil
}

func checkFeatureNames(got []string) error {
	want := features.Names()
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d feature names, want %d", ErrConfiguration, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrConfiguration, i, got[i], want[i])
		}
	}
	return nil
}

// checkTree validates one flat-array tree: parallel arrays of equal length,
// leaves marked on both child slots, internal nodes referencing a real
// feature and strictly later nodes (which rules out cycles).
func checkTree(at *artifactTree) (tree, error) {
	n := len(at.Feature)
	if n == 0 {
		return tree{}, fmt.Errorf("%w: empty tree", ErrConfiguration)
	}
	if len(at.Threshold) != n || len(at.Left) != n || len(at.Right) != n || len(at.Value) != n {
		return tree{}, fmt.Errorf("%w: ragged node arrays", ErrConfiguration)
	}
	for i := 0; i < n; i++ {
		l, r := at.Left[i], at.Right[i]
		if l < 0 || r < 0 {
			if l >= 0 || r >= 0 {
				return tree{}, fmt.Errorf("%w: node %d half leaf", ErrConfiguration, i)
			}
			continue
		}
		if at.Feature[i] < 0 || at.Feature[i] >= features.Count {
			return tree{}, fmt.Errorf("%w: node %d splits on feature %d", ErrConfiguration, i, at.Feature[i])
		}
		if l >= n || r >= n {
			return tree{}, fmt.Errorf("%w: node %d child out of range", ErrConfiguration, i)
		}
		if l <= i || r <= i {
			return tree{}, fmt.Errorf("%w: node %d child precedes parent", ErrConfiguration, i)
		}
	}
	return tree{
		feature:   at.Feature,
		threshold: at.Threshold,
		left:      at.Left,
		right:     at.Right,
		value:     at.Value,
	}, nil
}
