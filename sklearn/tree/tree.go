// Package tree implements CART decision tree classifiers on gonum matrices.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/core/model"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

const modelName = "DecisionTreeClassifier"

// Node is one entry of the flat node array. Children are indices into the
// same array; leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Impurity  float64
	NSamples  int
	// Value holds the per-class sample counts that reached this node.
	Value []float64
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return n.Feature < 0 }

// DecisionTreeClassifier implements a CART decision tree for classification
// Compatible with scikit-learn's DecisionTreeClassifier
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion           string  // Split quality: "gini", "entropy"
	maxDepth            int     // Maximum depth, 0 means unlimited
	minSamplesSplit     int     // Minimum samples required to split a node
	minSamplesLeaf      int     // Minimum samples required in each leaf
	maxFeatures         int     // Features examined per split, 0 means all
	minImpurityDecrease float64 // Weighted impurity decrease required to split
	randomState         int64   // Random seed for feature sampling, -1 for random
	fixedClasses        []int   // Label set pinned by the caller

	// Model parameters
	nodes               []Node
	classes_            []int
	nClasses_           int
	featureImportances_ []float64
	depth_              int
	nLeaves_            int
}

var (
	_ model.Classifier         = (*DecisionTreeClassifier)(nil)
	_ model.ImportanceReporter = (*DecisionTreeClassifier)(nil)
)

// DecisionTreeOption is a functional option for DecisionTreeClassifier
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the split quality measure ("gini" or "entropy")
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum depth of the tree. 0 grows until leaves are pure.
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are examined per split
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithMinImpurityDecrease sets the weighted impurity decrease a split must reach
func WithMinImpurityDecrease(v float64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minImpurityDecrease = v
	}
}

// WithRandomState sets the random seed used for feature sampling
func WithRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// WithClasses pins the label set. PredictProba then has one column per
// given class even if some are absent from the training labels.
func WithClasses(classes []int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.fixedClasses = append([]int(nil), classes...)
	}
}

// Fit builds the tree from the training set (X, y)
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewEmptyDataError(modelName+".Fit", "X must contain at least one sample and one feature")
	}
	yRows, _ := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError(modelName+".Fit", nSamples, yRows, 0)
	}
	if err := errors.CheckMatrix(modelName+".Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	classes, yIdx, err := dt.encodeLabels(y, nSamples)
	if err != nil {
		return err
	}

	b := &builder{
		X:                   X,
		y:                   yIdx,
		nClasses:            len(classes),
		nFeatures:           nFeatures,
		nTotal:              nSamples,
		criterion:           impurityFunc(dt.criterion),
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		maxFeatures:         dt.maxFeatures,
		minImpurityDecrease: dt.minImpurityDecrease,
		rng:                 newRand(dt.randomState),
		importances:         make([]float64, nFeatures),
	}
	samples := make([]int, nSamples)
	for i := range samples {
		samples[i] = i
	}
	b.build(samples, 0)

	dt.state.Reset()
	dt.nodes = b.nodes
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.featureImportances_ = normalize(b.importances)
	dt.depth_ = b.maxDepthSeen
	dt.nLeaves_ = b.nLeaves
	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

// encodeLabels maps y to class indices.
func (dt *DecisionTreeClassifier) encodeLabels(y mat.Matrix, n int) ([]int, []int, error) {
	labels := make([]int, n)
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, nil, errors.NewValueError(modelName+".Fit",
				"class labels must be integers")
		}
		labels[i] = int(v)
		seen[labels[i]] = true
	}

	var classes []int
	if dt.fixedClasses != nil {
		classes = append([]int(nil), dt.fixedClasses...)
		sort.Ints(classes)
	} else {
		classes = make([]int, 0, len(seen))
		for c := range seen {
			classes = append(classes, c)
		}
		sort.Ints(classes)
	}

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	yIdx := make([]int, n)
	for i, l := range labels {
		k, ok := index[l]
		if !ok {
			return nil, nil, errors.NewValueError(modelName+".Fit",
				"label not present in the configured classes")
		}
		yIdx[i] = k
	}
	return classes, yIdx, nil
}

func (dt *DecisionTreeClassifier) validateParams() error {
	if impurityFunc(dt.criterion) == nil {
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.maxFeatures)
	}
	if dt.minImpurityDecrease < 0 {
		return errors.NewValidationError("min_impurity_decrease", "must be >= 0", dt.minImpurityDecrease)
	}
	return nil
}

// Predict returns the predicted class label for each row of X as an (n, 1) matrix
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkInput(X, "Predict"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	nFeatures, _ := dt.state.GetDimensions()
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		leaf := dt.nodes[dt.apply(row)]
		predictions.Set(i, 0, float64(dt.classes_[argmax(leaf.Value)]))
	}
	return predictions, nil
}

// PredictProba returns class probabilities as an (n, n_classes) matrix.
// Columns follow Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkInput(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, dt.nClasses_, nil)
	nFeatures, _ := dt.state.GetDimensions()
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		dt.leafProba(row, probas.RawRowView(i))
	}
	return probas, nil
}

// PredictProbaRow writes the class probabilities for a single sample into dst,
// which must have length NClasses(). The caller is responsible for checking
// the model is fitted and x has the right length.
func (dt *DecisionTreeClassifier) PredictProbaRow(x, dst []float64) {
	dt.leafProba(x, dst)
}

// PredictRow returns the class index (not label) predicted for a single sample.
func (dt *DecisionTreeClassifier) PredictRow(x []float64) int {
	return argmax(dt.nodes[dt.apply(x)].Value)
}

func (dt *DecisionTreeClassifier) leafProba(x, dst []float64) {
	leaf := dt.nodes[dt.apply(x)]
	copy(dst, leaf.Value)
	floats.Scale(1/floats.Sum(leaf.Value), dst)
}

// apply returns the index of the leaf that x falls into.
func (dt *DecisionTreeClassifier) apply(x []float64) int {
	id := 0
	for {
		n := &dt.nodes[id]
		if n.IsLeaf() {
			return id
		}
		if x[n.Feature] <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

func (dt *DecisionTreeClassifier) checkInput(X mat.Matrix, method string) error {
	if err := dt.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if err := dt.state.RequireFeatures(modelName+"."+method, cols); err != nil {
		return err
	}
	return errors.CheckMatrix(modelName+"."+method, X, rows, cols)
}

// Score returns the mean accuracy on the given test data and labels
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples || nSamples == 0 {
		return 0.0
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// IsFitted reports whether Fit has completed
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// Classes returns the class labels in probability-column order
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.classes_...)
}

// NClasses returns the number of classes
func (dt *DecisionTreeClassifier) NClasses() int {
	return dt.nClasses_
}

// GetFeatureImportances returns the normalized total impurity decrease per feature
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the tree. A single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth_
}

// GetNLeaves returns the number of leaves
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return dt.nLeaves_
}

// Nodes returns a copy of the flat node array
func (dt *DecisionTreeClassifier) Nodes() []Node {
	out := make([]Node, len(dt.nodes))
	for i, n := range dt.nodes {
		n.Value = append([]float64(nil), n.Value...)
		out[i] = n
	}
	return out
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          dt.randomState,
	}
}

// SetParams sets the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = s
		case "max_depth":
			dt.maxDepth, err = toInt(key, value)
		case "min_samples_split":
			dt.minSamplesSplit, err = toInt(key, value)
		case "min_samples_leaf":
			dt.minSamplesLeaf, err = toInt(key, value)
		case "max_features":
			dt.maxFeatures, err = toInt(key, value)
		case "min_impurity_decrease":
			f, ok := value.(float64)
			if !ok {
				return errors.NewValidationError(key, "must be a float64", value)
			}
			dt.minImpurityDecrease = f
		case "random_state":
			var seed int
			seed, err = toInt(key, value)
			dt.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return dt.validateParams()
}

func toInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(key, "must be an integer", value)
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// argmax returns the first index of the largest value.
func argmax(values []float64) int {
	return floats.MaxIdx(values)
}

// normalize scales values to sum to 1. An all-zero input stays all zero.
func normalize(values []float64) []float64 {
	out := append([]float64(nil), values...)
	if total := floats.Sum(out); total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}
