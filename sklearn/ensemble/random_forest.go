// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/core/model"
	"github.com/YuminosukeSato/irisforest/core/parallel"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/YuminosukeSato/irisforest/pkg/log"
	"github.com/YuminosukeSato/irisforest/sklearn/tree"
)

const modelName = "RandomForestClassifier"

// Voting strategies accepted by WithVoting.
const (
	VotingHard = "hard" // majority of per-tree predictions
	VotingSoft = "soft" // argmax of the mean class probabilities
)

// Feature sampling strategies accepted by WithMaxFeatures.
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// predictParallelThreshold is the sample count above which Predict fans out.
const predictParallelThreshold = 256

// bootstrapStream decorrelates the bootstrap draws from the tree's own
// feature-sampling stream, which is seeded with the same value.
const bootstrapStream = 0x9e3779b97f4a7c15

// RandomForestClassifier fits a number of decision trees on bootstrap samples
// and combines them by voting.
// Compatible with scikit-learn's RandomForestClassifier
type RandomForestClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	nEstimators     int    // Number of trees
	criterion       string // Split quality: "gini", "entropy"
	maxDepth        int    // Maximum depth per tree, 0 means unlimited
	minSamplesSplit int    // Minimum samples required to split a node
	minSamplesLeaf  int    // Minimum samples required in each leaf
	maxFeatures     string // "sqrt", "log2", "all" or a positive integer
	bootstrap       bool   // Draw a bootstrap sample per tree
	oobScore        bool   // Estimate accuracy on out-of-bag samples
	voting          string // "hard" or "soft"
	randomState     int64  // Random seed, -1 for random
	nJobs           int    // Parallel workers, <= 0 means all CPUs

	logger log.Logger

	// Model parameters
	estimators_         []*tree.DecisionTreeClassifier
	classes_            []int
	nClasses_           int
	featureImportances_ []float64
	oobScore_           float64
}

// RandomForestOption is a functional option for RandomForestClassifier
type RandomForestOption func(*RandomForestClassifier)

var (
	_ model.Classifier         = (*RandomForestClassifier)(nil)
	_ model.ImportanceReporter = (*RandomForestClassifier)(nil)
	_ model.ParameterGetter    = (*RandomForestClassifier)(nil)
	_ model.ParameterSetter    = (*RandomForestClassifier)(nil)
)

// NewRandomForestClassifier creates a new RandomForestClassifier
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesSqrt,
		bootstrap:       true,
		voting:          VotingHard,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(rf)
	}
	if rf.logger == nil {
		rf.logger = log.GetLogger()
	}
	rf.logger = rf.logger.With(log.ModelNameKey, modelName)
	return rf
}

// WithNEstimators sets the number of trees in the forest
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithCriterion sets the split quality measure of every tree
func WithCriterion(criterion string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.criterion = criterion
	}
}

// WithMaxDepth sets the maximum depth of every tree. 0 means unlimited.
func WithMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf
func WithMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the per-split feature sampling strategy:
// "sqrt" (default), "log2", "all", or a positive integer such as "2".
func WithMaxFeatures(strategy string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = strategy
	}
}

// WithBootstrap sets whether each tree is trained on a bootstrap sample
func WithBootstrap(bootstrap bool) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = bootstrap
	}
}

// WithOOBScore enables the out-of-bag accuracy estimate. Requires bootstrap.
func WithOOBScore(enabled bool) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.oobScore = enabled
	}
}

// WithVoting sets how tree outputs are combined ("hard" or "soft").
// The default "hard" takes the majority of per-tree labels; scikit-learn's
// forest predicts the argmax of mean probabilities, which is "soft" here.
func WithVoting(voting string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.voting = voting
	}
}

// WithRandomState sets the seed from which every tree's seed is derived
func WithRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// WithNJobs bounds the number of goroutines used to fit trees
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nJobs = n
	}
}

// WithLogger sets the logger used for fit progress
func WithLogger(logger log.Logger) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.logger = logger
	}
}

// Fit builds the forest from the training set (X, y).
//
// Tree seeds are drawn up front from a single stream, so the fitted forest
// depends only on the random state and not on goroutine scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if err := rf.validateParams(); err != nil {
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
	classes, err := uniqueClasses(y, nSamples)
	if err != nil {
		return err
	}
	maxFeatures, err := resolveMaxFeatures(rf.maxFeatures, nFeatures)
	if err != nil {
		return err
	}

	start := time.Now()
	rf.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		log.NEstimatorsKey, rf.nEstimators,
	)

	master := newRand(rf.randomState)
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = int64(master.Uint64() >> 1)
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	inBag := make([][]bool, rf.nEstimators)

	err = parallel.ForEach(rf.nEstimators, rf.nJobs, "fit tree", func(i int) error {
		t, bag, err := rf.fitTree(X, y, nSamples, classes, maxFeatures, seeds[i])
		if err != nil {
			return err
		}
		trees[i] = t
		inBag[i] = bag
		rf.logger.Debug("Tree fitted",
			log.WorkerIDKey, i,
			"tree.depth", t.GetDepth(),
			"tree.leaves", t.GetNLeaves(),
		)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, modelName+".Fit")
	}

	rf.state.Reset()
	rf.estimators_ = trees
	rf.classes_ = classes
	rf.nClasses_ = len(classes)
	rf.featureImportances_ = meanImportances(trees, nFeatures)
	rf.oobScore_ = 0
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()

	fields := []any{
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if rf.oobScore {
		rf.oobScore_ = rf.computeOOBScore(X, y, inBag)
		fields = append(fields, log.OOBScoreKey, rf.oobScore_)
	}
	rf.logger.Info("Training completed", fields...)
	return nil
}

// fitTree fits one tree on a bootstrap sample (or the full set) and returns
// the in-bag mask.
func (rf *RandomForestClassifier) fitTree(X, y mat.Matrix, n int, classes []int, maxFeatures int, seed int64) (*tree.DecisionTreeClassifier, []bool, error) {
	t := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(seed),
		tree.WithClasses(classes),
	)

	bag := make([]bool, n)
	if !rf.bootstrap {
		for i := range bag {
			bag[i] = true
		}
		return t, bag, t.Fit(X, y)
	}

	r := rand.New(rand.NewPCG(uint64(seed), bootstrapStream))
	_, nFeatures := X.Dims()
	Xb := mat.NewDense(n, nFeatures, nil)
	yb := mat.NewDense(n, 1, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < n; i++ {
		idx := r.IntN(n)
		bag[idx] = true
		Xb.SetRow(i, mat.Row(row, idx, X))
		yb.Set(i, 0, y.At(idx, 0))
	}
	return t, bag, t.Fit(Xb, yb)
}

// computeOOBScore scores every sample with the trees that did not see it.
// Samples that were in bag for every tree are skipped with a warning.
func (rf *RandomForestClassifier) computeOOBScore(X, y mat.Matrix, inBag [][]bool) float64 {
	nSamples, nFeatures := X.Dims()
	row := make([]float64, nFeatures)
	proba := make([]float64, rf.nClasses_)
	sum := make([]float64, rf.nClasses_)

	correct, scored := 0, 0
	for i := 0; i < nSamples; i++ {
		for k := range sum {
			sum[k] = 0
		}
		votes := 0
		mat.Row(row, i, X)
		for t, est := range rf.estimators_ {
			if inBag[t][i] {
				continue
			}
			est.PredictProbaRow(row, proba)
			floats.Add(sum, proba)
			votes++
		}
		if votes == 0 {
			continue
		}
		scored++
		if rf.classes_[majority(sum)] == int(y.At(i, 0)) {
			correct++
		}
	}

	if scored < nSamples {
		errors.Warn(errors.NewUndefinedMetricWarning("oob_score",
			strconv.Itoa(nSamples-scored)+" samples were in bag for every tree", 0))
	}
	if scored == 0 {
		return 0
	}
	return float64(correct) / float64(scored)
}

// Predict returns the predicted class label for each row of X as an (n, 1) matrix
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.checkInput(X, "Predict"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	parallel.ParallelizeWithThreshold(nSamples, predictParallelThreshold, func(lo, hi int) {
		row := make([]float64, nFeatures)
		scores := make([]float64, rf.nClasses_)
		proba := make([]float64, rf.nClasses_)
		for i := lo; i < hi; i++ {
			mat.Row(row, i, X)
			for k := range scores {
				scores[k] = 0
			}
			for _, est := range rf.estimators_ {
				if rf.voting == VotingSoft {
					est.PredictProbaRow(row, proba)
					floats.Add(scores, proba)
				} else {
					scores[est.PredictRow(row)]++
				}
			}
			predictions.Set(i, 0, float64(rf.classes_[majority(scores)]))
		}
	})
	return predictions, nil
}

// PredictProba returns the mean class probabilities of the trees as an
// (n, n_classes) matrix. Columns follow Classes().
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.checkInput(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	probas := mat.NewDense(nSamples, rf.nClasses_, nil)
	scale := 1 / float64(len(rf.estimators_))
	parallel.ParallelizeWithThreshold(nSamples, predictParallelThreshold, func(lo, hi int) {
		row := make([]float64, nFeatures)
		proba := make([]float64, rf.nClasses_)
		for i := lo; i < hi; i++ {
			mat.Row(row, i, X)
			dst := probas.RawRowView(i)
			for _, est := range rf.estimators_ {
				est.PredictProbaRow(row, proba)
				floats.Add(dst, proba)
			}
			floats.Scale(scale, dst)
		}
	})
	return probas, nil
}

func (rf *RandomForestClassifier) checkInput(X mat.Matrix, method string) error {
	if err := rf.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if err := rf.state.RequireFeatures(modelName+"."+method, cols); err != nil {
		return err
	}
	return errors.CheckMatrix(modelName+"."+method, X, rows, cols)
}

// Score returns the mean accuracy on the given test data and labels
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := rf.Predict(X)
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
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// Classes returns the class labels in probability-column order
func (rf *RandomForestClassifier) Classes() []int {
	return append([]int(nil), rf.classes_...)
}

// NClasses returns the number of classes
func (rf *RandomForestClassifier) NClasses() int {
	return rf.nClasses_
}

// Estimators returns the fitted trees
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return append([]*tree.DecisionTreeClassifier(nil), rf.estimators_...)
}

// GetFeatureImportances returns the mean impurity-based importance across trees, normalized to sum to 1
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.featureImportances_...)
}

// OOBScore returns the out-of-bag accuracy computed during Fit.
func (rf *RandomForestClassifier) OOBScore() (float64, error) {
	if err := rf.state.RequireFitted(modelName, "OOBScore"); err != nil {
		return 0, err
	}
	if !rf.oobScore {
		return 0, errors.NewValueError(modelName+".OOBScore", "oob_score was not enabled for this fit")
	}
	return rf.oobScore_, nil
}

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"oob_score":         rf.oobScore,
		"voting":            rf.voting,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

// SetParams sets the model hyperparameters
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			rf.nEstimators, err = toInt(key, value)
		case "criterion":
			rf.criterion, err = toString(key, value)
		case "max_depth":
			rf.maxDepth, err = toInt(key, value)
		case "min_samples_split":
			rf.minSamplesSplit, err = toInt(key, value)
		case "min_samples_leaf":
			rf.minSamplesLeaf, err = toInt(key, value)
		case "max_features":
			switch v := value.(type) {
			case string:
				rf.maxFeatures = v
			case int:
				rf.maxFeatures = strconv.Itoa(v)
			default:
				err = errors.NewValidationError(key, "must be a string or int", value)
			}
		case "bootstrap":
			rf.bootstrap, err = toBool(key, value)
		case "oob_score":
			rf.oobScore, err = toBool(key, value)
		case "voting":
			rf.voting, err = toString(key, value)
		case "random_state":
			var seed int
			seed, err = toInt(key, value)
			rf.randomState = int64(seed)
		case "n_jobs":
			rf.nJobs, err = toInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return rf.validateParams()
}

func (rf *RandomForestClassifier) validateParams() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	if rf.criterion != "gini" && rf.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be gini or entropy", rf.criterion)
	}
	if rf.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", rf.maxDepth)
	}
	if rf.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", rf.minSamplesSplit)
	}
	if rf.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", rf.minSamplesLeaf)
	}
	if _, err := resolveMaxFeatures(rf.maxFeatures, 1); err != nil {
		return err
	}
	if rf.voting != VotingHard && rf.voting != VotingSoft {
		return errors.NewValidationError("voting", "must be hard or soft", rf.voting)
	}
	if rf.oobScore && !rf.bootstrap {
		return errors.NewValidationError("oob_score", "out-of-bag estimation requires bootstrap", rf.oobScore)
	}
	return nil
}

// resolveMaxFeatures turns the strategy into a per-split feature count.
func resolveMaxFeatures(strategy string, nFeatures int) (int, error) {
	switch strategy {
	case MaxFeaturesSqrt:
		return max(1, int(math.Sqrt(float64(nFeatures)))), nil
	case MaxFeaturesLog2:
		return max(1, int(math.Log2(float64(nFeatures)))), nil
	case MaxFeaturesAll:
		return nFeatures, nil
	}
	n, err := strconv.Atoi(strategy)
	if err != nil || n < 1 {
		return 0, errors.NewValidationError("max_features", "must be sqrt, log2, all or a positive integer", strategy)
	}
	return min(n, nFeatures), nil
}

func uniqueClasses(y mat.Matrix, n int) ([]int, error) {
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, errors.NewValueError(modelName+".Fit", "class labels must be integers")
		}
		seen[int(v)] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes, nil
}

// majority returns the class index with the highest score. Ties go to the
// lowest index.
func majority(scores []float64) int {
	return floats.MaxIdx(scores)
}

func meanImportances(trees []*tree.DecisionTreeClassifier, nFeatures int) []float64 {
	total := make([]float64, nFeatures)
	for _, t := range trees {
		floats.Add(total, t.GetFeatureImportances())
	}
	if s := floats.Sum(total); s > 0 {
		floats.Scale(1/s, total)
	}
	return total
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
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

func toString(key string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", errors.NewValidationError(key, "must be a string", value)
	}
	return s, nil
}

func toBool(key string, value interface{}) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, errors.NewValidationError(key, "must be a bool", value)
	}
	return b, nil
}
