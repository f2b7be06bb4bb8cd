// Package model_selection partitions datasets into training and test subsets.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

// Split は TrainTestSplit の結果。
// TrainIndices と TestIndices は互いに素で、合わせると全サンプルを覆う。
type Split struct {
	TrainIndices []int
	TestIndices  []int

	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain *mat.Dense
	YTest  *mat.Dense
}

type splitConfig struct {
	testSize    float64
	randomState int64
	shuffle     bool
	stratify    bool
}

// Option は TrainTestSplit の設定を変更する
type Option func(*splitConfig)

// WithTestSize はテストに回すサンプルの割合を設定する（デフォルト 0.25）
func WithTestSize(size float64) Option {
	return func(c *splitConfig) { c.testSize = size }
}

// WithRandomState はシャッフルのシードを設定する。-1 は毎回異なる乱数を使う。
func WithRandomState(seed int64) Option {
	return func(c *splitConfig) { c.randomState = seed }
}

// WithShuffle は分割前にシャッフルするかを設定する（デフォルト true）
func WithShuffle(shuffle bool) Option {
	return func(c *splitConfig) { c.shuffle = shuffle }
}

// WithStratify はクラス比率を保ったまま分割するかを設定する。y の1列目をラベルとして使う。
func WithStratify(stratify bool) Option {
	return func(c *splitConfig) { c.stratify = stratify }
}

// TrainTestSplit は X と y を訓練用とテスト用に分割する。
//
// テストサンプル数は ceil(testSize * n)、訓練サンプル数は残り全部。
// 同じ randomState なら常に同じ分割を返す。
//
// 使用例:
//
//	split, err := model_selection.TrainTestSplit(iris.X, iris.Y,
//	    model_selection.WithTestSize(0.2),
//	    model_selection.WithRandomState(42),
//	)
func TrainTestSplit(X, y mat.Matrix, opts ...Option) (*Split, error) {
	cfg := &splitConfig{
		testSize:    0.25,
		randomState: -1,
		shuffle:     true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return nil, errors.NewEmptyDataError("TrainTestSplit", "X has no samples")
	}
	yRows, _ := y.Dims()
	if yRows != nSamples {
		return nil, errors.NewDimensionError("TrainTestSplit", nSamples, yRows, 0)
	}
	if math.IsNaN(cfg.testSize) || cfg.testSize <= 0 || cfg.testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}
	if cfg.stratify && !cfg.shuffle {
		return nil, errors.NewValidationError("stratify", "stratified split requires shuffle", cfg.stratify)
	}
	if cfg.stratify {
		if err := checkLabels(y, nSamples); err != nil {
			return nil, err
		}
	}

	nTest := int(math.Ceil(cfg.testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, errors.NewValueError("TrainTestSplit",
			"test_size leaves an empty train or test set for the given number of samples")
	}

	var trainIdx, testIdx []int
	switch {
	case !cfg.shuffle:
		trainIdx, testIdx = sequentialIndices(nSamples, nTrain)
	case cfg.stratify:
		trainIdx, testIdx = stratifiedIndices(y, nSamples, nTest, newRand(cfg.randomState))
	default:
		trainIdx, testIdx = shuffledIndices(nSamples, nTest, newRand(cfg.randomState))
	}

	return &Split{
		TrainIndices: trainIdx,
		TestIndices:  testIdx,
		XTrain:       extractRows(X, trainIdx),
		XTest:        extractRows(X, testIdx),
		YTrain:       extractRows(y, trainIdx),
		YTest:        extractRows(y, testIdx),
	}, nil
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func sequentialIndices(n, nTrain int) (train, test []int) {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices[:nTrain], indices[nTrain:]
}

// shuffledIndices permutes 0..n-1 and takes the first nTest as the test set.
func shuffledIndices(n, nTest int, r *rand.Rand) (train, test []int) {
	perm := r.Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	return train, test
}

// checkLabels rejects labels that cannot key a class: NaN, Inf or non-integer.
func checkLabels(y mat.Matrix, n int) error {
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return errors.NewValueError("TrainTestSplit",
				fmt.Sprintf("stratify requires integer class labels, got %v at row %d", v, i))
		}
	}
	return nil
}

// stratifiedIndices allocates nTest across classes proportionally to their
// size. Leftover slots go to the classes with the largest fractional share,
// ties broken by ascending label.
func stratifiedIndices(y mat.Matrix, n, nTest int, r *rand.Rand) (train, test []int) {
	classIndices := make(map[float64][]int)
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	alloc := make([]int, len(labels))
	frac := make([]float64, len(labels))
	assigned := 0
	for k, label := range labels {
		exact := float64(nTest) * float64(len(classIndices[label])) / float64(n)
		alloc[k] = int(math.Floor(exact))
		frac[k] = exact - float64(alloc[k])
		assigned += alloc[k]
	}
	order := make([]int, len(labels))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
	for i := 0; assigned < nTest; i++ {
		k := order[i%len(order)]
		if alloc[k] < len(classIndices[labels[k]]) {
			alloc[k]++
			assigned++
		}
	}

	for k, label := range labels {
		idx := classIndices[label]
		r.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
		test = append(test, idx[:alloc[k]]...)
		train = append(train, idx[alloc[k]:]...)
	}
	r.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	r.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	return train, test
}

// extractRows copies the given rows of m into a new dense matrix.
func extractRows(m mat.Matrix, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}
