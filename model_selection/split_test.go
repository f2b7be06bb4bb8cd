package model_selection

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/datasets"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

func loadIris(t *testing.T) *datasets.Bunch {
	t.Helper()
	iris, err := datasets.LoadIris()
	require.NoError(t, err)
	return iris
}

func TestTrainTestSplitSizes(t *testing.T) {
	iris := loadIris(t)

	split, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(42))
	require.NoError(t, err)

	assert.Len(t, split.TrainIndices, 120)
	assert.Len(t, split.TestIndices, 30)

	r, c := split.XTrain.Dims()
	assert.Equal(t, 120, r)
	assert.Equal(t, 4, c)
	r, c = split.YTest.Dims()
	assert.Equal(t, 30, r)
	assert.Equal(t, 1, c)
}

func TestTrainTestSplitDisjointAndExhaustive(t *testing.T) {
	iris := loadIris(t)

	split, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(42))
	require.NoError(t, err)

	all := append(append([]int(nil), split.TrainIndices...), split.TestIndices...)
	sort.Ints(all)
	for i, idx := range all {
		require.Equal(t, i, idx)
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	iris := loadIris(t)

	a, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(42))
	require.NoError(t, err)
	b, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(42))
	require.NoError(t, err)
	c, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(7))
	require.NoError(t, err)

	assert.Equal(t, a.TestIndices, b.TestIndices)
	assert.True(t, mat.Equal(a.XTrain, b.XTrain))
	assert.NotEqual(t, a.TestIndices, c.TestIndices)
}

func TestTrainTestSplitRowsFollowIndices(t *testing.T) {
	iris := loadIris(t)

	split, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(42))
	require.NoError(t, err)

	for i, idx := range split.TestIndices {
		assert.Equal(t, mat.Row(nil, idx, iris.X), mat.Row(nil, i, split.XTest))
		assert.Equal(t, iris.Y.At(idx, 0), split.YTest.At(i, 0))
	}
}

func TestTrainTestSplitDefaultTestSize(t *testing.T) {
	iris := loadIris(t)

	split, err := TrainTestSplit(iris.X, iris.Y, WithRandomState(0))
	require.NoError(t, err)
	assert.Len(t, split.TestIndices, 38) // ceil(0.25 * 150)
}

func TestTrainTestSplitNoShuffle(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	y := mat.NewDense(5, 1, []float64{0, 0, 1, 1, 1})

	split, err := TrainTestSplit(X, y, WithTestSize(0.4), WithShuffle(false))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, split.TrainIndices)
	assert.Equal(t, []int{3, 4}, split.TestIndices)
}

func TestTrainTestSplitStratified(t *testing.T) {
	iris := loadIris(t)

	split, err := TrainTestSplit(iris.X, iris.Y, WithTestSize(0.2), WithRandomState(42), WithStratify(true))
	require.NoError(t, err)
	require.Len(t, split.TestIndices, 30)

	counts := map[float64]int{}
	for i := 0; i < len(split.TestIndices); i++ {
		counts[split.YTest.At(i, 0)]++
	}
	assert.Equal(t, map[float64]int{0: 10, 1: 10, 2: 10}, counts)
}

func TestTrainTestSplitValidation(t *testing.T) {
	X := mat.NewDense(4, 2, nil)
	y := mat.NewDense(4, 1, nil)

	tests := []struct {
		name   string
		y      mat.Matrix
		opts   []Option
		target interface{}
	}{
		{"test size zero", y, []Option{WithTestSize(0)}, new(*errors.ValidationError)},
		{"test size one", y, []Option{WithTestSize(1)}, new(*errors.ValidationError)},
		{"empty train", y, []Option{WithTestSize(0.9)}, new(*errors.ValueError)},
		{"row mismatch", mat.NewDense(3, 1, nil), nil, new(*errors.DimensionError)},
		{"stratify without shuffle", y, []Option{WithShuffle(false), WithStratify(true)}, new(*errors.ValidationError)},
		{"stratify nan label", mat.NewDense(4, 1, []float64{0, 0, 1, math.NaN()}), []Option{WithTestSize(0.5), WithStratify(true)}, new(*errors.ValueError)},
		{"stratify all nan labels", mat.NewDense(4, 1, []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}), []Option{WithTestSize(0.5), WithStratify(true)}, new(*errors.ValueError)},
		{"stratify inf label", mat.NewDense(4, 1, []float64{0, 1, math.Inf(1), 1}), []Option{WithStratify(true)}, new(*errors.ValueError)},
		{"stratify fractional label", mat.NewDense(4, 1, []float64{0, 1, 1.5, 1}), []Option{WithStratify(true)}, new(*errors.ValueError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainTestSplit(X, tt.y, tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target), "unexpected error type: %v", err)
		})
	}
}

func TestTrainTestSplitEmptyInput(t *testing.T) {
	_, err := TrainTestSplit(&mat.Dense{}, &mat.Dense{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}
