// Package metrics provides evaluation metrics for classifiers.
package metrics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

// Accuracy は正解率（予測ラベルが正解と完全一致した割合）を計算する
//
// 戻り値は [0, 1] の範囲。空の入力は ValueError、長さの不一致は DimensionError を返す。
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	matches, err := matchVector("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return stat.Mean(matches, nil), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	matches, err := matchVector("ClassificationError", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - stat.Mean(matches, nil), nil
}

// AccuracyMatrix は (n, 1) 行列形式の入力に対して Accuracy を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := columnVectors("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(yTrueVec, yPredVec)
}

// ConfusionMatrix は混同行列を計算する
//
// 要素 (i, j) は正解ラベル i を j と予測したサンプル数。
// ラベルは 0..nClasses-1 の整数でなければならない。
func ConfusionMatrix(yTrue, yPred mat.Matrix, nClasses int) (*mat.Dense, error) {
	if nClasses < 1 {
		return nil, errors.NewValidationError("n_classes", "must be >= 1", nClasses)
	}
	yTrueVec, yPredVec, err := columnVectors("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := 0; i < yTrueVec.Len(); i++ {
		t, p := yTrueVec.AtVec(i), yPredVec.AtVec(i)
		if !validLabel(t, nClasses) || !validLabel(p, nClasses) {
			return nil, errors.NewValueError("ConfusionMatrix", "labels must be integers in [0, n_classes)")
		}
		cm.Set(int(t), int(p), cm.At(int(t), int(p))+1)
	}
	return cm, nil
}

func validLabel(v float64, nClasses int) bool {
	return v >= 0 && v < float64(nClasses) && v == float64(int(v))
}

// matchVector returns 1 where yTrue and yPred agree and 0 elsewhere.
func matchVector(op string, yTrue, yPred *mat.VecDense) ([]float64, error) {
	if yTrue == nil || yTrue.Len() == 0 {
		return nil, errors.NewEmptyDataError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred == nil {
		return nil, errors.NewDimensionError(op, n, 0, 0)
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	matches := make([]float64, n)
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			matches[i] = 1
		}
	}
	return matches, nil
}

// columnVectors copies two (n, 1) matrices into vectors.
func columnVectors(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewEmptyDataError(op, "empty matrix")
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}
	return yTrueVec, yPredVec, nil
}
