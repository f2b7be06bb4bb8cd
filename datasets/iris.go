// Package datasets loads the small reference datasets bundled with irisforest.
package datasets

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

//go:embed data/iris.csv
var irisCSV []byte

// Bunch は特徴量行列とラベル、列名をまとめたデータセット
type Bunch struct {
	// X は (n_samples, n_features) の特徴量行列
	X *mat.Dense
	// Y は (n_samples, 1) のクラスラベル
	Y *mat.Dense
	// FeatureNames は X の列名
	FeatureNames []string
	// TargetNames はラベル値 i に対応するクラス名
	TargetNames []string
}

// NSamples はサンプル数を返す
func (b *Bunch) NSamples() int {
	r, _ := b.X.Dims()
	return r
}

// NFeatures は特徴量数を返す
func (b *Bunch) NFeatures() int {
	_, c := b.X.Dims()
	return c
}

var irisTargetNames = []string{"setosa", "versicolor", "virginica"}

// LoadIris は Fisher の iris データセット（150 サンプル, 4 特徴量, 3 クラス）を読み込む。
//
// 値は scikit-learn 同梱版と同じ（35 行目と 38 行目が修正済みのもの）。
// 呼び出しごとに新しい行列を返すので、結果を書き換えても他に影響しない。
func LoadIris() (*Bunch, error) {
	return parseLabeledCSV(bytes.NewReader(irisCSV), irisTargetNames)
}

// parseLabeledCSV reads a header row followed by rows of float features with
// an integer label in the last column.
func parseLabeledCSV(r io.Reader, targetNames []string) (*Bunch, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewModelError("LoadIris", "failed to read embedded csv", err)
	}
	if len(records) < 2 {
		return nil, errors.NewValueError("LoadIris", "dataset has no rows")
	}

	header := records[0]
	nFeatures := len(header) - 1
	if nFeatures < 1 {
		return nil, errors.NewValueError("LoadIris", "header must contain at least one feature and a target column")
	}
	rows := records[1:]

	X := mat.NewDense(len(rows), nFeatures, nil)
	Y := mat.NewDense(len(rows), 1, nil)
	for i, rec := range rows {
		for j := 0; j < nFeatures; j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, errors.Wrapf(
					errors.NewValueError("LoadIris", "invalid feature value"),
					"row %d column %q: %v", i+1, header[j], err)
			}
			X.Set(i, j, v)
		}
		label, err := strconv.Atoi(rec[nFeatures])
		if err != nil || label < 0 || label >= len(targetNames) {
			return nil, errors.Wrapf(
				errors.NewValueError("LoadIris", "invalid target label"),
				"row %d: %q", i+1, rec[nFeatures])
		}
		Y.Set(i, 0, float64(label))
	}

	names := make([]string, nFeatures)
	copy(names, header[:nFeatures])
	targets := make([]string, len(targetNames))
	copy(targets, targetNames)

	return &Bunch{X: X, Y: Y, FeatureNames: names, TargetNames: targets}, nil
}
