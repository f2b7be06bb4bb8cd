package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// ファイルは関数内で作成・書き込み・クローズされる。
// 保存先ディレクトリが存在しない場合、返されるエラーは
// errors.Is(err, fs.ErrNotExist) を満たす。
//
// パラメータ:
//   - model: 保存するモデル（gobでエンコード可能な値）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	rf := ensemble.NewRandomForestClassifier()
//	// ... モデルの学習 ...
//	err := model.SaveModel(rf, "models/iris_model.pkl")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.NewModelError("SaveModel", "failed to create file", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.NewModelError("SaveModel", "failed to close file", cerr)
		}
	}()

	if err := SaveModelToWriter(model, file); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のモデル（ポインタ）
//   - filename: 読み込み元のファイルパス
//
// 使用例:
//
//	var rf ensemble.RandomForestClassifier
//	err := model.LoadModel(&rf, "models/iris_model.pkl")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewModelError("LoadModel", "failed to open file", err)
	}
	defer file.Close()

	if err := LoadModelFromReader(model, file); err != nil {
		return errors.Wrapf(err, "load %s", filename)
	}
	return nil
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.NewModelError("SaveModel", "failed to encode model", err)
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.NewModelError("LoadModel", "failed to decode model", err)
	}
	return nil
}
