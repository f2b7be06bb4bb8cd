// Package irisforest は iris データセットでランダムフォレスト分類器を学習・評価・保存する
// バッチジョブと、それを支える scikit-learn 風の小さな機械学習ライブラリを提供します。
//
// # Quick Start
//
// ジョブ全体は pipeline.Run で実行できます:
//
//	res, err := pipeline.Run(pipeline.DefaultConfig(), os.Stdout)
//	if err != nil {
//	    log.Fatalf("%+v", err)
//	}
//	// Model Accuracy: 90.00%
//	// Model saved to models/iris_model.pkl
//
// 個々の部品を直接使う場合:
//
//	iris, _ := datasets.LoadIris()
//	split, _ := model_selection.TrainTestSplit(iris.X, iris.Y,
//	    model_selection.WithTestSize(0.2),
//	    model_selection.WithRandomState(42),
//	)
//
//	rf := ensemble.NewRandomForestClassifier(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithRandomState(42),
//	)
//	if err := rf.Fit(split.XTrain, split.YTrain); err != nil {
//	    log.Fatal(err)
//	}
//	acc := rf.Score(split.XTest, split.YTest)
//
//	_ = model.SaveModel(rf, "models/iris_model.pkl")
//
// # Packages
//
//   - datasets: 埋め込み済みの iris データ
//   - model_selection: TrainTestSplit
//   - sklearn/tree: DecisionTreeClassifier (CART)
//   - sklearn/ensemble: RandomForestClassifier
//   - metrics: Accuracy, ConfusionMatrix
//   - core/model: インターフェース, 状態管理, gob による永続化
//   - core/parallel: 並列処理ユーティリティ
//   - pkg/errors, pkg/log: 構造化エラーとロギング
//   - viz: 特徴量重要度のバーチャート
//   - pipeline, cmd/iris-train: ジョブ本体と CLI
//
// # License
//
// irisforest is released under the MIT License.
package irisforest
