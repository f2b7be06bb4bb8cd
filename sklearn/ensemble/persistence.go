package ensemble

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/irisforest/core/model"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/YuminosukeSato/irisforest/pkg/log"
	"github.com/YuminosukeSato/irisforest/sklearn/tree"
)

// forestSnapshot is the gob wire form of a RandomForestClassifier.
// Trees encode themselves through tree.DecisionTreeClassifier.GobEncode.
type forestSnapshot struct {
	State model.ModelState

	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	OOBScore        bool
	Voting          string
	RandomState     int64
	NJobs           int

	Estimators         []*tree.DecisionTreeClassifier
	Classes            []int
	FeatureImportances []float64
	OOBScoreValue      float64
}

// GobEncode implements gob.GobEncoder so model.SaveModel can persist the forest.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	snap := forestSnapshot{
		State:              rf.state.GetState(),
		NEstimators:        rf.nEstimators,
		Criterion:          rf.criterion,
		MaxDepth:           rf.maxDepth,
		MinSamplesSplit:    rf.minSamplesSplit,
		MinSamplesLeaf:     rf.minSamplesLeaf,
		MaxFeatures:        rf.maxFeatures,
		Bootstrap:          rf.bootstrap,
		OOBScore:           rf.oobScore,
		Voting:             rf.voting,
		RandomState:        rf.randomState,
		NJobs:              rf.nJobs,
		Estimators:         rf.estimators_,
		Classes:            rf.classes_,
		FeatureImportances: rf.featureImportances_,
		OOBScoreValue:      rf.oobScore_,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, errors.NewModelError(modelName+".GobEncode", "failed to encode forest", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. The decoded forest logs through the
// process-wide logger.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var snap forestSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.NewModelError(modelName+".GobDecode", "failed to decode forest", err)
	}

	rf.state = model.NewStateManager()
	rf.state.SetState(snap.State)
	rf.nEstimators = snap.NEstimators
	rf.criterion = snap.Criterion
	rf.maxDepth = snap.MaxDepth
	rf.minSamplesSplit = snap.MinSamplesSplit
	rf.minSamplesLeaf = snap.MinSamplesLeaf
	rf.maxFeatures = snap.MaxFeatures
	rf.bootstrap = snap.Bootstrap
	rf.oobScore = snap.OOBScore
	rf.voting = snap.Voting
	rf.randomState = snap.RandomState
	rf.nJobs = snap.NJobs
	rf.estimators_ = snap.Estimators
	rf.classes_ = snap.Classes
	rf.nClasses_ = len(snap.Classes)
	rf.featureImportances_ = snap.FeatureImportances
	rf.oobScore_ = snap.OOBScoreValue
	rf.logger = log.GetLogger().With(log.ModelNameKey, modelName)
	return nil
}
