package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/irisforest/core/model"
	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

// treeSnapshot is the gob wire form of a DecisionTreeClassifier.
type treeSnapshot struct {
	State model.ModelState

	Criterion           string
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int
	MinImpurityDecrease float64
	RandomState         int64
	FixedClasses        []int

	Nodes              []Node
	Classes            []int
	FeatureImportances []float64
	Depth              int
	NLeaves            int
}

// GobEncode implements gob.GobEncoder so model.SaveModel can persist the tree.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	snap := treeSnapshot{
		State:               dt.state.GetState(),
		Criterion:           dt.criterion,
		MaxDepth:            dt.maxDepth,
		MinSamplesSplit:     dt.minSamplesSplit,
		MinSamplesLeaf:      dt.minSamplesLeaf,
		MaxFeatures:         dt.maxFeatures,
		MinImpurityDecrease: dt.minImpurityDecrease,
		RandomState:         dt.randomState,
		FixedClasses:        dt.fixedClasses,
		Nodes:               dt.nodes,
		Classes:             dt.classes_,
		FeatureImportances:  dt.featureImportances_,
		Depth:               dt.depth_,
		NLeaves:             dt.nLeaves_,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, errors.NewModelError(modelName+".GobEncode", "failed to encode tree", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var snap treeSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.NewModelError(modelName+".GobDecode", "failed to decode tree", err)
	}

	dt.state = model.NewStateManager()
	dt.state.SetState(snap.State)
	dt.criterion = snap.Criterion
	dt.maxDepth = snap.MaxDepth
	dt.minSamplesSplit = snap.MinSamplesSplit
	dt.minSamplesLeaf = snap.MinSamplesLeaf
	dt.maxFeatures = snap.MaxFeatures
	dt.minImpurityDecrease = snap.MinImpurityDecrease
	dt.randomState = snap.RandomState
	dt.fixedClasses = snap.FixedClasses
	dt.nodes = snap.Nodes
	dt.classes_ = snap.Classes
	dt.nClasses_ = len(snap.Classes)
	dt.featureImportances_ = snap.FeatureImportances
	dt.depth_ = snap.Depth
	dt.nLeaves_ = snap.NLeaves
	return nil
}
