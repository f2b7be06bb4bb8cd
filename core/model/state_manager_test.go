package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

func TestStateManagerLifecycle(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("RandomForestClassifier", "Predict")
	var nfErr *errors.NotFittedError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "Predict", nfErr.Method)

	s.SetDimensions(4, 120)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("RandomForestClassifier", "Predict"))
	assert.NoError(t, s.RequireFeatures("Predict", 4))

	err = s.RequireFeatures("Predict", 3)
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)

	state := s.GetState()
	assert.Equal(t, ModelState{Fitted: true, NFeatures: 4, NSamples: 120}, state)

	s.Reset()
	assert.False(t, s.IsFitted())
	f, n := s.GetDimensions()
	assert.Zero(t, f)
	assert.Zero(t, n)

	s.SetState(state)
	assert.True(t, s.IsFitted())
}
