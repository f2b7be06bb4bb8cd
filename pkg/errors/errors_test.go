package errors

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "tree fitting failed",
			err:      fmt.Errorf("test error"),
			wantMsg:  "irisforest: Fit: tree fitting failed: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "irisforest: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestModelErrorUnwrapKeepsCause(t *testing.T) {
	err := NewModelError("SaveModel", "create file", fs.ErrNotExist)
	if !Is(err, fs.ErrNotExist) {
		t.Error("Expected Is(err, fs.ErrNotExist) to be true")
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 4, 3, 1)

	want := "irisforest: Predict: dimension mismatch on axis 1 (features). Expected 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 4 || dimErr.Got != 3 {
		t.Errorf("unexpected fields: %+v", dimErr)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestClassifier", "Predict")

	want := "irisforest: RandomForestClassifier: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValueError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		param   string
		value   interface{}
		message string
		wantMsg string
	}{
		{
			name:    "with message",
			op:      "TrainTestSplit",
			param:   "test_size",
			value:   1.5,
			message: "must be in (0, 1)",
			wantMsg: "irisforest: TrainTestSplit: test_size: 1.5 (must be in (0, 1))",
		},
		{
			name:    "without message",
			op:      "SetParams",
			param:   "n_estimators",
			value:   0,
			message: "",
			wantMsg: "irisforest: SetParams: n_estimators: 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.message != "" {
				err = NewValueError(tt.op, fmt.Sprintf("%s: %v (%s)", tt.param, tt.value, tt.message))
			} else {
				err = NewValueError(tt.op, fmt.Sprintf("%s: %v", tt.param, tt.value))
			}

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			var valErr *ValueError
			if !As(err, &valErr) {
				t.Error("Error should be castable to *ValueError")
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("max_features", "unknown strategy", "cube")

	want := "irisforest: validation failed for parameter 'max_features': unknown strategy (got: cube)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWarnUsesZerologFuncWhenSet(t *testing.T) {
	var handled, zerologged []error
	prev := warningHandler
	SetWarningHandler(func(w error) { handled = append(handled, w) })
	defer SetWarningHandler(prev)

	w := NewUndefinedMetricWarning("oob_score", "some samples were never out of bag", 0)
	Warn(w)
	if len(handled) != 1 {
		t.Fatalf("expected fallback handler to receive 1 warning, got %d", len(handled))
	}

	SetZerologWarnFunc(func(w error) { zerologged = append(zerologged, w) })
	defer SetZerologWarnFunc(nil)

	Warn(w)
	if len(zerologged) != 1 || len(handled) != 1 {
		t.Errorf("expected zerolog func to take over, got handled=%d zerologged=%d", len(handled), len(zerologged))
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestNewEmptyDataError(t *testing.T) {
	err := Wrap(NewEmptyDataError("Accuracy", "empty vector"), "score test set")

	if !Is(err, ErrEmptyData) {
		t.Error("Expected Is(err, ErrEmptyData) to be true")
	}
	var valErr *ValueError
	if !As(err, &valErr) {
		t.Fatal("Error should be castable to *ValueError")
	}
	if valErr.Op != "Accuracy" || valErr.Message != "empty vector" {
		t.Errorf("unexpected fields: %+v", valErr)
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}
