package errors

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_WithExistingError tests Recover when function has existing error and panic occurs
func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic with existing error, got nil")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "panic in TestOperation") {
		t.Errorf("Error message should contain panic info: %s", errMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

// TestRecover_ErrorPanicUnwraps checks that a panic carrying an error keeps it in the chain
func TestRecover_ErrorPanicUnwraps(t *testing.T) {
	sentinel := fmt.Errorf("index out of range")

	err := SafeExecute("tree worker", func() error {
		panic(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Expected panic error to unwrap to sentinel, got %v", err)
	}
}

// TestSafeExecute_FunctionError tests SafeExecute with function returning error
func TestSafeExecute_FunctionError(t *testing.T) {
	originalErr := fmt.Errorf("function error")

	err := SafeExecute("test operation", func() error {
		return originalErr
	})

	if err != originalErr {
		t.Fatalf("Expected original error, got: %v", err)
	}
}

// TestPanicError_String tests PanicError's detailed string form
func TestPanicError_String(t *testing.T) {
	panicErr := NewPanicError("TestOp", "test value")

	str := panicErr.String()
	if !strings.Contains(str, "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
	if panicErr.Unwrap() != nil {
		t.Error("PanicError.Unwrap() should return nil for non-error panic values")
	}
}

func TestCheckMatrix(t *testing.T) {
	clean := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("fit", clean, 2, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dirty := mat.NewDense(3, 2, []float64{1, 2, 3, 4, math.NaN(), math.Inf(1)})
	err := CheckMatrix("fit", dirty, 3, 2)
	if err == nil {
		t.Fatal("expected error for NaN/Inf input")
	}

	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %T", err)
	}
	if numErr.Iteration != 2 || len(numErr.Values) != 2 {
		t.Errorf("expected row 2 with 2 values, got row %d with %v", numErr.Iteration, numErr.Values)
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("test_size", 0.2, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckScalar("test_size", math.NaN(), 0); err == nil {
		t.Error("expected error for NaN")
	}
}

// BenchmarkRecover_NoPanic tests performance overhead of Recover when no panic occurs
func BenchmarkRecover_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		func() (err error) {
			defer Recover(&err, "BenchmarkOp")
			return nil
		}()
	}
}
