package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverConvertsPanic(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		wantMsg string
	}{
		{"string panic", "index out of range", "panic in Trainer.Fit: index out of range"},
		{"error panic", errors.New("matrix dimension error"), "panic in Trainer.Fit: matrix dimension error"},
		{"integer panic", 42, "panic in Trainer.Fit: 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("Trainer.Fit", func() error {
				panic(tt.value)
			})
			require.Error(t, err)

			var panicErr *PanicError
			require.True(t, errors.As(err, &panicErr))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, "Trainer.Fit", panicErr.Operation)
			assert.NotEmpty(t, panicErr.StackTrace)
			assert.Contains(t, panicErr.String(), "Stack trace:")
		})
	}
}

func TestRecoverUnwrapsErrorPanicValue(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := SafeExecute("op", func() error { panic(sentinel) })
	assert.True(t, errors.Is(err, sentinel))
}

func TestRecoverWithoutPanic(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "Classify")
		return nil
	}
	assert.NoError(t, fn())
}

func TestRecoverKeepsExistingError(t *testing.T) {
	original := fmt.Errorf("validation failed")

	fn := func() (err error) {
		defer Recover(&err, "Merge")
		err = original
		panic("late panic")
	}

	err := fn()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in Merge")
	assert.Contains(t, err.Error(), "late panic")
	assert.Contains(t, err.Error(), "validation failed")
	assert.True(t, errors.Is(err, original))
}

func TestSafeExecutePassesThroughErrors(t *testing.T) {
	original := fmt.Errorf("function error")
	assert.Equal(t, original, SafeExecute("op", func() error { return original }))
	assert.NoError(t, SafeExecute("op", func() error { return nil }))
}

func BenchmarkRecoverOverhead(b *testing.B) {
	for i := 0; i < b.N; i++ {
		func() (err error) {
			defer Recover(&err, "bench")
			_ = i * 2
			return nil
		}()
	}
}
