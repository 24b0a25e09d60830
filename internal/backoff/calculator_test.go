package backoff

import (
	"testing"
	"time"
)

func TestCalculator(t *testing.T) {
	calc := NewCalculator(ExponentialJitterStrategy{})

	result := calc.Calculate(1, 100*time.Millisecond, 5*time.Second, 2.0, 0.0)
	expected := 200 * time.Millisecond
	if result != expected {
		t.Errorf("Calculate(1) = %v, want %v", result, expected)
	}
}

func TestCalculatorDecorrelated(t *testing.T) {
	calc := NewCalculator(DecorrelatedJitterStrategy{})

	result := calc.Calculate(0, 100*time.Millisecond, 5*time.Second, 2.0, 0.0)
	expected := 100 * time.Millisecond
	if result != expected {
		t.Errorf("Calculate(0) = %v, want %v", result, expected)
	}
}

func BenchmarkCalculatorExponential(b *testing.B) {
	calc := NewCalculator(ExponentialJitterStrategy{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.Calculate(i%10, 100*time.Millisecond, 5*time.Second, 2.0, 0.1)
	}
}

func BenchmarkCalculatorDecorrelated(b *testing.B) {
	calc := NewCalculator(DecorrelatedJitterStrategy{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.Calculate(i%10, 100*time.Millisecond, 5*time.Second, 2.0, 0.1)
	}
}
