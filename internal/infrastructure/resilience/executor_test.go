package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteDisabledBreakerRunsOnce(t *testing.T) {
	executor := NewExecutor(Config{})

	calls := 0
	wantErr := errors.New("service down")
	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return wantErr
	}, nil)

	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestExecuteNeverRetries(t *testing.T) {
	executor := NewExecutor(Config{BreakerEnabled: true})

	calls := 0
	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("transient")
	}, nil)

	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	executor := NewExecutor(Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 2,
		BreakerOpenTimeout: time.Minute,
	})

	fail := func(context.Context) error { return errors.New("service down") }
	for i := 0; i < 2; i++ {
		if err := executor.Execute(context.Background(), "op", fail, nil); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	calls := 0
	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, nil)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open-circuit error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open breaker must not invoke the callback")
	}
}

func TestBreakerIgnoresNonServiceFailures(t *testing.T) {
	executor := NewExecutor(Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 2,
	})

	classifier := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: false}
	}
	fail := func(context.Context) error { return errors.New("bad request") }
	for i := 0; i < 5; i++ {
		if err := executor.Execute(context.Background(), "op", fail, classifier); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	err := executor.Execute(context.Background(), "op", func(context.Context) error { return nil }, classifier)
	if err != nil {
		t.Fatalf("client-side failures must not trip the breaker, got %v", err)
	}
}

func TestBreakersAreScopedPerOperation(t *testing.T) {
	executor := NewExecutor(Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 1,
	})

	fail := func(context.Context) error { return errors.New("down") }
	if err := executor.Execute(context.Background(), "a", fail, nil); err == nil {
		t.Fatalf("expected error")
	}
	if err := executor.Execute(context.Background(), "a", fail, nil); !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit for operation a, got %v", err)
	}

	if err := executor.Execute(context.Background(), "b", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("operation b must not share a breaker with a, got %v", err)
	}
}

func TestExecuteNilCallback(t *testing.T) {
	executor := NewExecutor(Config{})
	if err := executor.Execute(context.Background(), "op", nil, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}
