package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		rps         float64
		wantEnabled bool
		wantRPS     float64
	}{
		{
			name:        "disabled with zero",
			rps:         0,
			wantEnabled: false,
			wantRPS:     0,
		},
		{
			name:        "disabled with negative",
			rps:         -1,
			wantEnabled: false,
			wantRPS:     0,
		},
		{
			name:        "enabled with 1 rps",
			rps:         1.0,
			wantEnabled: true,
			wantRPS:     1.0,
		},
		{
			name:        "enabled with fractional rps",
			rps:         0.5,
			wantEnabled: true,
			wantRPS:     0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.rps)
			if limiter == nil {
				t.Fatal("New() returned nil")
			}

			if limiter.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", limiter.Enabled(), tt.wantEnabled)
			}

			if limiter.RPS() != tt.wantRPS {
				t.Errorf("RPS() = %v, want %v", limiter.RPS(), tt.wantRPS)
			}
		})
	}
}

func TestLimiter_Wait_Disabled(t *testing.T) {
	limiter := New(0) // Disabled

	ctx := context.Background()
	start := time.Now()

	err := limiter.Wait(ctx)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}

	// Should complete in less than 10ms (practically instant)
	if duration > 10*time.Millisecond {
		t.Errorf("Wait() took too long for disabled limiter: %v", duration)
	}
}

func TestLimiter_Wait_Enabled(t *testing.T) {
	// 10 requests per second: second call should wait roughly 100ms
	limiter := New(10.0)

	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}
	if d := time.Since(start); d > 10*time.Millisecond {
		t.Errorf("First Wait() took too long: %v", d)
	}

	start = time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond || d > 200*time.Millisecond {
		t.Errorf("Second Wait() duration out of expected range: %v (expected ~100ms)", d)
	}
}

func TestLimiter_Wait_Cancelled(t *testing.T) {
	limiter := New(0.1) // One send per 10 seconds

	ctx, cancel := context.WithCancel(context.Background())

	// Consume the initial token, then cancel before the next one is available.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait() with cancelled context returned nil, want error")
	}
}
