package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNext(t *testing.T) {
	from := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		spec string
		want time.Time
	}{
		{DefaultSpec, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"0 9 * * 1", time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)},
		{"30 16 1 * *", time.Date(2024, 7, 1, 16, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Next(tt.spec, from)
		if err != nil {
			t.Fatalf("Next(%q): %v", tt.spec, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("Next(%q) = %s, want %s", tt.spec, got, tt.want)
		}
	}
	if _, err := Next("every tuesday", from); err == nil {
		t.Error("Next should reject a malformed expression")
	}
}

func TestAddRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := New(nil, nil)
	noop := func(context.Context) error { return nil }

	if err := s.Add("run", DefaultSpec, noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("run", DefaultSpec, noop); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := s.Add("other", "61 * * * *", noop); err == nil {
		t.Error("invalid minute accepted")
	}
}

func TestRunFiresJob(t *testing.T) {
	s := New(time.UTC, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var calls atomic.Int32
	fired := make(chan struct{}, 1)
	err := s.Add("tick", "@every 1s", func(jobCtx context.Context) error {
		if jobCtx.Err() != nil {
			return jobCtx.Err()
		}
		if calls.Add(1) == 1 {
			fired <- struct{}{}
		}
		return errors.New("logged, not fatal")
	})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("job never fired")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if calls.Load() < 1 {
		t.Errorf("calls = %d", calls.Load())
	}
}
