package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestChunk(t *testing.T) {
	groups := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if len(groups[2]) != 1 || groups[2][0] != 5 {
		t.Fatalf("last group = %v", groups[2])
	}
	if got := Chunk([]int{1, 2}, 0); got != nil {
		t.Fatalf("Chunk with n=0 = %v, want nil", got)
	}
	if got := Chunk([]int(nil), 3); got != nil {
		t.Fatalf("Chunk of empty slice = %v, want nil", got)
	}
}

func TestMapFilter(t *testing.T) {
	got := Map([]int{1, 2, 3}, strconv.Itoa)
	if len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Fatalf("Map = %v", got)
	}
	evens := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if len(evens) != 2 || evens[0] != 2 || evens[1] != 4 {
		t.Fatalf("Filter = %v", evens)
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}
	out := ParMap(in, 8, func(n int) int { return n * 2 })
	for i, v := range out {
		if v != i*2 {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*2)
		}
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 4, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	attempts := 0
	result := Retry(context.Background(), opts, func(ctx context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Err[string](errors.New("transient"))
		}
		return Ok("done")
	})
	v, err := result.Unwrap()
	if err != nil || v != "done" {
		t.Fatalf("Retry = %q, %v", v, err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	boom := errors.New("permanent")
	attempts := 0
	result := Retry(context.Background(), opts, func(ctx context.Context) Result[int] {
		attempts++
		return Err[int](boom)
	})
	if _, err := result.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want last failure", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("first failed")
	first := func(ctx context.Context, n int) Result[int] { return Err[int](boom) }
	secondRan := false
	second := func(ctx context.Context, n int) Result[string] {
		secondRan = true
		return Ok("never")
	}
	_, err := Then(first, second)(context.Background(), 1).Unwrap()
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want first stage error", err)
	}
	if secondRan {
		t.Fatal("second stage ran after first failed")
	}
}

func TestThenComposes(t *testing.T) {
	double := func(ctx context.Context, n int) Result[int] { return Ok(n * 2) }
	str := func(ctx context.Context, n int) Result[string] { return Ok(strconv.Itoa(n)) }
	v, err := Then(double, str)(context.Background(), 21).Unwrap()
	if err != nil || v != "42" {
		t.Fatalf("pipeline = %q, %v", v, err)
	}
}
