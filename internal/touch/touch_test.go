package touch

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingTapper struct {
	taps [][2]int
	err  error
}

func (r *recordingTapper) Tap(_ context.Context, x, y int) error {
	r.taps = append(r.taps, [2]int{x, y})
	return r.err
}

func TestRegion_Contains(t *testing.T) {
	r := Rect(10, 20, 5, 4)

	tests := []struct {
		name string
		x, y int
		want bool
	}{
		{name: "origin", x: 10, y: 20, want: true},
		{name: "last pixel", x: 14, y: 23, want: true},
		{name: "right edge excluded", x: 15, y: 20, want: false},
		{name: "bottom edge excluded", x: 10, y: 24, want: false},
		{name: "left of origin", x: 9, y: 20, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.x, tt.y); got != tt.want {
				t.Errorf("Contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRegion_Degenerate(t *testing.T) {
	r := Rect(7, 9, 0, 10)

	if !r.Contains(7, 9) {
		t.Error("degenerate region should contain its origin")
	}
	if r.Contains(7, 10) {
		t.Error("degenerate region should contain nothing but its origin")
	}
	if x, y := r.Center(); x != 7 || y != 9 {
		t.Errorf("Center() = (%d, %d), want (7, 9)", x, y)
	}
}

func TestRegion_String(t *testing.T) {
	if got := Rect(54, 57, 67, 67).String(); got != "(54,57 67x67)" {
		t.Errorf("String() = %q", got)
	}
}

func TestActuator_TouchStaysInsideRegion(t *testing.T) {
	tapper := &recordingTapper{}
	a := NewActuator(tapper, 0)
	a.Seed(42)

	r := Rect(209, 238, 70, 72)
	for i := 0; i < 500; i++ {
		if err := a.Touch(context.Background(), r); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
	}

	for _, p := range tapper.taps {
		if !r.Contains(p[0], p[1]) {
			t.Fatalf("tap (%d, %d) outside region %s", p[0], p[1], r)
		}
	}
}

func TestActuator_TouchVaries(t *testing.T) {
	tapper := &recordingTapper{}
	a := NewActuator(tapper, 0)
	a.Seed(7)

	r := Rect(0, 0, 100, 100)
	for i := 0; i < 20; i++ {
		_ = a.Touch(context.Background(), r)
	}

	first := tapper.taps[0]
	for _, p := range tapper.taps[1:] {
		if p != first {
			return
		}
	}
	t.Error("20 touches landed on the same pixel")
}

func TestActuator_TouchWrapsTapError(t *testing.T) {
	sentinel := errors.New("device gone")
	a := NewActuator(&recordingTapper{err: sentinel}, 0)

	err := a.Touch(context.Background(), Rect(0, 0, 10, 10))
	if !errors.Is(err, sentinel) {
		t.Errorf("Touch() error = %v, want wrapped %v", err, sentinel)
	}
}

func TestActuator_SleepHonoursContext(t *testing.T) {
	a := NewActuator(&recordingTapper{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := a.Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() did not return promptly on a cancelled context")
	}
}

func TestActuator_SleepAddsBoundedJitter(t *testing.T) {
	a := NewActuator(&recordingTapper{}, 20*time.Millisecond)

	start := time.Now()
	if err := a.Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("Sleep() returned after %v, want at least 10ms", elapsed)
	}
}
