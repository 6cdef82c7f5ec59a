package throttle

import (
	"testing"
	"time"

	"github.com/redacter/dlpcopy/internal/model"
)

func TestThrottlerFirstCallHasNoDelay(t *testing.T) {
	limit, err := model.NewRateLimit(5, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	th := New(limit)
	now := time.Now()
	th.Update(now)
	if d := th.Delay(); d != 0 {
		t.Fatalf("expected no delay on first admission, got %v", d)
	}
}

func TestThrottlerRateWindow(t *testing.T) {
	limit, err := model.NewRateLimit(2, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	th := New(limit)
	now := time.Now()

	admissions := 0
	for window := time.Duration(0); window < time.Second; window += 50 * time.Millisecond {
		th.Update(now.Add(window))
		if th.Delay() == 0 {
			admissions++
		}
	}
	if admissions > 2 {
		t.Fatalf("admitted %d calls in a 1s window with a 2rps limit", admissions)
	}
}
