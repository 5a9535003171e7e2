package hotkeys

import (
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/platform"
)

type headless struct{ platform.Backend }

func TestNewHandlerRequiresX11(t *testing.T) {
	_, err := NewHandler(headless{}, nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("NewHandler() error = %v, want ErrUnsupported", err)
	}
}

func TestModCombinations(t *testing.T) {
	tests := []struct {
		name string
		base []uint16
		want []uint16
	}{
		{name: "caps only", base: []uint16{2}, want: []uint16{2}},
		{name: "caps and numlock", base: []uint16{2, 16}, want: []uint16{2, 16, 18}},
		{name: "three masks", base: []uint16{2, 16, 128}, want: []uint16{2, 16, 18, 128, 130, 144, 146}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := modCombinations(tt.base)
			sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("modCombinations() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyBindingDropsOverlappingPresses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	press := ApplyBinding(func() error {
		calls.Add(1)
		<-release
		return nil
	}, logging.Nop())

	press()
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	press()
	press()
	close(release)

	if got := calls.Load(); got != 1 {
		t.Fatalf("apply ran %d times while busy, want 1", got)
	}
}

func TestApplyBindingRunsAgainAfterCompletion(t *testing.T) {
	done := make(chan struct{}, 2)
	press := ApplyBinding(func() error {
		done <- struct{}{}
		return errors.New("nothing to apply")
	}, logging.Nop())

	for i := 0; i < 2; i++ {
		press()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("press %d did not run apply", i+1)
		}
		// Let the goroutine release the lock.
		time.Sleep(20 * time.Millisecond)
	}
}
