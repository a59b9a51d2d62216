//go:build linux

package affinity_test

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/affinity"
	"github.com/momentics/hioload-rt/api"
)

func TestPinCurrent(t *testing.T) {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		t.Skipf("sched_getaffinity: %v", err)
	}
	cpu := -1
	for i := 0; i < 1024; i++ {
		if allowed.IsSet(i) {
			cpu = i
			break
		}
	}
	if cpu < 0 {
		t.Skip("no cpu in affinity mask")
	}

	done := make(chan error, 1)
	go func() {
		// Not released: the pinned thread exits with this goroutine.
		_, err := affinity.PinCurrent(cpu)
		if err != nil {
			done <- err
			return
		}
		var got unix.CPUSet
		if err := unix.SchedGetaffinity(0, &got); err != nil {
			done <- err
			return
		}
		if got.Count() != 1 || !got.IsSet(cpu) {
			done <- errors.New("thread not pinned to the requested cpu")
			return
		}
		done <- nil
	}()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestPinCurrent_RejectsNegative(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		release, err := affinity.PinCurrent(-1)
		release()
		done <- err
	}()
	if err := <-done; !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
