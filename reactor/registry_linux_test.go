//go:build linux

package reactor

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/api"
)

type nopWaker struct{}

func (nopWaker) Wake() error        { return nil }
func (nopWaker) Clone() api.Waker   { return nopWaker{} }
func (nopWaker) TaskID() api.TaskID { return 1 }

func TestWaitAndDispatch_MissingWakerIsInvariantBreach(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	if err := r.Register(p[0], nopWaker{}); err != nil {
		t.Fatal(err)
	}
	r.wakers.drop(p[0])
	_, _ = unix.Write(p[1], []byte("x"))

	_, err = r.WaitAndDispatch(time.Second)
	if !errors.Is(err, api.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Context["fd"] != p[0] {
		t.Errorf("breach does not name the descriptor: %v", err)
	}
}

type idWaker api.TaskID

func (w idWaker) Wake() error        { return nil }
func (w idWaker) Clone() api.Waker   { return w }
func (w idWaker) TaskID() api.TaskID { return api.TaskID(w) }

func TestRegister_FailureKeepsPreviousWaker(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(p[0], idWaker(1)); err != nil {
		t.Fatal(err)
	}
	// Closing the descriptor makes the next epoll_ctl fail with EBADF.
	_ = unix.Close(p[0])
	_ = unix.Close(p[1])

	if err := r.Register(p[0], idWaker(2)); err == nil {
		t.Skip("descriptor number reused before re-registration")
	}
	r.wakers.mu.Lock()
	w, ok := r.wakers.wakers[p[0]]
	r.wakers.mu.Unlock()
	if !ok || w.TaskID() != 1 {
		t.Errorf("previous waker lost after failed re-registration: %v, %v", w, ok)
	}
}

func TestTimeoutMillis(t *testing.T) {
	cases := map[time.Duration]int{
		-time.Second:            -1,
		0:                       0,
		time.Microsecond:        1,
		time.Millisecond:        1,
		1500 * time.Microsecond: 2,
		time.Second:             1000,
	}
	for in, want := range cases {
		if got := timeoutMillis(in); got != want {
			t.Errorf("timeoutMillis(%v) = %d, want %d", in, got, want)
		}
	}
}
