package rfid

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

type fakeEnumerator struct {
	mu      sync.Mutex
	infos   []DeviceInfo
	openErr error
	opened  chan *fakeDevice
}

func newFakeEnumerator(infos ...DeviceInfo) *fakeEnumerator {
	return &fakeEnumerator{infos: infos, opened: make(chan *fakeDevice, 16)}
}

func (e *fakeEnumerator) setDevices(infos ...DeviceInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.infos = infos
}

func (e *fakeEnumerator) Devices() ([]DeviceInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]DeviceInfo(nil), e.infos...), nil
}

func (e *fakeEnumerator) Open(info DeviceInfo) (Device, error) {
	e.mu.Lock()
	openErr := e.openErr
	e.mu.Unlock()
	if openErr != nil {
		return nil, openErr
	}
	device := &fakeDevice{
		name:   info.Name,
		events: make(chan model.RawKeyEvent),
		fail:   make(chan error),
		closed: make(chan struct{}),
	}
	e.opened <- device
	return device, nil
}

// nextOpened returns the next device opened through the enumerator.
func (e *fakeEnumerator) nextOpened(t *testing.T) *fakeDevice {
	t.Helper()
	select {
	case device := <-e.opened:
		return device
	case <-time.After(5 * time.Second):
		t.Fatal("no device was opened")
		return nil
	}
}

type fakeDevice struct {
	name      string
	events    chan model.RawKeyEvent
	fail      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) ReadEvent() (model.RawKeyEvent, error) {
	select {
	case event := <-d.events:
		return event, nil
	case err := <-d.fail:
		return model.RawKeyEvent{}, err
	case <-d.closed:
		return model.RawKeyEvent{}, os.ErrClosed
	}
}

func (d *fakeDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// swipe types digits followed by the terminator, one event at a time.
func (d *fakeDevice) swipe(digits string) {
	d.typeDigits(digits)
	d.events <- down(KeyEnter)
	d.events <- up(KeyEnter)
}

func (d *fakeDevice) typeDigits(digits string) {
	for _, event := range typeDigits(digits) {
		d.events <- event
	}
}

// waitFor polls condition until it holds or five seconds pass.
func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
